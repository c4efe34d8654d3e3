// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Author is one creator of a bibliography entry. Sources either split the
// name (Last) or carry it as a single string (Full).
type Author struct {
	// Last is the family name when the source provides it separately.
	Last string `json:"last,omitempty" yaml:"last,omitempty"`

	// Full is the undivided name (e.g. "World Health Organization" or
	// "Jane Doe") for sources that do not split names.
	Full string `json:"full,omitempty" yaml:"full,omitempty"`
}

// LastName returns the family name. When only Full is set, the final
// whitespace-separated word is used.
func (a Author) LastName() string {
	if a.Last != "" {
		return a.Last
	}
	fields := strings.Fields(a.Full)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// ItemPatent is the item type whose year falls back to the issue date.
const ItemPatent = "patent"

// BibEntry is one bibliography record, from either the master source
// (Better BibTeX JSON, CSL) or a document's .bib file. Entries are not
// modified after loading.
type BibEntry struct {
	// CitationKey is the key used in text after the @ sigil. Document
	// bibliographies carry short keys; the master source carries the long
	// Better BibTeX keys.
	CitationKey string `json:"citation_key" yaml:"citation_key"`

	// DOI is the Digital Object Identifier without resolver prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the article URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Authors lists creators in source order.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Date is the raw publication date field (any format containing a year).
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// IssueDate is the grant date used by patents.
	IssueDate string `json:"issue_date,omitempty" yaml:"issue_date,omitempty"`

	// ItemType is the record type (journalArticle, patent, editorial, ...).
	ItemType string `json:"item_type,omitempty" yaml:"item_type,omitempty"`

	// Venue is the journal or publisher, used when no author is listed.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Catalog is the library catalog name, the last author fallback.
	Catalog string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

// IdentifierKind tells which field identifies an entry across bibliographies.
type IdentifierKind string

const (
	IdentifierNone IdentifierKind = ""
	IdentifierDOI  IdentifierKind = "doi"
	IdentifierURL  IdentifierKind = "url"
)

// ExternalID returns the identity used to join document and master records:
// the DOI when present, otherwise the URL.
func (e BibEntry) ExternalID() (IdentifierKind, string) {
	if e.DOI != "" {
		return IdentifierDOI, e.DOI
	}
	if e.URL != "" {
		return IdentifierURL, e.URL
	}
	return IdentifierNone, ""
}

// LookupEntry joins one document key to its master record.
type LookupEntry struct {
	// DocumentKey is the key as cited in the manuscript.
	DocumentKey string `json:"document_key" yaml:"document_key"`

	// MasterKey is the matched master citation key, empty when unresolved.
	MasterKey string `json:"master_key,omitempty" yaml:"master_key,omitempty"`

	// Source is the document bibliography record.
	Source BibEntry `json:"source" yaml:"source"`

	// Match is the master record, nil when unresolved.
	Match *BibEntry `json:"match,omitempty" yaml:"match,omitempty"`
}

// Resolved reports whether a master record was found.
func (l LookupEntry) Resolved() bool {
	return l.Match != nil
}
