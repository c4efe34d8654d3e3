// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// UnknownYear and UnknownAuthor stand in for missing label parts.
const (
	UnknownYear   = "????"
	UnknownAuthor = "Unknown"
)

const doiResolver = "https://doi.org/"

var yearPattern = regexp.MustCompile(`\b\d{4}\b`)

// Rendering is the replacement text for one resolved citation.
type Rendering struct {
	// Label is "Author (Year)".
	Label string

	// URL is the hyperlink target, empty when the record has no identifier.
	URL string

	// Text is the final replacement: "[Label](url)" in body text,
	// "(Label||url)" in captions, or Label alone without a URL.
	Text string

	Warnings []types.Warning
}

// Render produces the replacement for rec. It never fails: missing parts
// fall back to sentinels and are reported in Warnings.
func Render(rec types.BibEntry, figureCaption bool) Rendering {
	label, warnings := Label(rec)
	url := Hyperlink(rec)

	r := Rendering{Label: label, URL: url, Warnings: warnings}
	switch {
	case url == "":
		r.Text = label
		r.Warnings = append(r.Warnings, warn(types.WarnMissingIdentifier, rec,
			"record has neither DOI nor URL; rendering label without link"))
	case figureCaption:
		r.Text = "(" + label + "||" + url + ")"
	default:
		r.Text = "[" + label + "](" + url + ")"
	}
	return r
}

// Label builds the "Author (Year)" text for rec.
func Label(rec types.BibEntry) (string, []types.Warning) {
	var warnings []types.Warning

	author := AuthorPart(rec)
	if author == "" {
		author = UnknownAuthor
		warnings = append(warnings, warn(types.WarnMissingAuthor, rec,
			"record lists no author, venue or catalog"))
	}

	year, ok := Year(rec)
	if !ok {
		warnings = append(warnings, warn(types.WarnMissingYear, rec,
			"no four-digit year in date or issue date"))
	}

	return author + " (" + year + ")", warnings
}

// AuthorPart returns the author portion of a label: the last name of a
// single author, "A & B" for two, "A et al." for three or more. Records
// without authors fall back to the venue, then the catalog. It returns ""
// when none of these is available.
func AuthorPart(rec types.BibEntry) string {
	var names []string
	for _, a := range rec.Authors {
		if n := a.LastName(); n != "" {
			names = append(names, n)
		}
	}

	switch len(names) {
	case 0:
		if v := strings.TrimSpace(rec.Venue); v != "" {
			return v
		}
		return strings.TrimSpace(rec.Catalog)
	case 1:
		return names[0]
	case 2:
		return names[0] + " & " + names[1]
	default:
		return names[0] + " et al."
	}
}

// Year returns the first four-digit run in the date field, falling back
// to the issue date that patents carry. ok is false when neither holds a
// year, in which case UnknownYear is returned.
func Year(rec types.BibEntry) (string, bool) {
	if y := yearPattern.FindString(rec.Date); y != "" {
		return y, true
	}
	if y := yearPattern.FindString(rec.IssueDate); y != "" {
		return y, true
	}
	return UnknownYear, false
}

// Hyperlink returns the link target: the DOI resolver URL when a DOI is
// present, otherwise the record URL.
func Hyperlink(rec types.BibEntry) string {
	if doi := strings.TrimSpace(rec.DOI); doi != "" {
		return doiResolver + trimDOIPrefix(doi)
	}
	return strings.TrimSpace(rec.URL)
}

// trimDOIPrefix accepts DOIs stored with a resolver or "doi:" prefix.
func trimDOIPrefix(doi string) string {
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(doi) > len(p) && strings.EqualFold(doi[:len(p)], p) {
			return doi[len(p):]
		}
	}
	return doi
}

func warn(kind types.WarningKind, rec types.BibEntry, msg string) types.Warning {
	return types.Warning{Kind: kind, Key: rec.CitationKey, Message: msg, Line: -1}
}
