// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickng/bibtex"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// LoadFiles reads the master bibliography and the document bibliography
// and builds the lookup table. documentPath may be a .bib file, a
// directory holding exactly one .bib file, or empty when the manuscript
// already cites master keys.
func LoadFiles(masterPath, documentPath string) (*LookupTable, error) {
	master, err := LoadMaster(masterPath)
	if err != nil {
		return nil, err
	}

	var document []types.BibEntry
	if documentPath != "" {
		bibPath, err := ResolveDocumentPath(documentPath)
		if err != nil {
			return nil, err
		}
		document, err = LoadDocument(bibPath)
		if err != nil {
			return nil, err
		}
	}

	return Build(master, document), nil
}

// ResolveDocumentPath returns path itself for a file and the single .bib
// file inside it for a directory.
func ResolveDocumentPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &LoadError{Path: path, Cause: err}
	}
	if info.IsDir() {
		return FindDocumentBibliography(path)
	}
	return path, nil
}

// FindDocumentBibliography returns the single .bib file in dir. It fails
// with ErrNoBibliography when there is none and ErrAmbiguousBibliography
// when there are several.
func FindDocumentBibliography(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.bib"))
	if err != nil {
		return "", &LoadError{Path: dir, Cause: err}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoBibliography, dir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrAmbiguousBibliography, dir, strings.Join(matches, ", "))
	}
}

// LoadMaster reads the master bibliography. JSON files may be a Better
// BibTeX export (an object with "items") or a CSL-JSON array; .yaml/.yml
// files are CSL-YAML (a list, or an object with "references").
func LoadMaster(path string) ([]types.BibEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(path, data)
	case ".yaml", ".yml":
		return parseCSLYAML(path, data)
	case ".bib":
		return parseBibTeX(path, data)
	default:
		return nil, loadError(path, "unsupported master bibliography format %q", filepath.Ext(path))
	}
}

// LoadDocument reads a document bibliography, normally a .bib file.
// JSON and YAML are accepted for manuscripts exported as CSL.
func LoadDocument(path string) ([]types.BibEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bib":
		return parseBibTeX(path, data)
	case ".json":
		return parseJSON(path, data)
	case ".yaml", ".yml":
		return parseCSLYAML(path, data)
	default:
		return nil, loadError(path, "unsupported document bibliography format %q", filepath.Ext(path))
	}
}

// --- Better BibTeX JSON ---

type bbtExport struct {
	Items []bbtItem `json:"items"`
}

type bbtItem struct {
	CitationKey      string       `json:"citationKey"`
	ItemType         string       `json:"itemType"`
	Creators         []bbtCreator `json:"creators"`
	Date             flexString   `json:"date"`
	IssueDate        flexString   `json:"issueDate"`
	DOI              string       `json:"DOI"`
	URL              string       `json:"url"`
	PublicationTitle string       `json:"publicationTitle"`
	LibraryCatalog   string       `json:"libraryCatalog"`
}

type bbtCreator struct {
	LastName string `json:"lastName"`
	Name     string `json:"name"`
}

func (it bbtItem) entry() types.BibEntry {
	e := types.BibEntry{
		CitationKey: it.CitationKey,
		ItemType:    it.ItemType,
		Date:        string(it.Date),
		IssueDate:   string(it.IssueDate),
		DOI:         strings.TrimSpace(it.DOI),
		URL:         strings.TrimSpace(it.URL),
		Venue:       it.PublicationTitle,
		Catalog:     it.LibraryCatalog,
	}
	for _, c := range it.Creators {
		e.Authors = append(e.Authors, types.Author{Last: c.LastName, Full: c.Name})
	}
	return e
}

// flexString accepts JSON strings and numbers (some exports write years
// as bare integers).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into a string", string(data))
}

func parseJSON(path string, data []byte) ([]types.BibEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, loadError(path, "empty file")
	}

	if trimmed[0] == '[' {
		var items []cslItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, loadError(path, "parsing CSL-JSON: %w", err)
		}
		return cslEntries(items), nil
	}

	var export bbtExport
	if err := json.Unmarshal(trimmed, &export); err != nil {
		return nil, loadError(path, "parsing Better BibTeX JSON: %w", err)
	}
	if export.Items == nil {
		return nil, loadError(path, `Better BibTeX JSON has no "items" list`)
	}
	entries := make([]types.BibEntry, len(export.Items))
	for i, it := range export.Items {
		entries[i] = it.entry()
	}
	return entries, nil
}

// --- CSL-JSON / CSL-YAML ---

type cslItem struct {
	ID             string    `json:"id" yaml:"id"`
	CitationKey    string    `json:"citation-key" yaml:"citation-key"`
	Type           string    `json:"type" yaml:"type"`
	Author         []cslName `json:"author" yaml:"author"`
	Issued         *cslDate  `json:"issued" yaml:"issued"`
	DOI            string    `json:"DOI" yaml:"DOI"`
	URL            string    `json:"URL" yaml:"URL"`
	ContainerTitle string    `json:"container-title" yaml:"container-title"`
	Publisher      string    `json:"publisher" yaml:"publisher"`
	Source         string    `json:"source" yaml:"source"`
}

type cslName struct {
	Family  string `json:"family" yaml:"family"`
	Given   string `json:"given" yaml:"given"`
	Literal string `json:"literal" yaml:"literal"`
}

type cslDate struct {
	DateParts [][]flexString `json:"date-parts" yaml:"date-parts"`
	Raw       string         `json:"raw" yaml:"raw"`
	Literal   string         `json:"literal" yaml:"literal"`
}

func (d *cslDate) String() string {
	if d == nil {
		return ""
	}
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		parts := make([]string, len(d.DateParts[0]))
		for i, p := range d.DateParts[0] {
			parts[i] = string(p)
		}
		return strings.Join(parts, "-")
	}
	if d.Raw != "" {
		return d.Raw
	}
	return d.Literal
}

type cslDocument struct {
	References []cslItem `yaml:"references"`
}

func cslEntries(items []cslItem) []types.BibEntry {
	entries := make([]types.BibEntry, len(items))
	for i, it := range items {
		key := it.CitationKey
		if key == "" {
			key = it.ID
		}
		venue := it.ContainerTitle
		if venue == "" {
			venue = it.Publisher
		}
		e := types.BibEntry{
			CitationKey: key,
			ItemType:    it.Type,
			DOI:         strings.TrimSpace(it.DOI),
			URL:         strings.TrimSpace(it.URL),
			Venue:       venue,
			Catalog:     it.Source,
		}
		date := it.Issued.String()
		if it.Type == types.ItemPatent {
			e.IssueDate = date
		} else {
			e.Date = date
		}
		for _, a := range it.Author {
			e.Authors = append(e.Authors, types.Author{Last: a.Family, Full: a.Literal})
		}
		entries[i] = e
	}
	return entries
}

func parseCSLYAML(path string, data []byte) ([]types.BibEntry, error) {
	var items []cslItem
	if err := yaml.Unmarshal(data, &items); err == nil && items != nil {
		return cslEntries(items), nil
	}

	var doc cslDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, loadError(path, "parsing CSL-YAML: %w", err)
	}
	if doc.References == nil {
		return nil, loadError(path, "CSL-YAML holds neither a list nor a references key")
	}
	return cslEntries(doc.References), nil
}

// --- BibTeX ---

func parseBibTeX(path string, data []byte) ([]types.BibEntry, error) {
	bib, err := bibtex.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, loadError(path, "parsing BibTeX: %w", err)
	}

	entries := make([]types.BibEntry, 0, len(bib.Entries))
	for _, be := range bib.Entries {
		fields := make(map[string]string, len(be.Fields))
		for name, value := range be.Fields {
			fields[strings.ToLower(name)] = cleanBibValue(value.String())
		}
		entries = append(entries, bibTeXEntry(be.CiteName, strings.ToLower(be.Type), fields))
	}
	return entries, nil
}

func bibTeXEntry(key, itemType string, fields map[string]string) types.BibEntry {
	e := types.BibEntry{
		CitationKey: key,
		ItemType:    itemType,
		DOI:         fields["doi"],
		URL:         fields["url"],
		Date:        firstNonEmpty(fields["date"], fields["year"]),
		Venue:       firstNonEmpty(fields["journal"], fields["journaltitle"], fields["booktitle"], fields["publisher"], fields["howpublished"]),
	}
	if itemType == types.ItemPatent {
		e.IssueDate = e.Date
	}
	for _, name := range splitBibAuthors(fields["author"]) {
		if last, _, ok := strings.Cut(name, ","); ok {
			e.Authors = append(e.Authors, types.Author{Last: strings.TrimSpace(last)})
		} else {
			e.Authors = append(e.Authors, types.Author{Full: name})
		}
	}
	return e
}

// splitBibAuthors splits a BibTeX author list on the " and " separator.
func splitBibAuthors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(s, " and ") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// cleanBibValue drops the protective braces BibTeX keeps inside values
// and collapses whitespace from wrapped lines.
func cleanBibValue(s string) string {
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
