// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pdiddy/kbconvert/internal/bibliography"
	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/pkg/types"
)

// Bibliographies holds one rewriter per document directory. Everything is
// loaded up front so no document is touched before its lookup table exists.
type Bibliographies struct {
	mode   citation.Mode
	shared *citation.Rewriter
	byDir  map[string]*citation.Rewriter
	errs   map[string]error

	// sharedPath and paths are the .bib files behind the tables.
	sharedPath string
	paths      map[string]string

	// Warnings are the indexing warnings of every table, in directory order.
	Warnings []types.Warning
}

// LoadBibliographies reads the master bibliography once and builds the
// lookup tables for docs. When documentBib is set, every document shares
// one table. Otherwise each document directory uses its single .bib file,
// and a directory without one resolves master keys only. A directory whose
// bibliography is ambiguous or unreadable fails only the documents in it.
func LoadBibliographies(masterPath, documentBib string, mode citation.Mode, docs []Document) (*Bibliographies, error) {
	master, err := bibliography.LoadMaster(masterPath)
	if err != nil {
		return nil, err
	}

	b := &Bibliographies{
		mode:  mode,
		byDir: make(map[string]*citation.Rewriter),
		errs:  make(map[string]error),
		paths: make(map[string]string),
	}

	if documentBib != "" {
		path, err := bibliography.ResolveDocumentPath(documentBib)
		if err != nil {
			return nil, err
		}
		document, err := bibliography.LoadDocument(path)
		if err != nil {
			return nil, err
		}
		table := bibliography.Build(master, document)
		b.shared = citation.NewRewriter(table, mode)
		b.sharedPath = path
		b.Warnings = table.Warnings()
		return b, nil
	}

	dirs := make(map[string]bool)
	for _, d := range docs {
		dirs[filepath.Dir(d.Path)] = true
	}
	sorted := make([]string, 0, len(dirs))
	for dir := range dirs {
		sorted = append(sorted, dir)
	}
	sort.Strings(sorted)

	var masterOnly *citation.Rewriter
	for _, dir := range sorted {
		path, err := bibliography.FindDocumentBibliography(dir)
		if errors.Is(err, bibliography.ErrNoBibliography) {
			if masterOnly == nil {
				table := bibliography.Build(master, nil)
				masterOnly = citation.NewRewriter(table, mode)
				b.Warnings = append(b.Warnings, table.Warnings()...)
			}
			b.byDir[dir] = masterOnly
			continue
		}
		if err != nil {
			b.errs[dir] = err
			continue
		}
		document, err := bibliography.LoadDocument(path)
		if err != nil {
			b.errs[dir] = err
			continue
		}
		table := bibliography.Build(master, document)
		b.byDir[dir] = citation.NewRewriter(table, mode)
		b.paths[dir] = path
		b.Warnings = append(b.Warnings, table.Warnings()...)
	}
	return b, nil
}

// NewBibliographies wraps a prepared lookup table shared by every document.
func NewBibliographies(lookup citation.Lookup, mode citation.Mode) *Bibliographies {
	return &Bibliographies{mode: mode, shared: citation.NewRewriter(lookup, mode)}
}

// RewriterFor returns the rewriter for the document at path.
func (b *Bibliographies) RewriterFor(path string) (*citation.Rewriter, error) {
	if b.shared != nil {
		return b.shared, nil
	}
	dir := filepath.Dir(path)
	if err, ok := b.errs[dir]; ok {
		return nil, err
	}
	if r, ok := b.byDir[dir]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no bibliography loaded for %s", dir)
}

// DocumentBibliography returns the .bib file loaded for the document at
// path, or "" when its directory resolves master keys only.
func (b *Bibliographies) DocumentBibliography(path string) string {
	if b.shared != nil {
		return b.sharedPath
	}
	return b.paths[filepath.Dir(path)]
}

// Mode returns the rewrite mode.
func (b *Bibliographies) Mode() citation.Mode {
	return b.mode
}
