// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibliography joins a manuscript's bibliography to the master
// bibliography and exposes the result as a read-only lookup table.
//
// Document entries carry short keys (from LaTeX/LyX); master entries carry
// the long Better BibTeX keys. The two are joined by external identifier:
// DOI when the document entry has one, otherwise URL.
package bibliography

import (
	"fmt"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// LookupTable maps document citation keys to master records. It is built
// once by Build and never modified afterwards, so it can be shared by
// goroutines processing different documents.
type LookupTable struct {
	entries  []types.LookupEntry
	byDocKey map[string]int

	// master records by their own citation key, so text that already uses
	// master keys resolves too.
	byMasterKey map[string]types.BibEntry

	warnings []types.Warning
}

// masterIndex holds the master records keyed by identifier. The earliest
// record in file order owns an identifier.
type masterIndex struct {
	byDOI map[string]int
	byURL map[string]int
	keys  map[string]int
}

func indexMaster(master []types.BibEntry) (masterIndex, []types.Warning) {
	idx := masterIndex{
		byDOI: make(map[string]int, len(master)),
		byURL: make(map[string]int, len(master)),
		keys:  make(map[string]int, len(master)),
	}
	var warnings []types.Warning

	claim := func(m map[string]int, id string, i int) {
		if id == "" {
			return
		}
		if first, ok := m[id]; ok {
			warnings = append(warnings, types.Warning{
				Kind: types.WarnDuplicateIdentifier,
				Key:  master[i].CitationKey,
				Message: fmt.Sprintf("identifier %q is already used by @%s; keeping the earlier record",
					id, master[first].CitationKey),
				Line: -1,
			})
			return
		}
		m[id] = i
	}

	for i, rec := range master {
		claim(idx.byDOI, rec.DOI, i)
		claim(idx.byURL, rec.URL, i)
		if rec.CitationKey != "" {
			if _, ok := idx.keys[rec.CitationKey]; !ok {
				idx.keys[rec.CitationKey] = i
			}
		}
	}
	return idx, warnings
}

// Build joins every document entry to the master set. Matching is exact
// string equality on the DOI (or URL when the document entry has no DOI).
// Entries without DOI and URL stay unresolved with a missing-identifier
// warning. Duplicate document keys keep the first entry.
func Build(master, document []types.BibEntry) *LookupTable {
	idx, warnings := indexMaster(master)

	t := &LookupTable{
		entries:     make([]types.LookupEntry, 0, len(document)),
		byDocKey:    make(map[string]int, len(document)),
		byMasterKey: make(map[string]types.BibEntry, len(idx.keys)),
		warnings:    warnings,
	}
	for key, i := range idx.keys {
		t.byMasterKey[key] = master[i]
	}

	for _, doc := range document {
		if _, dup := t.byDocKey[doc.CitationKey]; dup {
			t.warnings = append(t.warnings, types.Warning{
				Kind:    types.WarnDuplicateKey,
				Key:     doc.CitationKey,
				Message: "document bibliography lists this key more than once; keeping the first entry",
				Line:    -1,
			})
			continue
		}

		entry := types.LookupEntry{DocumentKey: doc.CitationKey, Source: doc}

		kind, id := doc.ExternalID()
		pos, found := -1, false
		switch kind {
		case types.IdentifierDOI:
			pos, found = idx.byDOI[id]
		case types.IdentifierURL:
			pos, found = idx.byURL[id]
		default:
			t.warnings = append(t.warnings, types.Warning{
				Kind:    types.WarnMissingIdentifier,
				Key:     doc.CitationKey,
				Message: "document entry has neither DOI nor URL; cannot match it to the master bibliography",
				Line:    -1,
			})
		}
		if found {
			match := master[pos]
			entry.MasterKey = match.CitationKey
			entry.Match = &match
		}

		t.byDocKey[doc.CitationKey] = len(t.entries)
		t.entries = append(t.entries, entry)
	}

	return t
}

// Resolve looks up a cited key. Document keys take precedence; a key that
// is not a document key but is a master citation key resolves to that
// master record. The boolean is false when the key is unknown. A known
// document key whose entry did not match is returned with Match == nil.
func (t *LookupTable) Resolve(key string) (types.LookupEntry, bool) {
	if t == nil {
		return types.LookupEntry{}, false
	}
	if i, ok := t.byDocKey[key]; ok {
		return t.entries[i], true
	}
	if rec, ok := t.byMasterKey[key]; ok {
		return types.LookupEntry{
			DocumentKey: key,
			MasterKey:   key,
			Source:      rec,
			Match:       &rec,
		}, true
	}
	return types.LookupEntry{}, false
}

// Entries returns the document entries in bibliography order.
func (t *LookupTable) Entries() []types.LookupEntry {
	out := make([]types.LookupEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of document entries.
func (t *LookupTable) Len() int {
	return len(t.entries)
}

// MasterLen returns the number of distinct master citation keys.
func (t *LookupTable) MasterLen() int {
	return len(t.byMasterKey)
}

// ResolvedCount returns how many document entries matched a master record.
func (t *LookupTable) ResolvedCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Resolved() {
			n++
		}
	}
	return n
}

// Unresolved returns the document keys without a master record, in
// bibliography order.
func (t *LookupTable) Unresolved() []string {
	var keys []string
	for _, e := range t.entries {
		if !e.Resolved() {
			keys = append(keys, e.DocumentKey)
		}
	}
	return keys
}

// Warnings returns the problems found while building the table.
func (t *LookupTable) Warnings() []types.Warning {
	out := make([]types.Warning, len(t.warnings))
	copy(out, t.warnings)
	return out
}
