// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kbconvert/pkg/types"
)

func TestBuild(t *testing.T) {
	master := []types.BibEntry{
		{CitationKey: "smithMachineLearning2020", DOI: "10.1/ml", URL: "https://example.com/ml"},
		{CitationKey: "jonesWebOnly2021", URL: "https://example.com/web"},
		{CitationKey: "leeChemistry2019", DOI: "10.2/chem"},
	}

	tests := []struct {
		name       string
		document   []types.BibEntry
		wantMaster map[string]string
		wantWarn   []types.WarningKind
	}{
		{
			name: "matches by DOI",
			document: []types.BibEntry{
				{CitationKey: "smith2020", DOI: "10.1/ml"},
			},
			wantMaster: map[string]string{"smith2020": "smithMachineLearning2020"},
		},
		{
			name: "falls back to URL when DOI is absent",
			document: []types.BibEntry{
				{CitationKey: "jones2021", URL: "https://example.com/web"},
			},
			wantMaster: map[string]string{"jones2021": "jonesWebOnly2021"},
		},
		{
			name: "DOI takes precedence over URL",
			document: []types.BibEntry{
				{CitationKey: "lee2019", DOI: "10.2/chem", URL: "https://example.com/web"},
			},
			wantMaster: map[string]string{"lee2019": "leeChemistry2019"},
		},
		{
			name: "DOI mismatch does not fall back to URL",
			document: []types.BibEntry{
				{CitationKey: "odd2022", DOI: "10.9/none", URL: "https://example.com/web"},
			},
			wantMaster: map[string]string{"odd2022": ""},
		},
		{
			name: "no identifier is unresolved with warning",
			document: []types.BibEntry{
				{CitationKey: "bare2018"},
			},
			wantMaster: map[string]string{"bare2018": ""},
			wantWarn:   []types.WarningKind{types.WarnMissingIdentifier},
		},
		{
			name: "duplicate document key keeps first entry",
			document: []types.BibEntry{
				{CitationKey: "smith2020", DOI: "10.1/ml"},
				{CitationKey: "smith2020", DOI: "10.2/chem"},
			},
			wantMaster: map[string]string{"smith2020": "smithMachineLearning2020"},
			wantWarn:   []types.WarningKind{types.WarnDuplicateKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Build(master, tt.document)

			require.Equal(t, len(tt.wantMaster), table.Len())
			for docKey, want := range tt.wantMaster {
				entry, ok := table.Resolve(docKey)
				require.True(t, ok, "key %s", docKey)
				assert.Equal(t, want, entry.MasterKey)
				assert.Equal(t, want != "", entry.Resolved())
			}

			var kinds []types.WarningKind
			for _, w := range table.Warnings() {
				kinds = append(kinds, w.Kind)
			}
			assert.Equal(t, tt.wantWarn, kinds)
		})
	}
}

func TestBuildDuplicateMasterIdentifier(t *testing.T) {
	master := []types.BibEntry{
		{CitationKey: "firstRecord", DOI: "10.1/dup"},
		{CitationKey: "secondRecord", DOI: "10.1/dup"},
	}
	document := []types.BibEntry{{CitationKey: "doc", DOI: "10.1/dup"}}

	table := Build(master, document)

	entry, ok := table.Resolve("doc")
	require.True(t, ok)
	assert.Equal(t, "firstRecord", entry.MasterKey, "earliest record in file order wins")

	warnings := table.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, types.WarnDuplicateIdentifier, warnings[0].Kind)
	assert.Equal(t, "secondRecord", warnings[0].Key)
	assert.Contains(t, warnings[0].Message, "firstRecord")
}

func TestResolveMasterKey(t *testing.T) {
	master := []types.BibEntry{
		{CitationKey: "smithMachineLearning2020", DOI: "10.1/ml"},
	}
	table := Build(master, nil)

	entry, ok := table.Resolve("smithMachineLearning2020")
	require.True(t, ok)
	assert.True(t, entry.Resolved())
	assert.Equal(t, "smithMachineLearning2020", entry.MasterKey)
	assert.Equal(t, "10.1/ml", entry.Match.DOI)

	_, ok = table.Resolve("unknown")
	assert.False(t, ok)
}

func TestResolveNilTable(t *testing.T) {
	var table *LookupTable
	_, ok := table.Resolve("anything")
	assert.False(t, ok)
}

func TestLookupTableCounts(t *testing.T) {
	master := []types.BibEntry{
		{CitationKey: "a", DOI: "10.1/a"},
		{CitationKey: "b", URL: "https://b"},
	}
	document := []types.BibEntry{
		{CitationKey: "docA", DOI: "10.1/a"},
		{CitationKey: "docMissing", DOI: "10.1/zzz"},
		{CitationKey: "docB", URL: "https://b"},
		{CitationKey: "docNone"},
	}

	table := Build(master, document)

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 2, table.MasterLen())
	assert.Equal(t, 2, table.ResolvedCount())
	assert.Equal(t, []string{"docMissing", "docNone"}, table.Unresolved())

	keys := make([]string, 0, table.Len())
	for _, e := range table.Entries() {
		keys = append(keys, e.DocumentKey)
	}
	assert.Equal(t, []string{"docA", "docMissing", "docB", "docNone"}, keys)
}
