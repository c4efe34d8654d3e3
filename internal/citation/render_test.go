// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/kbconvert/pkg/types"
)

func authors(names ...string) []types.Author {
	out := make([]types.Author, len(names))
	for i, n := range names {
		out[i] = types.Author{Last: n}
	}
	return out
}

func warningKinds(ws []types.Warning) []types.WarningKind {
	var kinds []types.WarningKind
	for _, w := range ws {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name     string
		rec      types.BibEntry
		want     string
		wantWarn []types.WarningKind
	}{
		{
			name: "one author",
			rec:  types.BibEntry{Authors: authors("Smith"), Date: "2020"},
			want: "Smith (2020)",
		},
		{
			name: "two authors",
			rec:  types.BibEntry{Authors: authors("Smith", "Doe"), Date: "2020-05-01"},
			want: "Smith & Doe (2020)",
		},
		{
			name: "three or more authors",
			rec:  types.BibEntry{Authors: authors("Smith", "Doe", "Lee", "Kim"), Date: "May 2020"},
			want: "Smith et al. (2020)",
		},
		{
			name: "undivided author name uses last word",
			rec:  types.BibEntry{Authors: []types.Author{{Full: "World Health Organization"}}, Date: "2019"},
			want: "Organization (2019)",
		},
		{
			name: "no author falls back to venue",
			rec:  types.BibEntry{Venue: "Nature", Date: "2021"},
			want: "Nature (2021)",
		},
		{
			name: "no author or venue falls back to catalog",
			rec:  types.BibEntry{Catalog: "Google Patents", Date: "2021"},
			want: "Google Patents (2021)",
		},
		{
			name:     "nothing to name",
			rec:      types.BibEntry{Date: "2021"},
			want:     "Unknown (2021)",
			wantWarn: []types.WarningKind{types.WarnMissingAuthor},
		},
		{
			name: "patent uses issue date",
			rec:  types.BibEntry{Authors: authors("Doe"), ItemType: types.ItemPatent, IssueDate: "2018-07-04"},
			want: "Doe (2018)",
		},
		{
			name:     "no year",
			rec:      types.BibEntry{Authors: authors("Smith"), Date: "in press"},
			want:     "Smith (????)",
			wantWarn: []types.WarningKind{types.WarnMissingYear},
		},
		{
			name:     "nothing at all",
			rec:      types.BibEntry{},
			want:     "Unknown (????)",
			wantWarn: []types.WarningKind{types.WarnMissingAuthor, types.WarnMissingYear},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := Label(tt.rec)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantWarn, warningKinds(warnings))
		})
	}
}

func TestHyperlink(t *testing.T) {
	tests := []struct {
		name string
		rec  types.BibEntry
		want string
	}{
		{
			name: "DOI wins over URL",
			rec:  types.BibEntry{URL: "https://example.com", DOI: "10.1/x"},
			want: "https://doi.org/10.1/x",
		},
		{
			name: "URL only",
			rec:  types.BibEntry{URL: "https://example.com"},
			want: "https://example.com",
		},
		{
			name: "DOI stored with resolver prefix",
			rec:  types.BibEntry{DOI: "https://doi.org/10.1/x"},
			want: "https://doi.org/10.1/x",
		},
		{
			name: "DOI stored with doi: prefix",
			rec:  types.BibEntry{DOI: "doi:10.1/x"},
			want: "https://doi.org/10.1/x",
		},
		{
			name: "no identifier",
			rec:  types.BibEntry{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Hyperlink(tt.rec))
		})
	}
}

func TestRenderForms(t *testing.T) {
	rec := types.BibEntry{
		CitationKey: "smithML2020",
		Authors:     authors("Smith"),
		Date:        "2020",
		URL:         "https://example.com",
		DOI:         "10.1/x",
	}

	body := Render(rec, false)
	assert.Equal(t, "[Smith (2020)](https://doi.org/10.1/x)", body.Text)
	assert.Empty(t, body.Warnings)

	caption := Render(rec, true)
	assert.Equal(t, "(Smith (2020)||https://doi.org/10.1/x)", caption.Text)

	assert.Equal(t, body.Label, caption.Label)
	assert.Equal(t, body, Render(rec, false), "rendering is deterministic")
}

func TestRenderWithoutIdentifier(t *testing.T) {
	rec := types.BibEntry{CitationKey: "k", Authors: authors("Smith"), Date: "2020"}

	for _, caption := range []bool{false, true} {
		r := Render(rec, caption)
		assert.Equal(t, "Smith (2020)", r.Text)
		assert.Empty(t, r.URL)
		assert.Equal(t, []types.WarningKind{types.WarnMissingIdentifier}, warningKinds(r.Warnings))
		assert.Equal(t, "k", r.Warnings[0].Key)
	}
}
