// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kbconvert/internal/bibliography"
	"github.com/pdiddy/kbconvert/pkg/types"
)

const sampleDoc = `# Introduction

Prior work @smith2020, and @jones2021. Also (@missing2019).

![Results [see @smith2020]](fig.png)

> quoted @jones2021 and user@example.com
`

func TestProcessLineCount(t *testing.T) {
	r := NewRewriter(testTable(t), ModeLink)

	inputs := [][]string{
		nil,
		{""},
		{"\n", "\n", "\n"},
		{"@smith2020\n", "no newline at end @jones2021"},
		SplitLines(sampleDoc),
	}
	for _, lines := range inputs {
		out, _ := Process(lines, r)
		assert.Len(t, out, len(lines))
	}
}

func TestProcessStats(t *testing.T) {
	r := NewRewriter(testTable(t), ModeLink)

	out, stats := Process(SplitLines(sampleDoc), r)
	require.Len(t, out, 7)

	assert.Equal(t, 4, stats.ResolvedCount())
	assert.Equal(t, 1, stats.UnresolvedCount())
	assert.Equal(t, []string{"missing2019"}, stats.UniqueUnresolved())
	assert.Equal(t, 2, stats.Unresolved[0].Line)

	assert.Equal(t, "# Introduction\n", out[0], "lines without citations pass through")
	assert.Equal(t, "![Results see "+smithCap+"](fig.png)\n", out[4])
	assert.Equal(t, "> quoted "+jonesLink+" and user@example.com\n", out[6])
}

func TestProcessIdempotent(t *testing.T) {
	for _, mode := range []Mode{ModeLink, ModeRekey} {
		t.Run(string(mode), func(t *testing.T) {
			r := NewRewriter(testTable(t), mode)

			once, _ := ProcessText(sampleDoc, r)
			twice, stats := ProcessText(once, r)

			assert.Equal(t, once, twice)
			assert.Equal(t, []string{"missing2019"}, stats.UniqueUnresolved())
		})
	}
}

func TestProcessCaptionWithEmptyTable(t *testing.T) {
	r := NewRewriter(bibliography.Build(nil, nil), ModeLink)
	line := "![caption @missingkey2019](img.png)\n"

	out, stats := Process([]string{line}, r)

	assert.Equal(t, []string{line}, out)
	assert.Equal(t, []string{"missingkey2019"}, stats.UniqueUnresolved())
	assert.Zero(t, stats.ResolvedCount())
}

func TestProcessWarningsReportedOnce(t *testing.T) {
	r := NewRewriter(testTable(t), ModeLink)

	_, stats := Process([]string{"first @ny\n", "again @ny\n", "@missing2019 @missing2019\n"}, r)

	var missingYear, unresolved []types.Warning
	for _, w := range stats.Warnings {
		switch w.Kind {
		case types.WarnMissingYear:
			missingYear = append(missingYear, w)
		case types.WarnUnresolvedCitation:
			unresolved = append(unresolved, w)
		}
	}
	require.Len(t, missingYear, 1)
	assert.Equal(t, 0, missingYear[0].Line)
	assert.Len(t, unresolved, 2, "every unresolved occurrence is reported")
	assert.Equal(t, 2, stats.UnresolvedCount())
	assert.Equal(t, []string{"missing2019"}, stats.UniqueUnresolved())
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "a", want: []string{"a"}},
		{in: "a\n", want: []string{"a\n"}},
		{in: "a\n\nb", want: []string{"a\n", "\n", "b"}},
	}
	for _, tt := range tests {
		got := SplitLines(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, strings.Join(got, ""))
	}
}

func TestStatsMerge(t *testing.T) {
	var total Stats
	total.Merge(Stats{Resolved: []types.ResolvedCitation{{Key: "a"}}})
	total.Merge(Stats{Unresolved: []types.UnresolvedCitation{{Key: "b"}, {Key: "a"}}})

	assert.Equal(t, 1, total.ResolvedCount())
	assert.Equal(t, []string{"a", "b"}, total.UniqueUnresolved())
}
