// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kbconvert/internal/pipeline"
	"github.com/pdiddy/kbconvert/pkg/types"
)

func TestBatchCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.md", "b.md.bak", "c.txt", "paper.clean.tex", "sub/d.md"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	b := batch{command: "gdocs", sources: map[string]pipeline.Source{
		".html": pipeline.SourceGDocsHTML,
		".md":   pipeline.SourceGDocs,
		".tex":  pipeline.SourceLaTeX,
	}}
	assert.True(t, b.needsConverter())
	assert.Equal(t, []string{".html", ".md", ".tex"}, b.exts())

	docs, err := b.collect([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Document{
		{Path: filepath.Join(dir, "a.html"), Source: pipeline.SourceGDocsHTML},
		{Path: filepath.Join(dir, "b.md"), Source: pipeline.SourceGDocs},
	}, docs)

	docs, err = b.collect([]string{dir}, true)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	_, err = batch{sources: map[string]pipeline.Source{".docx": pipeline.SourceDOCX}}.collect([]string{dir}, true)
	assert.ErrorContains(t, err, "no .docx files found")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, pipeline.Summary{
		Processed: 1,
		Failed:    1,
		RunID:     7,
		Documents: []types.DocumentReport{
			{
				Path:       "a.tex",
				Output:     "a.md",
				Status:     types.StatusOK,
				Resolved:   []types.ResolvedCitation{{Key: "x"}},
				Unresolved: []types.UnresolvedCitation{{Key: "ghost"}},
			},
			{Path: "b.tex", Status: types.StatusFailed, Error: "pandoc missing"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "converted a.md (1 resolved, 1 unresolved)")
	assert.Contains(t, out, "failed    b.tex: pandoc missing")
	assert.Contains(t, out, "processed: 1, failed: 1")
	assert.Contains(t, out, "unresolved keys: ghost")
	assert.Contains(t, out, "recorded as run 7")
}
