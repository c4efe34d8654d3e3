// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/kbconvert/internal/bibliography"
	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/internal/cleanup"
	"github.com/pdiddy/kbconvert/internal/convert"
	"github.com/pdiddy/kbconvert/pkg/types"
)

const masterFixture = `{
  "items": [
    {
      "citationKey": "smithMachineLearning2020",
      "itemType": "journalArticle",
      "creators": [{"lastName": "Smith"}],
      "date": "2020-03-01",
      "DOI": "10.1/ml"
    }
  ]
}`

const bibFixture = `@article{smith2020,
  author = {Smith, Jane},
  year = {2020},
  doi = {10.1/ml}
}
`

const smithLink = "[Smith (2020)](https://doi.org/10.1/ml)"

// fakeConverter returns canned Markdown and records what it was given.
type fakeConverter struct {
	mu     sync.Mutex
	output string
	err    error
	srcs   []string
	inputs []string
	opts   []convert.Options
}

func (f *fakeConverter) Convert(_ context.Context, src string, opts convert.Options) (string, error) {
	data, _ := os.ReadFile(src)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.srcs = append(f.srcs, src)
	f.inputs = append(f.inputs, string(data))
	f.opts = append(f.opts, opts)
	return f.output, f.err
}

type fakeRecorder struct {
	runs []*types.RunReport
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run *types.RunReport) error {
	if f.err != nil {
		return f.err
	}
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return nil
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("gdocs-html")
	require.NoError(t, err)
	assert.Equal(t, SourceGDocsHTML, src)

	_, err = ParseSource("pdf")
	assert.Error(t, err)
}

func TestRunLaTeX(t *testing.T) {
	root := t.TempDir()
	master := writeFile(t, filepath.Join(root, "master.json"), masterFixture)
	dir := filepath.Join(root, "paper")
	tex := writeFile(t, filepath.Join(dir, "paper.tex"), "% draft note\n\\section{Intro}\nAs shown \\cite{smith2020,ghost}.\n")
	writeFile(t, filepath.Join(dir, "refs.bib"), bibFixture)
	writeFile(t, filepath.Join(dir, "figures", "plot.png"), "png")
	writeFile(t, filepath.Join(dir, "paper.md"), "stale\n")

	conv := &fakeConverter{output: "# Intro\n\nAs shown [@smith2020; @ghost].\n\n" +
		`![Plot](figures/plot){width="0.8\columnwidth"}` + "\n"}
	docs := []Document{{Path: tex, Source: SourceLaTeX}}
	bibs, err := LoadBibliographies(master, "", citation.ModeLink, docs)
	require.NoError(t, err)
	rec := &fakeRecorder{}

	p := New(conv, bibs, rec, zaptest.NewLogger(t), Options{
		Command:      "latex",
		Master:       master,
		To:           "markdown",
		ImageFolders: []string{"figures"},
	})
	summary, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.False(t, summary.HasFailures())
	assert.Equal(t, []string{"ghost"}, summary.Unresolved())

	require.Len(t, conv.srcs, 1)
	assert.True(t, strings.HasSuffix(conv.srcs[0], CleanedSuffix))
	assert.NotContains(t, conv.inputs[0], "draft note")
	assert.Equal(t, "latex", conv.opts[0].From)
	assert.NoFileExists(t, conv.srcs[0], "cleaned copy is removed")

	out := filepath.Join(dir, "paper.md")
	want := "# Intro\n\nAs shown " + smithLink + "; @ghost.\n\n![Plot](figures/plot.png)\n"
	assert.Equal(t, want, readFile(t, out))
	assert.Equal(t, "stale\n", readFile(t, out+".bak"))

	doc := summary.Documents[0]
	assert.Equal(t, out, doc.Output)
	assert.Equal(t, out+".bak", doc.Backup)
	assert.Equal(t, []types.UnresolvedCitation{{Line: 2, Key: "ghost"}}, doc.Unresolved)
	require.Len(t, doc.Resolved, 1)
	assert.Equal(t, "smith2020", doc.Resolved[0].Key)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, int64(1), summary.RunID)
	assert.Equal(t, "latex", rec.runs[0].Command)
	assert.Equal(t, "link", rec.runs[0].Mode)
}

func TestRunRekeyKeepsBrackets(t *testing.T) {
	dir := t.TempDir()
	master, err := bibliography.LoadMaster(writeFile(t, filepath.Join(dir, "master.json"), masterFixture))
	require.NoError(t, err)
	document, err := bibliography.LoadDocument(writeFile(t, filepath.Join(dir, "refs.bib"), bibFixture))
	require.NoError(t, err)
	bibs := NewBibliographies(bibliography.Build(master, document), citation.ModeRekey)

	md := writeFile(t, filepath.Join(dir, "notes.md"), "See [@smith2020; @ghost].\n")
	p := New(nil, bibs, nil, zaptest.NewLogger(t), Options{Command: "cite"})
	summary, err := p.Run(context.Background(), []Document{{Path: md, Source: SourceMarkdown}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, "See [@smithMachineLearning2020; @ghost].\n", readFile(t, md))
}

func TestRunContinuesAfterFailure(t *testing.T) {
	root := t.TempDir()
	master := writeFile(t, filepath.Join(root, "master.json"), masterFixture)
	good := writeFile(t, filepath.Join(root, "a", "notes.md"), "Cited @smith2020 here.\n")
	writeFile(t, filepath.Join(root, "a", "refs.bib"), bibFixture)
	ambiguous := writeFile(t, filepath.Join(root, "b", "notes.md"), "Cited @smith2020 here.\n")
	writeFile(t, filepath.Join(root, "b", "one.bib"), bibFixture)
	writeFile(t, filepath.Join(root, "b", "two.bib"), bibFixture)
	tex := writeFile(t, filepath.Join(root, "a", "paper.tex"), "text\n")

	docs := []Document{
		{Path: tex, Source: SourceLaTeX},
		{Path: good, Source: SourceMarkdown},
		{Path: ambiguous, Source: SourceMarkdown},
		{Path: filepath.Join(root, "a", "missing.md"), Source: SourceMarkdown},
	}
	bibs, err := LoadBibliographies(master, "", citation.ModeLink, docs)
	require.NoError(t, err)

	conv := &fakeConverter{err: errors.New("pandoc: exit status 64")}
	p := New(conv, bibs, nil, zaptest.NewLogger(t), Options{Command: "mixed", Workers: 2})
	summary, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 4, summary.Total())

	statuses := make([]types.DocumentStatus, len(summary.Documents))
	for i, d := range summary.Documents {
		statuses[i] = d.Status
	}
	assert.Equal(t, []types.DocumentStatus{types.StatusFailed, types.StatusOK, types.StatusFailed, types.StatusFailed}, statuses)
	assert.Contains(t, summary.Documents[0].Error, "exit status 64")
	assert.Contains(t, summary.Documents[2].Error, "more than one document bibliography")

	assert.Equal(t, "Cited "+smithLink+" here.\n", readFile(t, good))
	assert.Equal(t, "Cited @smith2020 here.\n", readFile(t, ambiguous))
}

func TestRunWithoutBibliography(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, filepath.Join(dir, "notes.md"), "@a\n")
	notion := writeFile(t, filepath.Join(dir, "page.md"),
		"> quoted @a\n[![Cap](Page/img.png)](%7Banchor%7D)\n")

	p := New(nil, nil, nil, zaptest.NewLogger(t), Options{})
	summary, err := p.Run(context.Background(), []Document{
		{Path: md, Source: SourceMarkdown},
		{Path: notion, Source: SourceNotion},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, summary.Documents[0].Status)
	assert.Equal(t, ErrNoMaster.Error(), summary.Documents[0].Error)
	assert.Equal(t, types.StatusOK, summary.Documents[1].Status)
	assert.Equal(t, "quoted @a\n![Cap](Page/img.png)\n", readFile(t, notion))
}

func TestRunGoogleDocs(t *testing.T) {
	dir := t.TempDir()
	q := cleanup.QuotePlaceholder
	md := writeFile(t, filepath.Join(dir, "doc.md"), q+" Quoted ****bold****\n\nafter\n")
	html := writeFile(t, filepath.Join(dir, "doc.html"),
		`<html><head><style>.c1{font-weight:700}</style></head><body><p><span class="c1">Strong</span></p></body></html>`)

	p := New(nil, nil, nil, zaptest.NewLogger(t), Options{})
	summary, err := p.Run(context.Background(), []Document{
		{Path: md, Source: SourceGDocs},
		{Path: html, Source: SourceGDocsHTML},
	})
	require.NoError(t, err)
	require.False(t, summary.HasFailures())

	assert.Equal(t, "> Quoted **bold**\n\nafter\n", readFile(t, md))
	assert.Contains(t, readFile(t, html), "**Strong**")
	assert.FileExists(t, html+".bak")
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, filepath.Join(dir, "page.md"), "> quoted\n")
	rec := &fakeRecorder{}

	p := New(nil, nil, rec, zaptest.NewLogger(t), Options{DryRun: true})
	summary, err := p.Run(context.Background(), []Document{{Path: page, Source: SourceNotion}})
	require.NoError(t, err)

	assert.Equal(t, page, summary.Documents[0].Output)
	assert.Empty(t, summary.Documents[0].Backup)
	assert.Equal(t, "> quoted\n", readFile(t, page))
	assert.NoFileExists(t, page+".bak")
	assert.Empty(t, rec.runs)
}

func TestRunRecorderFailure(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, filepath.Join(dir, "page.md"), "text\n")

	p := New(nil, nil, &fakeRecorder{err: errors.New("disk full")}, zaptest.NewLogger(t), Options{})
	summary, err := p.Run(context.Background(), []Document{{Path: page, Source: SourceNotion}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, summary.Processed)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, filepath.Join(dir, "page.md"), "> quoted\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(nil, nil, nil, zaptest.NewLogger(t), Options{})
	summary, err := p.Run(ctx, []Document{{Path: page, Source: SourceNotion}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "> quoted\n", readFile(t, page))
}

func TestLoadBibliographiesShared(t *testing.T) {
	root := t.TempDir()
	master := writeFile(t, filepath.Join(root, "master.json"), masterFixture)
	bib := writeFile(t, filepath.Join(root, "refs", "library.bib"), bibFixture)

	bibs, err := LoadBibliographies(master, bib, citation.ModeLink, nil)
	require.NoError(t, err)

	r, err := bibs.RewriterFor(filepath.Join(root, "anywhere", "doc.md"))
	require.NoError(t, err)
	assert.Equal(t, "see "+smithLink, r.RewriteLine("see @smith2020").Line)
	assert.Equal(t, bib, bibs.DocumentBibliography(filepath.Join(root, "anywhere", "doc.md")))

	_, err = LoadBibliographies(filepath.Join(root, "nope.json"), "", citation.ModeLink, nil)
	assert.ErrorIs(t, err, bibliography.ErrBibliographyLoad)
}

func TestRunMasterOnlyVault(t *testing.T) {
	root := t.TempDir()
	master := writeFile(t, filepath.Join(root, "master.json"), masterFixture)
	note := writeFile(t, filepath.Join(root, "vault", "note.md"),
		"see @smithMachineLearning2020.\nAs shown [@smithMachineLearning2020; @ghost].\n")

	docs := []Document{{Path: note, Source: SourceMarkdown}}
	bibs, err := LoadBibliographies(master, "", citation.ModeLink, docs)
	require.NoError(t, err)
	assert.Empty(t, bibs.DocumentBibliography(note))

	p := New(nil, bibs, nil, zaptest.NewLogger(t), Options{Command: "cite"})
	summary, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	require.False(t, summary.HasFailures(), summary.Documents[0].Error)
	assert.Equal(t, "see "+smithLink+".\nAs shown "+smithLink+"; @ghost.\n", readFile(t, note))
	assert.Equal(t, []string{"ghost"}, summary.Unresolved())
}

func TestRunCiteproc(t *testing.T) {
	root := t.TempDir()
	withBib := filepath.Join(root, "paper")
	tex := writeFile(t, filepath.Join(withBib, "paper.tex"), "text\n")
	bib := writeFile(t, filepath.Join(withBib, "refs.bib"), bibFixture)
	docx := writeFile(t, filepath.Join(root, "draft", "draft.docx"), "docx")

	conv := &fakeConverter{output: "converted\n"}
	p := New(conv, nil, nil, zaptest.NewLogger(t), Options{Command: "latex", Citeproc: true})
	summary, err := p.Run(context.Background(), []Document{
		{Path: tex, Source: SourceLaTeX},
		{Path: docx, Source: SourceDOCX},
	})
	require.NoError(t, err)

	require.Len(t, conv.opts, 1)
	assert.Equal(t, bib, conv.opts[0].Bibliography)
	assert.Equal(t, types.StatusOK, summary.Documents[0].Status)
	assert.Equal(t, types.StatusFailed, summary.Documents[1].Status)
	assert.Contains(t, summary.Documents[1].Error, "citeproc")
}
