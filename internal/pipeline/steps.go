// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/internal/cleanup"
	"github.com/pdiddy/kbconvert/internal/gdocs"
	"github.com/pdiddy/kbconvert/internal/workspace"
	"github.com/pdiddy/kbconvert/pkg/types"
)

// ErrNoConverter is returned for a source that needs pandoc when the
// pipeline has none.
var ErrNoConverter = errors.New("no document converter configured")

// CleanedSuffix names the comment-free copy of a .tex file handed to pandoc.
// It is removed after conversion.
const CleanedSuffix = ".clean.tex"

func (p *Pipeline) runSteps(ctx context.Context, doc Document, rep *types.DocumentReport, log *zap.Logger) (citation.Stats, error) {
	switch doc.Source {
	case SourceLaTeX:
		return p.latex(ctx, doc, rep, log)
	case SourceDOCX:
		return p.docx(ctx, doc, rep)
	case SourceNotion:
		return p.markdown(doc, rep, cleanup.CleanNotion, false)
	case SourceGDocs:
		return p.markdown(doc, rep, cleanup.Chain(cleanup.ReplaceQuotePlaceholders, cleanup.DedupeStyling), false)
	case SourceMarkdown:
		return p.markdown(doc, rep, nil, true)
	case SourceGDocsHTML:
		return citation.Stats{}, p.gdocsHTML(doc, rep, log)
	default:
		return citation.Stats{}, fmt.Errorf("unknown source %q", doc.Source)
	}
}

// latex strips comments, converts with pandoc, repairs figure links and
// rewrites citations. The Markdown is written next to the .tex file.
func (p *Pipeline) latex(ctx context.Context, doc Document, rep *types.DocumentReport, log *zap.Logger) (citation.Stats, error) {
	if p.converter == nil {
		return citation.Stats{}, ErrNoConverter
	}
	text, latin1, err := workspace.ReadText(doc.Path)
	if err != nil {
		return citation.Stats{}, err
	}
	if latin1 {
		log.Debug("decoded as Latin-1")
	}

	cleaned := strings.Join(cleanup.RemoveCommentLines(citation.SplitLines(text)), "")
	tmp := strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path)) + CleanedSuffix
	if err := os.WriteFile(tmp, []byte(cleaned), 0o644); err != nil {
		return citation.Stats{}, fmt.Errorf("writing cleaned copy: %w", err)
	}
	defer os.Remove(tmp)

	opts, err := p.convertOptions(doc, "latex")
	if err != nil {
		return citation.Stats{}, err
	}
	md, err := p.converter.Convert(ctx, tmp, opts)
	if err != nil {
		return citation.Stats{}, err
	}

	dir := filepath.Dir(doc.Path)
	lines, fixes := cleanup.FixImageLinks(citation.SplitLines(md), dir, p.opts.ImageFolders, workspace.FindImage)
	for _, f := range fixes {
		log.Debug("image link fixed", zap.Int("line", f.Line+1), zap.String("after", strings.TrimSpace(f.After)))
	}
	lines = cleanup.RemoveWidthAttributes(lines)
	if p.linkMode() {
		lines = cleanup.UnbracketCitations(lines)
	}

	lines, stats, err := p.rewriteCitations(doc.Path, lines, false)
	if err != nil {
		return citation.Stats{}, err
	}
	return stats, p.write(markdownPath(doc.Path), lines, rep)
}

// docx converts a Word document and applies the DOCX cleanups.
func (p *Pipeline) docx(ctx context.Context, doc Document, rep *types.DocumentReport) (citation.Stats, error) {
	if p.converter == nil {
		return citation.Stats{}, ErrNoConverter
	}
	opts, err := p.convertOptions(doc, "docx")
	if err != nil {
		return citation.Stats{}, err
	}
	md, err := p.converter.Convert(ctx, doc.Path, opts)
	if err != nil {
		return citation.Stats{}, err
	}

	lines := cleanup.Chain(cleanup.CleanDOCX, cleanup.DedupeStyling)(citation.SplitLines(md))
	if p.linkMode() {
		lines = cleanup.UnbracketCitations(lines)
	}
	lines, stats, err := p.rewriteCitations(doc.Path, lines, false)
	if err != nil {
		return citation.Stats{}, err
	}
	return stats, p.write(markdownPath(doc.Path), lines, rep)
}

// markdown cleans a Markdown file in place. A nil clean step leaves the
// lines for citation rewriting alone. Citation groups lose their brackets
// only when a bibliography turns them into links.
func (p *Pipeline) markdown(doc Document, rep *types.DocumentReport, clean cleanup.Func, citationsRequired bool) (citation.Stats, error) {
	text, _, err := workspace.ReadText(doc.Path)
	if err != nil {
		return citation.Stats{}, err
	}
	lines := citation.SplitLines(text)
	if clean != nil {
		lines = clean(lines)
	}
	if p.bibs != nil && p.linkMode() {
		lines = cleanup.UnbracketCitations(lines)
	}
	lines, stats, err := p.rewriteCitations(doc.Path, lines, citationsRequired)
	if err != nil {
		return citation.Stats{}, err
	}
	return stats, p.write(doc.Path, lines, rep)
}

func (p *Pipeline) gdocsHTML(doc Document, rep *types.DocumentReport, log *zap.Logger) error {
	text, _, err := workspace.ReadText(doc.Path)
	if err != nil {
		return err
	}
	out, fixes, err := gdocs.Fix(strings.NewReader(text))
	if err != nil {
		return err
	}
	log.Debug("styles fixed",
		zap.Int("highlighted", fixes.Highlighted),
		zap.Int("italic", fixes.Italic),
		zap.Int("bold", fixes.Bold),
		zap.Int("quotes", fixes.Quotes),
	)
	return p.write(doc.Path, citation.SplitLines(out), rep)
}

// write stores lines at path with a backup of the previous content, unless
// the run is a dry run.
func (p *Pipeline) write(path string, lines []string, rep *types.DocumentReport) error {
	rep.Output = path
	if p.opts.DryRun {
		return nil
	}
	backup, err := workspace.WriteWithBackup(path, strings.Join(lines, ""))
	if err != nil {
		return err
	}
	rep.Backup = backup
	return nil
}

func markdownPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
}
