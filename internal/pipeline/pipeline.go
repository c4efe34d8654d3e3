// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a batch of documents through conversion, cleanup
// and citation rewriting, writes the results with backups, and records the
// run in the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kbconvert/internal/bibliography"
	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/internal/convert"
	"github.com/pdiddy/kbconvert/pkg/types"
)

// DefaultWorkers bounds concurrent documents when Options.Workers is unset.
const DefaultWorkers = 4

// Source identifies where a document came from, which decides its steps.
type Source string

const (
	// SourceLaTeX converts a .tex manuscript to Markdown next to it.
	SourceLaTeX Source = "latex"

	// SourceDOCX converts a Word document to Markdown next to it.
	SourceDOCX Source = "docx"

	// SourceNotion cleans a Notion Markdown export in place.
	SourceNotion Source = "notion"

	// SourceGDocs cleans Markdown imported from a fixed Google Docs export.
	SourceGDocs Source = "gdocs"

	// SourceGDocsHTML fixes styling in a Google Docs HTML export in place.
	SourceGDocsHTML Source = "gdocs-html"

	// SourceMarkdown only rewrites citations.
	SourceMarkdown Source = "cite"
)

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceLaTeX, SourceDOCX, SourceNotion, SourceGDocs, SourceGDocsHTML, SourceMarkdown:
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Document is one input file.
type Document struct {
	Path   string
	Source Source
}

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, run *types.RunReport) error
}

// ErrNoMaster is returned for a citation-only document when the run has
// no master bibliography.
var ErrNoMaster = errors.New("citation rewriting needs a master bibliography")

// Options configures a Pipeline.
type Options struct {
	// Command names the run in the ledger (e.g. "latex").
	Command string

	// Master is the master bibliography path, recorded with the run.
	Master string

	// Workers bounds how many documents are processed at once.
	Workers int

	// To is the pandoc output format for converted sources.
	To string

	// ExtraArgs are passed to every pandoc call.
	ExtraArgs []string

	// ImageFolders are searched when fixing extensionless figure links.
	ImageFolders []string

	// Citeproc passes the document's .bib file to pandoc with --citeproc.
	Citeproc bool

	// DryRun processes documents without writing them.
	DryRun bool
}

// Pipeline processes documents. Converter, Bibliographies and Recorder may
// be nil when no document needs them.
type Pipeline struct {
	converter convert.Converter
	bibs      *Bibliographies
	recorder  Recorder
	logger    *zap.Logger
	opts      Options
}

// New creates a Pipeline.
func New(conv convert.Converter, bibs *Bibliographies, rec Recorder, logger *zap.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Pipeline{
		converter: conv,
		bibs:      bibs,
		recorder:  rec,
		logger:    logger,
		opts:      opts,
	}
}

// Summary holds the outcome of a run.
type Summary struct {
	Processed int
	Failed    int

	// RunID is the ledger ID, zero when the run was not recorded.
	RunID int64

	// Documents are in input order.
	Documents []types.DocumentReport
}

// Total returns the number of documents handled.
func (s Summary) Total() int {
	return s.Processed + s.Failed
}

// HasFailures reports whether any document failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Unresolved returns the distinct unresolved keys across all documents.
func (s Summary) Unresolved() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, d := range s.Documents {
		for _, u := range d.Unresolved {
			if !seen[u.Key] {
				seen[u.Key] = true
				keys = append(keys, u.Key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Run processes docs concurrently. A failing document is reported in the
// summary and never stops the others; Run itself fails only when ctx is
// cancelled or the ledger cannot record the run.
func (p *Pipeline) Run(ctx context.Context, docs []Document) (Summary, error) {
	started := time.Now()
	reports := make([]types.DocumentReport, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, doc := range docs {
		g.Go(func() error {
			reports[i] = p.process(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Documents: reports}
	for _, r := range reports {
		if r.Status == types.StatusFailed {
			summary.Failed++
		} else {
			summary.Processed++
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	p.logger.Info("run finished",
		zap.String("command", p.opts.Command),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Strings("unresolved", summary.Unresolved()),
		zap.Duration("elapsed", time.Since(started)),
	)

	if p.recorder == nil || p.opts.DryRun {
		return summary, nil
	}
	run := &types.RunReport{
		StartedAt: started,
		Command:   p.opts.Command,
		Master:    p.opts.Master,
		Documents: reports,
	}
	if p.bibs != nil {
		run.Mode = string(p.bibs.Mode())
	}
	if err := p.recorder.Record(ctx, run); err != nil {
		return summary, fmt.Errorf("recording run: %w", err)
	}
	summary.RunID = run.ID
	return summary, nil
}

// process runs one document and turns any error into a failed report.
func (p *Pipeline) process(ctx context.Context, doc Document) types.DocumentReport {
	rep := types.DocumentReport{Path: doc.Path, Source: string(doc.Source), Status: types.StatusOK}
	log := p.logger.With(zap.String("path", doc.Path), zap.String("source", string(doc.Source)))

	if err := ctx.Err(); err != nil {
		rep.Status = types.StatusFailed
		rep.Error = err.Error()
		return rep
	}

	stats, err := p.runSteps(ctx, doc, &rep, log)
	if err != nil {
		rep.Status = types.StatusFailed
		rep.Error = err.Error()
		log.Error("document failed", zap.Error(err))
		return rep
	}

	rep.Resolved = stats.Resolved
	rep.Unresolved = stats.Unresolved
	rep.Warnings = stats.Warnings
	for _, w := range stats.Warnings {
		log.Warn(string(w.Kind), zap.String("key", w.Key), zap.Int("line", w.Line+1), zap.String("message", w.Message))
	}
	log.Info("document processed",
		zap.String("output", rep.Output),
		zap.Int("resolved", stats.ResolvedCount()),
		zap.Int("unresolved", stats.UnresolvedCount()),
	)
	return rep
}

// rewriteCitations applies citation processing when a bibliography is
// loaded. required makes a missing bibliography an error.
func (p *Pipeline) rewriteCitations(path string, lines []string, required bool) ([]string, citation.Stats, error) {
	if p.bibs == nil {
		if required {
			return nil, citation.Stats{}, ErrNoMaster
		}
		return lines, citation.Stats{}, nil
	}
	r, err := p.bibs.RewriterFor(path)
	if err != nil {
		return nil, citation.Stats{}, err
	}
	out, stats := citation.Process(lines, r)
	return out, stats, nil
}

// linkMode reports whether citations become hyperlinks in this run.
func (p *Pipeline) linkMode() bool {
	return p.bibs == nil || p.bibs.Mode() == citation.ModeLink
}

// convertOptions builds the pandoc options for doc.
func (p *Pipeline) convertOptions(doc Document, from string) (convert.Options, error) {
	opts := convert.Options{From: from, To: p.opts.To, ExtraArgs: p.opts.ExtraArgs}
	if !p.opts.Citeproc {
		return opts, nil
	}
	var bib string
	if p.bibs != nil {
		bib = p.bibs.DocumentBibliography(doc.Path)
	}
	if bib == "" {
		found, err := bibliography.FindDocumentBibliography(filepath.Dir(doc.Path))
		if err != nil {
			return opts, fmt.Errorf("citeproc: %w", err)
		}
		bib = found
	}
	opts.Bibliography = bib
	return opts, nil
}
