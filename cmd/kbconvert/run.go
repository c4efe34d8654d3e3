// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/internal/convert"
	"github.com/pdiddy/kbconvert/internal/ledger"
	"github.com/pdiddy/kbconvert/internal/pipeline"
	"github.com/pdiddy/kbconvert/internal/workspace"
)

const defaultMode = citation.ModeLink

// batch describes how a document subcommand picks and processes files.
type batch struct {
	command string

	// sources maps a lower-case file extension to its pipeline source.
	sources map[string]pipeline.Source

	// needsMaster makes --master mandatory.
	needsMaster bool
}

func (b batch) exts() []string {
	exts := make([]string, 0, len(b.sources))
	for ext := range b.sources {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (b batch) needsConverter() bool {
	for _, src := range b.sources {
		if src == pipeline.SourceLaTeX || src == pipeline.SourceDOCX {
			return true
		}
	}
	return false
}

// collect expands the arguments into documents. Arguments may be files or
// directories; no arguments means the current directory.
func (b batch) collect(args []string, recursive bool) ([]pipeline.Document, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var docs []pipeline.Document
	for _, arg := range args {
		files, err := workspace.FindFiles(arg, recursive, b.exts()...)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if strings.HasSuffix(f, pipeline.CleanedSuffix) {
				continue
			}
			src := b.sources[strings.ToLower(filepath.Ext(f))]
			docs = append(docs, pipeline.Document{Path: f, Source: src})
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", strings.Join(b.exts(), "/"), strings.Join(args, ", "))
	}
	return docs, nil
}

// runBatch is the shared body of the document subcommands.
func runBatch(cmd *cobra.Command, args []string, b batch) error {
	cfg := loadRunConfig()

	docs, err := b.collect(args, cfg.Recursive)
	if err != nil {
		return err
	}

	var conv convert.Converter
	if b.needsConverter() {
		runner, err := convert.NewRunner(string(cfg.Conversion.Backend), cfg.Conversion.Pandoc, cfg.Conversion.Image)
		if err != nil {
			return err
		}
		conv = convert.NewPandoc(runner)
	}

	var bibs *pipeline.Bibliographies
	switch {
	case cfg.Bibliography.Master != "":
		mode, err := citation.ParseMode(cfg.Citation.Mode)
		if err != nil {
			return err
		}
		bibs, err = pipeline.LoadBibliographies(cfg.Bibliography.Master, cfg.Bibliography.Document, mode, docs)
		if err != nil {
			return err
		}
		for _, w := range bibs.Warnings {
			logger.Warn(string(w.Kind), zap.String("key", w.Key), zap.String("message", w.Message))
		}
	case b.needsMaster:
		return fmt.Errorf("%s needs a master bibliography (--master or bibliography.master)", b.command)
	}

	var rec pipeline.Recorder
	if cfg.Ledger.Enabled && !cfg.DryRun {
		l, err := ledger.Open(cfg.Ledger)
		if err != nil {
			return err
		}
		defer l.Close()
		rec = l
	}

	p := pipeline.New(conv, bibs, rec, logger, pipeline.Options{
		Command:      b.command,
		Master:       cfg.Bibliography.Master,
		Workers:      cfg.Workers,
		To:           cfg.Conversion.To,
		ExtraArgs:    cfg.Conversion.ExtraArgs,
		ImageFolders: cfg.Conversion.ImageFolders,
		Citeproc:     cfg.Conversion.Citeproc,
		DryRun:       cfg.DryRun,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := p.Run(ctx, docs)
	printSummary(cmd.OutOrStdout(), summary)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed", summary.Failed)
	}
	return nil
}

func printSummary(w io.Writer, s pipeline.Summary) {
	for _, d := range s.Documents {
		if d.Error != "" {
			fmt.Fprintf(w, "failed    %s: %s\n", d.Path, d.Error)
			continue
		}
		fmt.Fprintf(w, "%-9s %s (%d resolved, %d unresolved)\n",
			"converted", d.Output, len(d.Resolved), len(d.Unresolved))
	}
	fmt.Fprintf(w, "\nprocessed: %d, failed: %d\n", s.Processed, s.Failed)
	if keys := s.Unresolved(); len(keys) > 0 {
		fmt.Fprintf(w, "unresolved keys: %s\n", strings.Join(keys, ", "))
	}
	if s.RunID > 0 {
		fmt.Fprintf(w, "recorded as run %d\n", s.RunID)
	}
}
