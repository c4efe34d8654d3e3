// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns LaTeX, DOCX and HTML documents into Markdown with
// pandoc, run either from PATH or inside a container image.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEmptyOutput is returned when pandoc succeeds but writes nothing.
var ErrEmptyOutput = errors.New("converter produced empty output")

// Options controls one conversion.
type Options struct {
	// From is the pandoc input format. Empty means detect from the file
	// extension.
	From string

	// To is the pandoc output format, "markdown" when empty.
	To string

	// Bibliography, when set, enables --citeproc with this .bib file.
	Bibliography string

	// ExtraArgs are appended to the pandoc command line.
	ExtraArgs []string
}

// Converter transforms a source document into Markdown text.
type Converter interface {
	Convert(ctx context.Context, src string, opts Options) (string, error)
}

// FormatFor returns the pandoc reader for a file extension, or "" when
// the extension is not a convertible document.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tex", ".latex":
		return "latex"
	case ".docx":
		return "docx"
	case ".html", ".htm":
		return "html"
	case ".odt":
		return "odt"
	default:
		return ""
	}
}

// Pandoc implements Converter by invoking pandoc through a Runner.
type Pandoc struct {
	runner Runner
}

// NewPandoc returns a pandoc converter backed by r.
func NewPandoc(r Runner) *Pandoc {
	return &Pandoc{runner: r}
}

// Convert runs pandoc on src. Paths are passed relative to the document
// directory, which is the working directory of the run, so the same
// command works for local and containerised pandoc.
func (p *Pandoc) Convert(ctx context.Context, src string, opts Options) (string, error) {
	dir := filepath.Dir(src)
	args, err := pandocArgs(src, dir, opts)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := p.runner.Run(ctx, dir, args, &out); err != nil {
		return "", fmt.Errorf("converting %s with pandoc: %w", src, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%s: %w", src, ErrEmptyOutput)
	}
	return out.String(), nil
}

func pandocArgs(src, dir string, opts Options) ([]string, error) {
	from := opts.From
	if from == "" {
		from = FormatFor(src)
	}
	if from == "" {
		return nil, fmt.Errorf("cannot detect input format of %s", src)
	}
	to := opts.To
	if to == "" {
		to = "markdown"
	}

	args := []string{"--wrap=none", "-f", from, "-t", to}
	if opts.Bibliography != "" {
		bib, err := relativeTo(dir, opts.Bibliography)
		if err != nil {
			return nil, err
		}
		args = append(args, "--citeproc", "--bibliography="+bib)
	}
	args = append(args, opts.ExtraArgs...)
	return append(args, filepath.Base(src)), nil
}

// relativeTo expresses path relative to dir. Files outside dir are not
// visible to a containerised pandoc, so they are rejected.
func relativeTo(dir, path string) (string, error) {
	if !filepath.IsAbs(path) && !strings.Contains(path, string(filepath.Separator)) {
		return path, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("bibliography %s must live in the document directory %s", path, dir)
	}
	return filepath.ToSlash(rel), nil
}
