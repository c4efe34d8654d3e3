// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// WarningKind classifies a non-fatal problem found while indexing or
// rewriting. None of these stop a run; they are collected for the report.
type WarningKind string

const (
	WarnUnresolvedCitation  WarningKind = "unresolved-citation"
	WarnMissingIdentifier   WarningKind = "missing-identifier"
	WarnMissingYear         WarningKind = "missing-year"
	WarnMissingAuthor       WarningKind = "missing-author"
	WarnDuplicateIdentifier WarningKind = "duplicate-identifier"
	WarnDuplicateKey        WarningKind = "duplicate-key"
)

// Warning is one recoverable problem tied to a citation key.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Key     string      `json:"key" yaml:"key"`
	Message string      `json:"message" yaml:"message"`

	// Line is the zero-based line index, -1 when not tied to a line.
	Line int `json:"line" yaml:"line"`
}

func (w Warning) String() string {
	if w.Line >= 0 {
		return fmt.Sprintf("%s: @%s (line %d): %s", w.Kind, w.Key, w.Line+1, w.Message)
	}
	return fmt.Sprintf("%s: @%s: %s", w.Kind, w.Key, w.Message)
}

// ResolvedCitation records one rewritten citation.
type ResolvedCitation struct {
	Line int    `json:"line" yaml:"line"`
	Key  string `json:"key" yaml:"key"`

	// Replacement is the text that replaced @key (hyperlink, label, or new key).
	Replacement string `json:"replacement" yaml:"replacement"`
}

// UnresolvedCitation records one citation left unrewritten.
type UnresolvedCitation struct {
	Line int    `json:"line" yaml:"line"`
	Key  string `json:"key" yaml:"key"`
}

// DocumentStatus is the outcome of processing one document.
type DocumentStatus string

const (
	StatusOK     DocumentStatus = "ok"
	StatusFailed DocumentStatus = "failed"
)

// DocumentReport is the outcome of one document in a run.
type DocumentReport struct {
	Path   string         `json:"path" yaml:"path"`
	Source string         `json:"source" yaml:"source"`
	Status DocumentStatus `json:"status" yaml:"status"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`

	// Output is the file written, which differs from Path for converted sources.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Backup is the path of the pre-run copy, empty when nothing was written.
	Backup string `json:"backup,omitempty" yaml:"backup,omitempty"`

	Resolved   []ResolvedCitation   `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Unresolved []UnresolvedCitation `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Warnings   []Warning            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// RunReport is one invocation over a batch of documents.
type RunReport struct {
	// ID is assigned by the ledger; zero until recorded.
	ID        int64            `json:"id" yaml:"id"`
	StartedAt time.Time        `json:"started_at" yaml:"started_at"`
	Command   string           `json:"command" yaml:"command"`
	Mode      string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	Master    string           `json:"master,omitempty" yaml:"master,omitempty"`
	Documents []DocumentReport `json:"documents" yaml:"documents"`
}

// Failed returns the number of documents that did not complete.
func (r RunReport) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Status == StatusFailed {
			n++
		}
	}
	return n
}
