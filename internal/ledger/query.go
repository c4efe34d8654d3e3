// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// UnresolvedKey aggregates every occurrence of one unresolved citation key
// within a run.
type UnresolvedKey struct {
	Key         string   `json:"key" yaml:"key"`
	Occurrences int      `json:"occurrences" yaml:"occurrences"`
	Documents   []string `json:"documents" yaml:"documents"`
}

// Unresolved lists the unresolved keys of a run, sorted by key. A zero
// runID selects the latest run.
func (l *Ledger) Unresolved(ctx context.Context, runID int64) ([]UnresolvedKey, error) {
	runID, err := l.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT c.key, d.path, count(*)
		 FROM citations c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.run_id = ? AND c.resolved = 0
		 GROUP BY c.key, d.path
		 ORDER BY c.key, d.seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying unresolved citations: %w", err)
	}
	defer rows.Close()

	var keys []UnresolvedKey
	for rows.Next() {
		var key, path string
		var n int
		if err := rows.Scan(&key, &path, &n); err != nil {
			return nil, fmt.Errorf("scanning unresolved citation: %w", err)
		}
		if len(keys) == 0 || keys[len(keys)-1].Key != key {
			keys = append(keys, UnresolvedKey{Key: key})
		}
		last := &keys[len(keys)-1]
		last.Occurrences += n
		last.Documents = append(last.Documents, path)
	}
	return keys, rows.Err()
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID         int64     `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Command    string    `json:"command" yaml:"command"`
	Documents  int       `json:"documents" yaml:"documents"`
	Failed     int       `json:"failed" yaml:"failed"`
	Unresolved int       `json:"unresolved" yaml:"unresolved"`
}

// Runs lists the most recent runs, newest first. limit <= 0 lists all.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, r.command,
			(SELECT count(*) FROM documents d WHERE d.run_id = r.id),
			(SELECT count(*) FROM documents d WHERE d.run_id = r.id AND d.status = ?),
			(SELECT count(*) FROM citations c JOIN documents d ON d.id = c.document_id
			 WHERE d.run_id = r.id AND c.resolved = 0)
		 FROM runs r
		 ORDER BY r.id DESC
		 LIMIT ?`, string(types.StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		if err := rows.Scan(&s.ID, &started, &s.Command, &s.Documents, &s.Failed, &s.Unresolved); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Run loads a full run report. A zero runID selects the latest run.
func (l *Ledger) Run(ctx context.Context, runID int64) (types.RunReport, error) {
	runID, err := l.resolveRun(ctx, runID)
	if err != nil {
		return types.RunReport{}, err
	}

	run := types.RunReport{ID: runID}
	var started string
	err = l.db.QueryRowContext(ctx,
		`SELECT started_at, command, mode, master FROM runs WHERE id = ?`, runID,
	).Scan(&started, &run.Command, &run.Mode, &run.Master)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunReport{}, fmt.Errorf("run %d: %w", runID, ErrNoRuns)
	}
	if err != nil {
		return types.RunReport{}, fmt.Errorf("querying run %d: %w", runID, err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, path, source, status, error, output, backup FROM documents
		 WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("querying documents: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		var doc types.DocumentReport
		var status string
		if err := rows.Scan(&id, &doc.Path, &doc.Source, &status, &doc.Error, &doc.Output, &doc.Backup); err != nil {
			rows.Close()
			return types.RunReport{}, fmt.Errorf("scanning document: %w", err)
		}
		doc.Status = types.DocumentStatus(status)
		ids = append(ids, id)
		run.Documents = append(run.Documents, doc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return types.RunReport{}, err
	}

	for i, id := range ids {
		if err := l.loadCitations(ctx, id, &run.Documents[i]); err != nil {
			return types.RunReport{}, err
		}
		if err := l.loadWarnings(ctx, id, &run.Documents[i]); err != nil {
			return types.RunReport{}, err
		}
	}
	return run, nil
}

func (l *Ledger) loadCitations(ctx context.Context, docID int64, doc *types.DocumentReport) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT line, key, replacement, resolved FROM citations
		 WHERE document_id = ? ORDER BY rowid`, docID)
	if err != nil {
		return fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line        int
			key, repl   string
			resolvedInt int
		)
		if err := rows.Scan(&line, &key, &repl, &resolvedInt); err != nil {
			return fmt.Errorf("scanning citation: %w", err)
		}
		if resolvedInt == 1 {
			doc.Resolved = append(doc.Resolved, types.ResolvedCitation{Line: line, Key: key, Replacement: repl})
		} else {
			doc.Unresolved = append(doc.Unresolved, types.UnresolvedCitation{Line: line, Key: key})
		}
	}
	return rows.Err()
}

func (l *Ledger) loadWarnings(ctx context.Context, docID int64, doc *types.DocumentReport) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT kind, key, line, message FROM warnings
		 WHERE document_id = ? ORDER BY rowid`, docID)
	if err != nil {
		return fmt.Errorf("querying warnings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w types.Warning
		var kind string
		if err := rows.Scan(&kind, &w.Key, &w.Line, &w.Message); err != nil {
			return fmt.Errorf("scanning warning: %w", err)
		}
		w.Kind = types.WarningKind(kind)
		doc.Warnings = append(doc.Warnings, w)
	}
	return rows.Err()
}
