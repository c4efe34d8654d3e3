// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records conversion runs in a SQLite database so unresolved
// citations can be reviewed after the fact.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// DefaultPath is the database location when none is configured.
const DefaultPath = ".kbconvert/ledger.db"

// ErrNoRuns is returned when the latest run is requested from an empty ledger.
var ErrNoRuns = errors.New("no runs recorded")

// Ledger manages the run database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database, creating its directory and
// schema as needed.
func Open(cfg types.LedgerConfig) (*Ledger, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			command TEXT NOT NULL,
			mode TEXT,
			master TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			source TEXT,
			status TEXT NOT NULL,
			error TEXT,
			output TEXT,
			backup TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			line INTEGER NOT NULL,
			key TEXT NOT NULL,
			replacement TEXT,
			resolved INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			key TEXT,
			line INTEGER,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_document_id ON citations(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_key ON citations(key)`,
		`CREATE INDEX IF NOT EXISTS idx_warnings_document_id ON warnings(document_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and all its documents in one transaction and sets
// run.ID.
func (l *Ledger) Record(ctx context.Context, run *types.RunReport) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, command, mode, master) VALUES (?, ?, ?, ?)`,
		started.UTC().Format(time.RFC3339Nano), run.Command, run.Mode, run.Master,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}

	citeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citations (document_id, line, key, replacement, resolved) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing citation insert: %w", err)
	}
	defer citeStmt.Close()

	warnStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO warnings (document_id, kind, key, line, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing warning insert: %w", err)
	}
	defer warnStmt.Close()

	for i, doc := range run.Documents {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (run_id, seq, path, source, status, error, output, backup)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, doc.Path, doc.Source, string(doc.Status), doc.Error, doc.Output, doc.Backup,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.Path, err)
		}
		docID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading document id: %w", err)
		}

		for _, c := range doc.Resolved {
			if _, err := citeStmt.ExecContext(ctx, docID, c.Line, c.Key, c.Replacement, 1); err != nil {
				return fmt.Errorf("inserting citation %s: %w", c.Key, err)
			}
		}
		for _, c := range doc.Unresolved {
			if _, err := citeStmt.ExecContext(ctx, docID, c.Line, c.Key, "", 0); err != nil {
				return fmt.Errorf("inserting citation %s: %w", c.Key, err)
			}
		}
		for _, w := range doc.Warnings {
			if _, err := warnStmt.ExecContext(ctx, docID, string(w.Kind), w.Key, w.Line, w.Message); err != nil {
				return fmt.Errorf("inserting warning: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	run.ID = runID
	return nil
}

// LatestRun returns the ID of the most recent run.
func (l *Ledger) LatestRun(ctx context.Context) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRuns
	}
	if err != nil {
		return 0, fmt.Errorf("querying latest run: %w", err)
	}
	return id, nil
}

// resolveRun maps a zero run ID to the latest run.
func (l *Ledger) resolveRun(ctx context.Context, runID int64) (int64, error) {
	if runID > 0 {
		return runID, nil
	}
	return l.LatestRun(ctx)
}
