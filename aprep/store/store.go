package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/abstract-prep/aprep/corpus"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Run is one preprocessing run recorded in the store.
type Run struct {
	ID        uuid.UUID
	Source    string
	CreatedAt time.Time
}

// Store caches parsed splits and fitted artifacts in a libsql database.
type Store struct {
	db *sql.DB
}

// ConnectToDB opens a libsql database. Plain paths are opened as local files.
func ConnectToDB(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
		dsn = "file:" + dsn
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", dsn, err)
	}
	return db, nil
}

// Open connects to dsn and creates the schema when missing.
func Open(dsn string) (*Store, error) {
	db, err := ConnectToDB(dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	createTables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL,
			split TEXT NOT NULL,
			seq INTEGER NOT NULL,
			abstract_id TEXT,
			line_number INTEGER,
			total_lines INTEGER,
			target TEXT,
			text TEXT,
			PRIMARY KEY (run_id, split, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			doc BLOB,
			PRIMARY KEY (run_id, name)
		)`,
	}
	for _, query := range createTables {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, "INSERT INTO runs (id, source, created_at) VALUES (?, ?, ?)",
		id.String(), source, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	slog.Debug("Created run", "id", id, "source", source)
	return id, nil
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, source, created_at FROM runs ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var id, source, created string
		if err := rows.Scan(&id, &source, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		createdAt, _ := time.Parse(time.RFC3339, created)
		runs = append(runs, Run{ID: parsed, Source: source, CreatedAt: createdAt})
	}
	return runs, rows.Err()
}

// SaveSamples stores samples for a run's split in one transaction, replacing
// any samples previously saved under the same split.
func (s *Store) SaveSamples(ctx context.Context, runID uuid.UUID, split string, samples []corpus.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE run_id = ? AND split = ?", runID.String(), split); err != nil {
		return fmt.Errorf("failed to clear split %s: %w", split, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples
		(run_id, split, seq, abstract_id, line_number, total_lines, target, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, smp := range samples {
		if _, err := stmt.ExecContext(ctx, runID.String(), split, i,
			smp.AbstractID, smp.LineNumber, smp.TotalLines, smp.Target, smp.Text); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	slog.Debug("Saved samples", "run", runID, "split", split, "count", len(samples))
	return nil
}

// LoadSamples returns a split's samples in the order they were saved.
func (s *Store) LoadSamples(ctx context.Context, runID uuid.UUID, split string) ([]corpus.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT abstract_id, line_number, total_lines, target, text
		FROM samples WHERE run_id = ? AND split = ? ORDER BY seq`, runID.String(), split)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []corpus.Sample
	for rows.Next() {
		var smp corpus.Sample
		if err := rows.Scan(&smp.AbstractID, &smp.LineNumber, &smp.TotalLines, &smp.Target, &smp.Text); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// SaveArtifact stores a named document (for example labels.json) for a run.
func (s *Store) SaveArtifact(ctx context.Context, runID uuid.UUID, name string, doc []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO artifacts (run_id, name, doc) VALUES (?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET doc = excluded.doc`, runID.String(), name, doc)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", name, err)
	}
	return nil
}

// LoadArtifact returns a document stored by SaveArtifact.
func (s *Store) LoadArtifact(ctx context.Context, runID uuid.UUID, name string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM artifacts WHERE run_id = ? AND name = ?",
		runID.String(), name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", name, err)
	}
	return doc, nil
}
