// Package journal persists run outcomes to a local SQLite file: one row per
// run plus one row per processed file. The journal is best-effort bookkeeping;
// callers log write failures and keep going.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/pipeline"
)

var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	folder      TEXT NOT NULL,
	output_path TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	total_files INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	empty       INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_files (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	position INTEGER NOT NULL,
	path     TEXT NOT NULL,
	status   TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	error    TEXT,
	PRIMARY KEY (run_id, position)
);
`

// Run is one recorded pipeline run.
type Run struct {
	ID         uuid.UUID
	Folder     string
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
	TotalFiles int
	Succeeded  int
	Empty      int
	Failed     int
}

// FileEntry is one file outcome within a run.
type FileEntry struct {
	RunID    uuid.UUID
	Position int
	Path     string
	Status   constants.FileStatus
	Attempts int
	Error    string
}

// Journal wraps the SQLite connection.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and migrates) the journal database at path. ":memory:" works
// for tests.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal %s: %w", path, err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// RecordRun writes the run row and its per-file outcomes in one transaction
// and returns the run ID.
func (j *Journal) RecordRun(ctx context.Context, folder, outputPath string, results []pipeline.Result, totals pipeline.Totals) (uuid.UUID, error) {
	start := time.Now()
	runID := uuid.New()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, folder, output_path, started_at, finished_at, total_files, succeeded, empty, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		runID.String(), folder, outputPath,
		totals.StartedAt.UTC(), totals.FinishedAt.UTC(),
		totals.TotalFiles, totals.Succeeded, totals.Empty, totals.Failed,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for i, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, position, path, status, attempts, error)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			runID.String(), i, r.Path, string(r.Status), r.Attempts, errText,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert run file %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit journal tx: %w", err)
	}

	j.logger.Info("journal.record.ok",
		"run_id", runID.String(),
		"files", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return runID, nil
}

// GetRun retrieves one run row by ID.
func (j *Journal) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, folder, output_path, started_at, finished_at, total_files, succeeded, empty, failed
		FROM runs WHERE id = $1`, id.String())

	var run Run
	var rawID string
	err := row.Scan(&rawID, &run.Folder, &run.OutputPath, &run.StartedAt, &run.FinishedAt,
		&run.TotalFiles, &run.Succeeded, &run.Empty, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.ID, err = uuid.Parse(rawID)
	return &run, err
}

// ListFiles returns a run's file outcomes ordered by position.
func (j *Journal) ListFiles(ctx context.Context, runID uuid.UUID) ([]FileEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, position, path, status, attempts, error
		FROM run_files WHERE run_id = $1 ORDER BY position`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FileEntry
	for rows.Next() {
		var e FileEntry
		var rawID, status string
		if err := rows.Scan(&rawID, &e.Position, &e.Path, &status, &e.Attempts, &e.Error); err != nil {
			return nil, err
		}
		e.RunID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, err
		}
		e.Status = constants.FileStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
