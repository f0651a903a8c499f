package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vidchunk/internal/config"
	"vidchunk/internal/dataset"
	"vidchunk/internal/extraction"
	"vidchunk/internal/services"
	"vidchunk/internal/transcribe"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Run is one ledger row.
type Run struct {
	ID              string
	Label           string
	SourcePath      string
	OutputDir       string
	ManifestPath    string
	FPS             float64
	WindowSeconds   float64
	DurationSeconds float64
	Status          extraction.Status
	ChunkCount      int
	Report          extraction.Report
	ErrorKind       string
	ErrorStage      string
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      time.Time
	UpdatedAt       time.Time
}

// Elapsed returns the run duration, measured up to now for running rows.
func (r Run) Elapsed(now time.Time) time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = now
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

var _ extraction.Recorder = (*Store)(nil)

// Open initializes or connects to the run ledger.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.RunStorePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// RunStarted inserts a running row for res.
func (s *Store) RunStarted(ctx context.Context, res *extraction.Result) error {
	if res == nil || res.RunID == "" {
		return errors.New("run result has no id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, label, source_path, output_dir, fps, window_seconds, duration_seconds,
            status, started_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.Label,
		res.Source,
		res.OutputDir,
		res.FPS,
		res.WindowSeconds,
		res.Duration,
		res.Status,
		formatTime(res.StartedAt),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RunFinished records the final state of res along with its chunks and events.
// A run that was never started is inserted first.
func (s *Store) RunFinished(ctx context.Context, res *extraction.Result) error {
	if res == nil || res.RunID == "" {
		return errors.New("run result has no id")
	}
	report, err := json.Marshal(res.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, label, source_path, output_dir, manifest_path, fps, window_seconds,
            duration_seconds, status, chunk_count, report_json, error_kind, error_stage,
            error_message, started_at, finished_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            manifest_path = excluded.manifest_path,
            duration_seconds = excluded.duration_seconds,
            status = excluded.status,
            chunk_count = excluded.chunk_count,
            report_json = excluded.report_json,
            error_kind = excluded.error_kind,
            error_stage = excluded.error_stage,
            error_message = excluded.error_message,
            finished_at = excluded.finished_at,
            updated_at = excluded.updated_at`,
		res.RunID,
		res.Label,
		res.Source,
		res.OutputDir,
		nullableString(res.ManifestPath),
		res.FPS,
		res.WindowSeconds,
		res.Duration,
		res.Status,
		len(res.Chunks),
		string(report),
		nullableString(res.ErrorKind),
		nullableString(res.ErrorStage),
		nullableString(res.ErrorMessage),
		formatTime(res.StartedAt),
		nullableTime(res.FinishedAt),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE run_id = ?`, res.RunID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for _, chunk := range res.Chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (
                run_id, chunk_key, timestamp, image_path, audio_path, transcript_path,
                audio_seconds, short_audio, outcome
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID,
			chunk.Key,
			chunk.Timestamp,
			chunk.ImagePath,
			chunk.AudioPath,
			chunk.TranscriptPath,
			chunk.AudioSeconds,
			boolToInt(chunk.ShortAudio),
			string(chunk.Outcome),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE run_id = ?`, res.RunID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	for _, event := range res.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (run_id, at, level, stage, chunk_key, message) VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID,
			formatTime(event.At),
			event.Level,
			nullableString(event.Stage),
			nullableString(event.Key),
			event.Message,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = "id, label, source_path, output_dir, manifest_path, fps, window_seconds, duration_seconds, status, chunk_count, report_json, error_kind, error_stage, error_message, started_at, finished_at, updated_at"

// Get resolves ref as a run id, a unique id prefix, or a label.
func (s *Store) Get(ctx context.Context, ref string) (*Run, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "runstore", "get", "run reference required", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
         WHERE id = ? OR label = ? OR id LIKE ? ESCAPE '\'
         ORDER BY (id = ?) DESC, started_at DESC LIMIT 2`,
		ref, ref, escapeLike(ref)+"%", ref,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, services.Wrap(services.ErrNotFound, "runstore", "get", "no run matches "+ref, nil)
	case len(matches) == 1 || matches[0].ID == ref:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "runstore", "get", fmt.Sprintf("%q matches more than one run", ref), nil)
	}
}

// List returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Chunks returns the assembled chunks of a run ordered by timestamp.
func (s *Store) Chunks(ctx context.Context, runID string) ([]dataset.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_key, timestamp, image_path, audio_path, transcript_path, audio_seconds, short_audio, outcome
         FROM chunks WHERE run_id = ? ORDER BY timestamp`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []dataset.Chunk
	for rows.Next() {
		var (
			chunk   dataset.Chunk
			short   int
			outcome string
		)
		if err := rows.Scan(&chunk.Key, &chunk.Timestamp, &chunk.ImagePath, &chunk.AudioPath,
			&chunk.TranscriptPath, &chunk.AudioSeconds, &short, &outcome); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.ShortAudio = short != 0
		chunk.Outcome = transcribe.Outcome(outcome)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Events returns the event log of a run in insertion order.
func (s *Store) Events(ctx context.Context, runID string) ([]extraction.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, level, stage, chunk_key, message FROM events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []extraction.Event
	for rows.Next() {
		var (
			event extraction.Event
			at    string
			stage sql.NullString
			key   sql.NullString
		)
		if err := rows.Scan(&at, &event.Level, &stage, &key, &event.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if parsed, err := parseTimeString(at); err == nil {
			event.At = parsed
		}
		event.Stage = stage.String
		event.Key = key.String
		events = append(events, event)
	}
	return events, rows.Err()
}

// Remove deletes a run and its chunk and event rows. Files on disk are untouched.
func (s *Store) Remove(ctx context.Context, runID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return false, fmt.Errorf("remove run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove run rows affected: %w", err)
	}
	return affected > 0, nil
}
