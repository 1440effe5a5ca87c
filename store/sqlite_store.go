// Package store persists adaptive search results and their amplitude logs
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qturing"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("store: run not found")

// SQLiteStore keeps search runs, their attempts and snapshots.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// RunSummary is a row of ListRuns.
type RunSummary struct {
	ID         uuid.UUID
	Tapes      []string
	Found      bool
	Steps      int
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewSQLiteStore prepares a store for the database file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{path: path}, nil
}

// Init opens the database and enables foreign keys.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the foreign key pragma in effect.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies the embedded schema migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	errnie.Info("Migrate - schema ready at %s", s.path)
	return nil
}

// SaveSearch writes a run with all of its attempts and snapshots.
func (s *SQLiteStore) SaveSearch(ctx context.Context, result *qturing.SearchResult) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	tapes, err := json.Marshal(result.Tapes)
	if err != nil {
		return fmt.Errorf("failed to encode tapes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, tapes, found, steps, final_state, final_tape, final_head,
		                  final_error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID.String(),
		string(tapes),
		boolToInt(result.Found),
		result.Steps,
		result.Final.State,
		result.Final.Tape,
		result.Final.Head,
		errorText(result.FinalErr),
		result.StartedAt.UnixNano(),
		result.FinishedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, attempt := range result.Attempts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (run_id, attempt, budget, outcome, accept_probability, error, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.ID.String(),
			i,
			attempt.Budget,
			string(attempt.Outcome),
			attempt.AcceptProbability,
			errorText(attempt.Err),
			attempt.Duration.Nanoseconds(),
		); err != nil {
			return fmt.Errorf("failed to insert attempt %d: %w", i, err)
		}

		for position, record := range attempt.Records {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO records (run_id, attempt, position, step, state, head, tape,
				                     amplitude_real, amplitude_imag, probability)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				result.ID.String(),
				i,
				position,
				record.Step,
				record.State,
				record.Head,
				record.Tape,
				record.AmplitudeReal,
				record.AmplitudeImag,
				record.Probability,
			); err != nil {
				return fmt.Errorf("failed to insert record %d of attempt %d: %w", position, i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// LoadLog rebuilds the amplitude log of a run, one snapshot per attempt.
func (s *SQLiteStore) LoadLog(ctx context.Context, runID uuid.UUID) (qturing.Log, error) {
	var attempts int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE run_id = ?`, runID.String(),
	).Scan(&attempts); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if attempts == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up run: %w", err)
		}
	}

	log := make(qturing.Log, attempts)
	for i := range log {
		log[i] = []qturing.Record{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT attempt, step, state, head, tape, amplitude_real, amplitude_imag, probability
		FROM records
		WHERE run_id = ?
		ORDER BY attempt, position`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			attempt int
			record  qturing.Record
		)

		if err := rows.Scan(
			&attempt,
			&record.Step,
			&record.State,
			&record.Head,
			&record.Tape,
			&record.AmplitudeReal,
			&record.AmplitudeImag,
			&record.Probability,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if attempt < 0 || attempt >= len(log) {
			return nil, fmt.Errorf("record references unknown attempt %d", attempt)
		}

		log[attempt] = append(log[attempt], record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return log, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.tapes, r.found, r.steps, r.started_at, r.finished_at,
		       (SELECT COUNT(*) FROM attempts a WHERE a.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			id, tapes         string
			found             int
			started, finished int64
			summary           RunSummary
		)

		if err := rows.Scan(&id, &tapes, &found, &summary.Steps, &started, &finished, &summary.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if summary.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse run id %q: %w", id, err)
		}

		if err := json.Unmarshal([]byte(tapes), &summary.Tapes); err != nil {
			return nil, fmt.Errorf("failed to decode tapes of run %s: %w", id, err)
		}

		summary.Found = found != 0
		summary.StartedAt = time.Unix(0, started)
		summary.FinishedAt = time.Unix(0, finished)
		runs = append(runs, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
