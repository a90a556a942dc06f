package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sweep persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// SaveSweep stores a completed sweep and its points atomically.
	// Returns ErrSweepExists if the ID is already stored.
	SaveSweep(ctx context.Context, rec *SweepRecord) error

	// GetSweep retrieves a sweep by ID with its points populated.
	// Returns ErrSweepNotFound if the sweep does not exist.
	GetSweep(ctx context.Context, id string) (*SweepRecord, error)

	// ListSweeps retrieves sweep summaries newest first, without points.
	ListSweeps(ctx context.Context) ([]SweepRecord, error)

	// ListSweepsByProfile retrieves summaries for one profile, newest first.
	ListSweepsByProfile(ctx context.Context, profileID string) ([]SweepRecord, error)

	// DeleteSweep removes a sweep and its points.
	// Returns ErrSweepNotFound if the sweep does not exist.
	DeleteSweep(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// EnsureSchema creates the archive tables if they do not exist.
// The schema is additive-only; existing data is never touched.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS sweeps (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			profile_name TEXT NOT NULL,
			device_id TEXT,
			channel TEXT NOT NULL,
			voltage_sweep INTEGER NOT NULL,
			start_level REAL NOT NULL,
			end_level REAL NOT NULL,
			step_size REAL NOT NULL,
			level_limit REAL NOT NULL,
			settle_delay_ms INTEGER NOT NULL,
			aborted INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sweep_points (
			sweep_id TEXT NOT NULL REFERENCES sweeps(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			level REAL NOT NULL,
			volts REAL NOT NULL,
			amps REAL NOT NULL,
			PRIMARY KEY (sweep_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_sweeps_profile ON sweeps(profile_id);`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating archive schema: %w", err)
	}
	return nil
}

const sweepColumns = `id, profile_id, profile_name, device_id, channel,
		voltage_sweep, start_level, end_level, step_size, level_limit, settle_delay_ms,
		aborted, started_at, completed_at`

// SaveSweep stores a completed sweep and its points atomically.
func (r *SQLiteRepository) SaveSweep(ctx context.Context, rec *SweepRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSweep)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op once committed

	query := `
		INSERT INTO sweeps (` + sweepColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		rec.ID,
		rec.ProfileID,
		rec.ProfileName,
		nullableString(rec.DeviceID),
		rec.Channel,
		boolToInt(rec.VoltageSweep),
		rec.Start,
		rec.End,
		rec.Step,
		rec.Limit,
		rec.SettleDelay.Milliseconds(),
		boolToInt(rec.Aborted),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSweepExists
		}
		return fmt.Errorf("inserting sweep: %w", err)
	}

	pointQuery := `
		INSERT INTO sweep_points (sweep_id, seq, level, volts, amps)
		VALUES (?, ?, ?, ?, ?)`

	for i, p := range rec.Points {
		if _, err := tx.ExecContext(ctx, pointQuery, rec.ID, i, p.Level, p.Voltage, p.Current); err != nil {
			return fmt.Errorf("inserting sweep point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sweep: %w", err)
	}
	return nil
}

// GetSweep retrieves a sweep by ID with its points populated.
func (r *SQLiteRepository) GetSweep(ctx context.Context, id string) (*SweepRecord, error) {
	query := `SELECT ` + sweepColumns + ` FROM sweeps WHERE id = ?`

	rec, err := scanSweep(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSweepNotFound
		}
		return nil, fmt.Errorf("querying sweep by id: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT level, volts, amps
		FROM sweep_points
		WHERE sweep_id = ?
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying sweep points: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Level, &p.Voltage, &p.Current); err != nil {
			return nil, fmt.Errorf("scanning sweep point: %w", err)
		}
		rec.Points = append(rec.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sweep points: %w", err)
	}

	return rec, nil
}

// ListSweeps retrieves sweep summaries newest first, without points.
func (r *SQLiteRepository) ListSweeps(ctx context.Context) ([]SweepRecord, error) {
	query := `SELECT ` + sweepColumns + ` FROM sweeps ORDER BY started_at DESC`
	return r.querySweeps(ctx, query)
}

// ListSweepsByProfile retrieves summaries for one profile, newest first.
func (r *SQLiteRepository) ListSweepsByProfile(ctx context.Context, profileID string) ([]SweepRecord, error) {
	query := `SELECT ` + sweepColumns + ` FROM sweeps WHERE profile_id = ? ORDER BY started_at DESC`
	return r.querySweeps(ctx, query, profileID)
}

// DeleteSweep removes a sweep and its points.
func (r *SQLiteRepository) DeleteSweep(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sweeps WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sweep: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrSweepNotFound
	}
	return nil
}

// querySweeps runs a query returning sweep rows and scans them all.
func (r *SQLiteRepository) querySweeps(ctx context.Context, query string, args ...interface{}) ([]SweepRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sweeps: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var sweeps []SweepRecord
	for rows.Next() {
		rec, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		sweeps = append(sweeps, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sweeps: %w", err)
	}
	return sweeps, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSweep(scanner rowScanner) (*SweepRecord, error) {
	var (
		rec          SweepRecord
		deviceID     sql.NullString
		voltageSweep int
		aborted      int
		settleMS     int64
		startedAt    string
		completedAt  string
	)

	err := scanner.Scan(
		&rec.ID,
		&rec.ProfileID,
		&rec.ProfileName,
		&deviceID,
		&rec.Channel,
		&voltageSweep,
		&rec.Start,
		&rec.End,
		&rec.Step,
		&rec.Limit,
		&settleMS,
		&aborted,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.DeviceID = deviceID.String
	rec.VoltageSweep = voltageSweep != 0
	rec.Aborted = aborted != 0
	rec.SettleDelay = time.Duration(settleMS) * time.Millisecond

	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if rec.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
		return nil, fmt.Errorf("parsing completed_at: %w", err)
	}

	return &rec, nil
}

// nullableString returns a sql.NullString for optional strings.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
