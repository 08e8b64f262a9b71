// Package history keeps an in-process journal of lock activity in SQLite.
// The database lives in memory and is gone when the process exits.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DefaultMaxRecords caps the journal when no limit is configured.
const DefaultMaxRecords = 1000

// Actions recorded in the journal.
const (
	ActionSelect  = "select"
	ActionRefresh = "refresh"
	ActionAcquire = "acquire"
	ActionRelease = "release"
)

// Outcomes recorded in the journal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Record is one journal row.
type Record struct {
	ID         int64
	Repository string
	Action     string
	Path       string
	LockID     uint64
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// Journal is an append-only, size-capped log of lock activity.
type Journal struct {
	db         *sql.DB
	maxRecords int
}

const schema = `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		repository TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT,
		lock_id INTEGER,
		outcome TEXT NOT NULL,
		detail TEXT,
		recorded_at TEXT NOT NULL
	);
`

// Open creates an empty in-memory journal keeping at most maxRecords rows.
func Open(maxRecords int) (*Journal, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Journal{db: db, maxRecords: maxRecords}, nil
}

// Record appends r and trims the oldest rows beyond the cap.
// RecordedAt defaults to now.
func (j *Journal) Record(ctx context.Context, r Record) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO history (repository, action, path, lock_id, outcome, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Repository, r.Action, r.Path, int64(r.LockID), r.Outcome, r.Detail,
		r.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}

	res, err := j.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		j.maxRecords)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Trace().Int64("trimmed", n).Msg("history trimmed")
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = j.maxRecords
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, repository, action, path, lock_id, outcome, detail, recorded_at
		 FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			r        Record
			path     sql.NullString
			lockID   sql.NullInt64
			detail   sql.NullString
			recorded string
		)
		if err := rows.Scan(&r.ID, &r.Repository, &r.Action, &path, &lockID, &r.Outcome, &detail, &recorded); err != nil {
			return nil, err
		}
		r.Path = path.String
		r.LockID = uint64(lockID.Int64)
		r.Detail = detail.String
		if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			r.RecordedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of rows currently kept.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}

// MaxRecords returns the configured cap.
func (j *Journal) MaxRecords() int {
	return j.maxRecords
}

// Close releases the database; the journal's contents are discarded.
func (j *Journal) Close() error {
	return j.db.Close()
}
