// Package journal keeps an append-only record of lifecycle transitions.
// It is write-only from the controller's point of view: no lifecycle
// decision ever reads it back, so the hosts file remains the only state
// that survives a restart.
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Entry is one recorded lifecycle transition.
type Entry struct {
	ID        string `db:"id" json:"id"`
	Op        string `db:"op" json:"op"`
	Outcome   string `db:"outcome" json:"outcome"`
	Gateway   string `db:"gateway" json:"gateway,omitempty"`
	PID       int    `db:"pid" json:"pid,omitempty"`
	Detail    string `db:"detail" json:"detail,omitempty"`
	Timestamp int64  `db:"timestamp" json:"timestamp"`
}

// Journal appends lifecycle entries to a local sqlite database.
type Journal struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at path and initializes the schema.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := dbInit(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func dbInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS lifecycle_events (
		id TEXT PRIMARY KEY,
		op TEXT NOT NULL,
		outcome TEXT NOT NULL,
		gateway TEXT,
		pid INTEGER,
		detail TEXT,
		timestamp INTEGER NOT NULL
	)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_timestamp ON lifecycle_events(timestamp)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_op ON lifecycle_events(op)`)
	return err
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one entry. ID and Timestamp are assigned here.
func (j *Journal) Record(entry Entry) error {
	entry.ID = uuid.New().String()
	entry.Timestamp = time.Now().UTC().Unix()
	_, err := j.db.Exec(`
		INSERT INTO lifecycle_events (id, op, outcome, gateway, pid, detail, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		entry.Op,
		entry.Outcome,
		entry.Gateway,
		entry.PID,
		entry.Detail,
		entry.Timestamp,
	)
	return err
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	entries := make([]Entry, 0, limit)
	err := j.db.Select(&entries,
		"SELECT * FROM lifecycle_events ORDER BY timestamp DESC, id DESC LIMIT $1",
		limit)
	return entries, err
}

// DeleteOlderThan prunes entries older than the given age and reports how
// many rows were removed.
func (j *Journal) DeleteOlderThan(age time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-age).Unix()
	result, err := j.db.Exec("DELETE FROM lifecycle_events WHERE timestamp < $1", threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
