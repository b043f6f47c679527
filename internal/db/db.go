// Package db is the compositor's cycle journal: a SQLite database holding
// one row per render cycle, grouped by session.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	_ "modernc.org/sqlite"
)

// ErrNoCycles is returned by summaries over a session with no cycles.
var ErrNoCycles = errors.New("db: no cycles recorded")

type DB struct {
	*sql.DB
}

var _ compositor.CycleRecorder = (*DB)(nil)

// NewDB opens the journal at path and migrates it to the latest schema.
// ":memory:" opens a private in-memory journal.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if _, err := sqlDB.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RecordSession registers a compositor session. Registering the same
// session twice keeps the first row.
func (db *DB) RecordSession(sessionID, engine string, startedAt time.Time) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO sessions (session_id, engine, started_at) VALUES (?, ?, ?)`,
		sessionID, engine, startedAt.UTC(),
	)
	return err
}

// RecordCycle stores one cycle's statistics.
func (db *DB) RecordCycle(stats compositor.CycleStats) error {
	if stats.SessionID == "" {
		return errors.New("db: cycle without session id")
	}
	var decodeErr sql.NullString
	if stats.DecodeErr != "" {
		decodeErr = sql.NullString{String: stats.DecodeErr, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO cycles (
			session_id, cycle, streams, decoded, decode_error, pacing_ms, scene_nodes, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.SessionID, int64(stats.Cycle), stats.Streams, stats.Decoded, decodeErr,
		stats.PacingMs, stats.SceneNodes, stats.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record cycle %d: %w", stats.Cycle, err)
	}
	return nil
}

// RecentCycles returns up to limit of the session's latest cycles, oldest
// first.
func (db *DB) RecentCycles(sessionID string, limit int) ([]compositor.CycleStats, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		`SELECT cycle, streams, decoded, decode_error, pacing_ms, scene_nodes, recorded_at
		FROM cycles WHERE session_id = ? ORDER BY cycle DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []compositor.CycleStats
	for rows.Next() {
		var (
			cycle     int64
			decodeErr sql.NullString
			at        time.Time
		)
		c := compositor.CycleStats{SessionID: sessionID}
		if err := rows.Scan(&cycle, &c.Streams, &c.Decoded, &decodeErr, &c.PacingMs, &c.SceneNodes, &at); err != nil {
			return nil, err
		}
		c.Cycle = uint64(cycle)
		c.DecodeErr = decodeErr.String
		c.At = at
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(cycles)-1; i < j; i, j = i+1, j-1 {
		cycles[i], cycles[j] = cycles[j], cycles[i]
	}
	return cycles, nil
}

// Session is one row of the sessions table with its cycle count.
type Session struct {
	ID        string    `json:"session_id"`
	Engine    string    `json:"engine"`
	StartedAt time.Time `json:"started_at"`
	Cycles    int       `json:"cycles"`
}

// Sessions lists recorded sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT s.session_id, s.engine, s.started_at, COUNT(c.cycle)
		FROM sessions s LEFT JOIN cycles c ON c.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Engine, &s.StartedAt, &s.Cycles); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently started session id.
func (db *DB) LatestSession() (string, error) {
	var id string
	err := db.QueryRow(`SELECT session_id FROM sessions ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoCycles
	}
	return id, err
}
