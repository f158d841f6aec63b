// Package recorder persists classification sessions to SQLite so thresholds
// can be recalibrated offline and regressions replayed with evidence.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/halcyard/motiongate/internal/motion"
)

// Session is one recorded run, identified by a UUID.
type Session struct {
	ID        string
	StartedAt time.Time
	Source    string
	Notes     string
}

// SampleRow is one persisted velocity estimate with the stable state that
// accompanied it.
type SampleRow struct {
	At    time.Time
	Speed motion.Speed
	State motion.Movement
}

// Transition is one persisted stable-state change, with the window averages
// at the moment of the switch.
type Transition struct {
	At    time.Time
	From  motion.Movement
	To    motion.Movement
	AvgH  float64
	AvgVz float64
}

// Summary aggregates one session for listing and the calibrate tool.
type Summary struct {
	Session     Session
	Samples     int
	Transitions int
	First       time.Time
	Last        time.Time
	States      map[motion.Movement]int
}

// Store wraps the recording database. Sample writes go through a stride
// throttle so the 25Hz polling loop doesn't pay an insert per tick;
// transitions are always written. The throttle counter is owned by the
// polling goroutine; everything else on Store is safe for concurrent use
// through database/sql.
type Store struct {
	db     *sql.DB
	stride int
	seen   uint64
}

// Open opens (or creates) the recording database at path. stride controls
// sample throttling: every Nth offered sample is kept, 1 keeps all.
func Open(path string, stride int) (*Store, error) {
	if stride < 1 {
		stride = 1
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return &Store{db: db, stride: stride}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession inserts a new session row and resets the sample throttle.
func (s *Store) BeginSession(source, notes string, at time.Time) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		StartedAt: at,
		Source:    source,
		Notes:     notes,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at_ms, source, notes) VALUES (?, ?, ?, ?)`,
		sess.ID, at.UnixMilli(), source, notes,
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	s.seen = 0
	return sess, nil
}

// RecordSample offers one sample for persistence; only every Nth offer is
// written, per the stride configured at Open.
func (s *Store) RecordSample(sessionID string, at time.Time, sp motion.Speed, state motion.Movement) error {
	keep := s.seen%uint64(s.stride) == 0
	s.seen++
	if !keep {
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO samples (session_id, at_ms, vx, vy, vz, horizontal, magnitude, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, at.UnixMilli(), sp.VX, sp.VY, sp.VZ, sp.Horizontal, sp.Magnitude, string(state),
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// RecordTransition persists one stable-state change. Transitions bypass the
// stride throttle: they are the rare, load-bearing rows.
func (s *Store) RecordTransition(sessionID string, at time.Time, from, to motion.Movement, avgH, avgVz float64) error {
	_, err := s.db.Exec(
		`INSERT INTO transitions (session_id, at_ms, from_state, to_state, avg_h, avg_vz)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, at.UnixMilli(), string(from), string(to), avgH, avgVz,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at_ms, source, notes FROM sessions ORDER BY started_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ms int64
		if err := rows.Scan(&sess.ID, &ms, &sess.Source, &sess.Notes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(ms)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SamplesForSession returns the persisted samples for a session in time order.
func (s *Store) SamplesForSession(id string) ([]SampleRow, error) {
	rows, err := s.db.Query(
		`SELECT at_ms, vx, vy, vz, horizontal, magnitude, state
		 FROM samples WHERE session_id = ? ORDER BY at_ms`, id)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []SampleRow
	for rows.Next() {
		var r SampleRow
		var ms int64
		var state string
		if err := rows.Scan(&ms, &r.Speed.VX, &r.Speed.VY, &r.Speed.VZ,
			&r.Speed.Horizontal, &r.Speed.Magnitude, &state); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		r.At = time.UnixMilli(ms)
		r.State = motion.Movement(state)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TransitionsForSession returns the persisted transitions for a session in
// time order.
func (s *Store) TransitionsForSession(id string) ([]Transition, error) {
	rows, err := s.db.Query(
		`SELECT at_ms, from_state, to_state, avg_h, avg_vz
		 FROM transitions WHERE session_id = ? ORDER BY at_ms`, id)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var ms int64
		var from, to string
		if err := rows.Scan(&ms, &from, &to, &t.AvgH, &t.AvgVz); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.At = time.UnixMilli(ms)
		t.From = motion.Movement(from)
		t.To = motion.Movement(to)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SessionSummary aggregates counts, time bounds and the per-state sample
// distribution for one session.
func (s *Store) SessionSummary(id string) (Summary, error) {
	var sum Summary
	var ms int64
	err := s.db.QueryRow(
		`SELECT id, started_at_ms, source, notes FROM sessions WHERE id = ?`, id).
		Scan(&sum.Session.ID, &ms, &sum.Session.Source, &sum.Session.Notes)
	if err == sql.ErrNoRows {
		return Summary{}, fmt.Errorf("session %s: not found", id)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("query session: %w", err)
	}
	sum.Session.StartedAt = time.UnixMilli(ms)

	var firstMs, lastMs sql.NullInt64
	err = s.db.QueryRow(
		`SELECT COUNT(*), MIN(at_ms), MAX(at_ms) FROM samples WHERE session_id = ?`, id).
		Scan(&sum.Samples, &firstMs, &lastMs)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate samples: %w", err)
	}
	if firstMs.Valid {
		sum.First = time.UnixMilli(firstMs.Int64)
		sum.Last = time.UnixMilli(lastMs.Int64)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM transitions WHERE session_id = ?`, id).Scan(&sum.Transitions)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate transitions: %w", err)
	}

	sum.States = make(map[motion.Movement]int)
	rows, err := s.db.Query(
		`SELECT state, COUNT(*) FROM samples WHERE session_id = ? GROUP BY state`, id)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate states: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return Summary{}, fmt.Errorf("scan state count: %w", err)
		}
		sum.States[motion.Movement(state)] = n
	}
	return sum, rows.Err()
}
