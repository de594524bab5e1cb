// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists completed sessions in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
)

// ErrNotFound is returned when a session ID is not stored.
var ErrNotFound = errors.New("session not found")

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id      TEXT PRIMARY KEY,
		elevator_id     TEXT NOT NULL,
		elevator_name   TEXT NOT NULL,
		elevator_code   TEXT NOT NULL,
		location        TEXT NOT NULL,
		elevator_status TEXT NOT NULL,
		technician      TEXT NOT NULL,
		started_at_ms   INTEGER NOT NULL,
		ended_at_ms     INTEGER,
		status          TEXT NOT NULL,
		duration_s      REAL NOT NULL DEFAULT 0,
		floors_visited  INTEGER NOT NULL DEFAULT 0,
		total_points    INTEGER NOT NULL DEFAULT 0,
		heatmap_json    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at_ms);
`

// Store provides persistence for sessions.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a session. If sess.ID is empty, a new UUID is
// generated.
func (s *Store) Save(sess *session.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}

	var (
		summary heatmap.Summary
		blob    sql.NullString
		endedAt sql.NullInt64
	)
	if sess.Heatmap != nil {
		summary = sess.Heatmap.Summary
		b, err := json.Marshal(sess.Heatmap)
		if err != nil {
			return fmt.Errorf("marshal heatmap: %w", err)
		}
		blob = sql.NullString{String: string(b), Valid: true}
	}
	if sess.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: sess.EndedAt.UnixMilli(), Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO sessions (
			session_id, elevator_id, elevator_name, elevator_code, location,
			elevator_status, technician, started_at_ms, ended_at_ms, status,
			duration_s, floors_visited, total_points, heatmap_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		sess.ID,
		sess.Elevator.ID,
		sess.Elevator.Name,
		sess.Elevator.Code,
		sess.Elevator.Location,
		sess.Elevator.Status,
		sess.Technician,
		sess.StartedAt.UnixMilli(),
		endedAt,
		sess.Status,
		summary.Duration,
		summary.FloorsVisited,
		summary.TotalPoints,
		blob,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get loads one session including its heat map snapshot.
func (s *Store) Get(id string) (*session.Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, elevator_id, elevator_name, elevator_code, location,
			elevator_status, technician, started_at_ms, ended_at_ms, status, heatmap_json
		FROM sessions WHERE session_id = ?
	`, id)

	sess, blob, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	if blob.Valid {
		var snap heatmap.Snapshot
		if err := json.Unmarshal([]byte(blob.String), &snap); err != nil {
			return nil, fmt.Errorf("decode heatmap of %s: %w", id, err)
		}
		sess.Heatmap = &snap
	}
	return sess, nil
}

// Listing is a stored session without its heat map.
type Listing struct {
	session.Session
	Summary heatmap.Summary `json:"summary"`
}

// List returns the most recent sessions first, without snapshots.
func (s *Store) List(limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT session_id, elevator_id, elevator_name, elevator_code, location,
			elevator_status, technician, started_at_ms, ended_at_ms, status,
			duration_s, floors_visited, total_points
		FROM sessions ORDER BY started_at_ms DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var (
			l         Listing
			startedMs int64
			endedMs   sql.NullInt64
		)
		err := rows.Scan(
			&l.ID, &l.Elevator.ID, &l.Elevator.Name, &l.Elevator.Code, &l.Elevator.Location,
			&l.Elevator.Status, &l.Technician, &startedMs, &endedMs, &l.Status,
			&l.Summary.Duration, &l.Summary.FloorsVisited, &l.Summary.TotalPoints,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		l.StartedAt = time.UnixMilli(startedMs)
		if endedMs.Valid {
			t := time.UnixMilli(endedMs.Int64)
			l.EndedAt = &t
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func scanSession(row *sql.Row) (*session.Session, sql.NullString, error) {
	var (
		sess      session.Session
		startedMs int64
		endedMs   sql.NullInt64
		blob      sql.NullString
	)
	err := row.Scan(
		&sess.ID, &sess.Elevator.ID, &sess.Elevator.Name, &sess.Elevator.Code, &sess.Elevator.Location,
		&sess.Elevator.Status, &sess.Technician, &startedMs, &endedMs, &sess.Status, &blob,
	)
	if err != nil {
		return nil, blob, err
	}
	sess.StartedAt = time.UnixMilli(startedMs)
	if endedMs.Valid {
		t := time.UnixMilli(endedMs.Int64)
		sess.EndedAt = &t
	}
	return &sess, blob, nil
}
