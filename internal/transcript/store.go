// Package transcript records asks and resets in SQLite for auditing.
// Sessions are never restored from it.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KindAsk   = "ask"
	KindReset = "reset"
)

// Entry is one recorded event.
type Entry struct {
	ID        int64
	SessionID string
	Kind      string
	Question  string
	Answer    string
	Sources   int
	CreatedAt time.Time
}

// SQLiteStore appends entries to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		kind        TEXT NOT NULL,
		question    TEXT,
		answer      TEXT,
		sources     INTEGER DEFAULT 0,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends e. A zero CreatedAt is set to now.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript (session_id, kind, question, answer, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Question, e.Answer, e.Sources, e.CreatedAt.UTC(),
	)
	return err
}

// List returns the entries of a session in insertion order.
func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, question, answer, sources, created_at
		 FROM transcript WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var question, answer sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &question, &answer, &e.Sources, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Question = question.String
		e.Answer = answer.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
