// Package favorites persists per-user bookmarked events in an embedded
// sqlite database.
package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/hackhub/hackhub/internal/domain"
)

// ErrNotFound is returned when a bookmark does not exist.
var ErrNotFound = errors.New("favorites: not found")

const schema = `
CREATE TABLE IF NOT EXISTS favorites (
	user_id  TEXT    NOT NULL,
	event_id INTEGER NOT NULL,
	payload  TEXT    NOT NULL,
	saved_at TEXT    NOT NULL,
	PRIMARY KEY (user_id, event_id)
);
`

// Store is a sqlite-backed bookmark collection.
type Store struct {
	db *sql.DB
}

// Open initialises the sqlite database at path. PRAGMAs are set in the DSN so
// they apply to every pooled connection.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("favorites: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("favorites: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("favorites: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add bookmarks the event for the user. Re-adding an existing bookmark
// refreshes its stored payload.
func (s *Store) Add(ctx context.Context, userID string, ev domain.Event) error {
	if ev.ID == 0 {
		return fmt.Errorf("favorites: event without identifier cannot be bookmarked")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("favorites: encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, event_id, payload, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, event_id) DO UPDATE SET payload = excluded.payload`,
		userID, ev.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("favorites: insert: %w", err)
	}
	return nil
}

// Remove deletes one bookmark.
func (s *Store) Remove(ctx context.Context, userID string, eventID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND event_id = ?`, userID, eventID)
	if err != nil {
		return fmt.Errorf("favorites: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("favorites: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's bookmarked events, most recently saved first.
func (s *Store) List(ctx context.Context, userID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM favorites WHERE user_id = ? ORDER BY saved_at DESC, event_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorites: query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("favorites: scan: %w", err)
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("favorites: decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorites: iterate: %w", err)
	}
	return events, nil
}
