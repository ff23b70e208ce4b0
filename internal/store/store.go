// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store provides SQLite persistence for video event metadata.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/pisentry/internal/log"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// ErrDuplicatePath is returned when an insert collides with the UNIQUE
// constraints on the media path columns.
var ErrDuplicatePath = errors.New("duplicate media path")

// timestampLayout is the display-formatted event timestamp kept alongside
// the machine-readable created-at column.
const timestampLayout = "01-02-2006_15:04"

// VideoEvent is the durable record of one completed recording.
type VideoEvent struct {
	ID            int64  `json:"id"`
	Timestamp     string `json:"timestamp"`
	EventType     string `json:"event_type"`
	RawPath       string `json:"raw_path"`
	ContainerPath string `json:"container_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Archived      bool   `json:"archived"`
	CreatedAt     string `json:"created_at"`
}

// NewEvent is the insert payload for RecordEvent. ContainerPath and
// ThumbnailPath may be empty; they are stored as NULL so the UNIQUE
// constraints only bite on real paths.
type NewEvent struct {
	Type          string
	RawPath       string
	ContainerPath string
	ThumbnailPath string
	Notes         string
	At            time.Time
}

// Query selects a page of events. Sort columns and orders outside the
// allowlist silently fall back to the default ordering.
type Query struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

var allowedSortColumns = map[string]string{
	"id":              "id",
	"event_timestamp": "event_timestamp",
	"timestamp":       "event_timestamp",
	"event_type":      "event_type",
	"type":            "event_type",
	"created_at":      "created_at",
}

// Store provides SQLite persistence for video events.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New initializes the store and runs migrations. WAL mode and busy_timeout
// avoid "database locked" errors between the pipeline writer and API reader.
func New(dbPath string) (*Store, error) {
	// modernc.org/sqlite takes pragmas as _pragma=name(value) DSN options.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: log.WithComponent("store")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS video_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_timestamp TEXT NOT NULL,
		event_type TEXT NOT NULL DEFAULT 'Motion Detected',
		raw_path TEXT UNIQUE,
		container_path TEXT UNIQUE,
		thumbnail_path TEXT UNIQUE,
		notes TEXT,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_video_events_created ON video_events(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordEvent inserts a new video event and returns its id. A UNIQUE
// violation on any path column is reported as ErrDuplicatePath so callers
// can distinguish an accidental duplicate from a broken store.
func (s *Store) RecordEvent(ctx context.Context, ev NewEvent) (int64, error) {
	query := `
	INSERT INTO video_events
		(event_type, raw_path, container_path, thumbnail_path, notes, event_timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		ev.Type,
		nullable(ev.RawPath),
		nullable(ev.ContainerPath),
		nullable(ev.ThumbnailPath),
		ev.Notes,
		ev.At.Format(timestampLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", ErrDuplicatePath, ev.RawPath)
		}
		return 0, fmt.Errorf("insert video event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	s.logger.Info().
		Str("event", "store.recorded").
		Int64("id", id).
		Str("raw_path", ev.RawPath).
		Msg("video event recorded")
	return id, nil
}

// ListEvents fetches a page of events.
func (s *Store) ListEvents(ctx context.Context, q Query) ([]VideoEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	column, ok := allowedSortColumns[strings.ToLower(q.SortBy)]
	if !ok {
		column = "event_timestamp"
	}
	order := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		order = "ASC"
	}

	// column and order come from allowlists above, never from the caller
	// verbatim.
	query := fmt.Sprintf(`
	SELECT id, event_timestamp, event_type, raw_path, container_path, thumbnail_path, notes, is_archived, created_at
	FROM video_events
	ORDER BY %s %s
	LIMIT ? OFFSET ?
	`, column, order)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query video events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []VideoEvent
	for rows.Next() {
		var ev VideoEvent
		var rawPath, container, thumb, notes sql.NullString
		var archived int
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.EventType, &rawPath, &container, &thumb, &notes, &archived, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video event: %w", err)
		}
		ev.RawPath = rawPath.String
		ev.ContainerPath = container.String
		ev.ThumbnailPath = thumb.String
		ev.Notes = notes.String
		ev.Archived = archived != 0
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video events: %w", err)
	}
	return events, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
