package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"daybook/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS interaction_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uid TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    prompt TEXT NOT NULL DEFAULT '',
    response TEXT NOT NULL DEFAULT '',
    numeric_answer REAL,
    meta_tag TEXT NOT NULL DEFAULT '',
    captured_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_user_time ON interaction_events(user_id, captured_at);

CREATE TABLE IF NOT EXISTS stream_checkpoints (
    consumer TEXT PRIMARY KEY,
    last_event_id INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Store persists interaction events and consumer checkpoints in SQLite. The
// events table doubles as the change feed: consumers follow the append-order
// id column.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the journal tables in the shared database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records a new interaction event. A UID is assigned when the caller
// leaves it empty, and CapturedAt defaults to now.
func (s *Store) Append(ctx context.Context, event Event) (*Event, error) {
	if strings.TrimSpace(event.UserID) == "" {
		return nil, errors.New("user id is required")
	}
	if _, ok := ParseKind(string(event.Kind)); !ok {
		return nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	if event.UID == "" {
		event.UID = uuid.NewString()
	}
	if event.CapturedAt.IsZero() {
		event.CapturedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO interaction_events (uid, user_id, kind, prompt, response, numeric_answer, meta_tag, captured_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.UID,
		event.UserID,
		string(event.Kind),
		event.Prompt,
		event.Response,
		event.NumericAnswer,
		event.MetaTag,
		event.CapturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	event.ID = id
	return &event, nil
}

// GetByUID fetches one event by its stable identifier, or nil when missing.
func (s *Store) GetByUID(ctx context.Context, uid string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM interaction_events WHERE uid = ?`, uid)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListAfter returns up to limit events with id greater than afterID, in
// append order. This is the change-feed read path.
func (s *Store) ListAfter(ctx context.Context, afterID int64, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM interaction_events WHERE id > ? ORDER BY id LIMIT ?`,
		afterID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Checkpoint returns the last event id the named consumer processed, or zero
// when the consumer has never checkpointed.
func (s *Store) Checkpoint(ctx context.Context, consumer string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT last_event_id FROM stream_checkpoints WHERE consumer = ?`, consumer)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	return id, nil
}

// SaveCheckpoint records the last event id the named consumer processed.
func (s *Store) SaveCheckpoint(ctx context.Context, consumer string, eventID int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO stream_checkpoints (consumer, last_event_id, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(consumer) DO UPDATE SET last_event_id = excluded.last_event_id, updated_at = excluded.updated_at`,
		consumer,
		eventID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

const eventColumns = "id, uid, user_id, kind, prompt, response, numeric_answer, meta_tag, captured_at"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		event       Event
		kindStr     string
		numeric     sql.NullFloat64
		capturedRaw string
	)
	if err := scanner.Scan(
		&event.ID,
		&event.UID,
		&event.UserID,
		&kindStr,
		&event.Prompt,
		&event.Response,
		&numeric,
		&event.MetaTag,
		&capturedRaw,
	); err != nil {
		return nil, err
	}
	event.Kind = Kind(kindStr)
	if numeric.Valid {
		value := numeric.Float64
		event.NumericAnswer = &value
	}
	if captured, err := time.Parse(time.RFC3339Nano, capturedRaw); err == nil {
		event.CapturedAt = captured
	}
	return &event, nil
}
