package views

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"daybook/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS compass_views (
    user_id TEXT NOT NULL,
    view_date TEXT NOT NULL,
    mood TEXT NOT NULL DEFAULT '',
    energy TEXT NOT NULL DEFAULT '',
    main_priority TEXT NOT NULL DEFAULT '',
    priority_note TEXT NOT NULL DEFAULT '',
    completion TEXT NOT NULL DEFAULT '',
    blocker TEXT NOT NULL DEFAULT '',
    improvement_note TEXT NOT NULL DEFAULT '',
    reflection_ref TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, view_date)
);

CREATE TABLE IF NOT EXISTS wins_views (
    user_id TEXT NOT NULL,
    view_date TEXT NOT NULL,
    title_ref TEXT NOT NULL DEFAULT '',
    description_ref TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, view_date)
);
`

var compassColumns = map[CompassField]struct{}{
	FieldMood:            {},
	FieldEnergy:          {},
	FieldMainPriority:    {},
	FieldPriorityNote:    {},
	FieldCompletion:      {},
	FieldBlocker:         {},
	FieldImprovementNote: {},
	FieldReflectionRef:   {},
}

var winsColumns = map[WinsField]struct{}{
	FieldTitleRef:       {},
	FieldDescriptionRef: {},
}

// Store persists the materialized view documents in SQLite. All writes are
// keyed upserts, so applying the same event twice converges to the same row.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the view tables in the shared database.
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
		return nil, fmt.Errorf("init views schema: %w", err)
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

// SetCompassField upserts one field of a user's compass document for a date.
func (s *Store) SetCompassField(ctx context.Context, userID, viewDate string, field CompassField, value string) error {
	if _, ok := compassColumns[field]; !ok {
		return fmt.Errorf("unknown compass field %q", field)
	}
	query := fmt.Sprintf(
		`INSERT INTO compass_views (user_id, view_date, %[1]s, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id, view_date) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`,
		field,
	)
	if _, err := s.db.ExecContext(ctx, query, userID, viewDate, value, nowString()); err != nil {
		return fmt.Errorf("upsert compass %s: %w", field, err)
	}
	return nil
}

// SetWinsField upserts one field of a user's wins document for a date.
func (s *Store) SetWinsField(ctx context.Context, userID, viewDate string, field WinsField, value string) error {
	if _, ok := winsColumns[field]; !ok {
		return fmt.Errorf("unknown wins field %q", field)
	}
	query := fmt.Sprintf(
		`INSERT INTO wins_views (user_id, view_date, %[1]s, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id, view_date) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`,
		field,
	)
	if _, err := s.db.ExecContext(ctx, query, userID, viewDate, value, nowString()); err != nil {
		return fmt.Errorf("upsert wins %s: %w", field, err)
	}
	return nil
}

// CompassByDate returns one compass document, or nil when the user has no
// entry for that date.
func (s *Store) CompassByDate(ctx context.Context, userID, viewDate string) (*CompassView, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, view_date, mood, energy, main_priority, priority_note,
                completion, blocker, improvement_note, reflection_ref, updated_at
         FROM compass_views WHERE user_id = ? AND view_date = ?`,
		userID,
		viewDate,
	)
	view, err := scanCompass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get compass view: %w", err)
	}
	return view, nil
}

// WinsByDate returns one wins document, or nil when the user has no entry
// for that date.
func (s *Store) WinsByDate(ctx context.Context, userID, viewDate string) (*WinsView, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, view_date, title_ref, description_ref, updated_at
         FROM wins_views WHERE user_id = ? AND view_date = ?`,
		userID,
		viewDate,
	)
	var (
		view       WinsView
		updatedRaw string
	)
	err := row.Scan(&view.UserID, &view.ViewDate, &view.TitleRef, &view.DescriptionRef, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wins view: %w", err)
	}
	view.UpdatedAt = parseTime(updatedRaw)
	return &view, nil
}

// CompassForUser lists a user's most recent compass documents, newest first.
func (s *Store) CompassForUser(ctx context.Context, userID string, limit int) ([]*CompassView, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id, view_date, mood, energy, main_priority, priority_note,
                completion, blocker, improvement_note, reflection_ref, updated_at
         FROM compass_views WHERE user_id = ? ORDER BY view_date DESC LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list compass views: %w", err)
	}
	defer rows.Close()

	var result []*CompassView
	for rows.Next() {
		view, err := scanCompass(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}

// WinsForUser lists a user's most recent wins documents, newest first.
func (s *Store) WinsForUser(ctx context.Context, userID string, limit int) ([]*WinsView, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id, view_date, title_ref, description_ref, updated_at
         FROM wins_views WHERE user_id = ? ORDER BY view_date DESC LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list wins views: %w", err)
	}
	defer rows.Close()

	var result []*WinsView
	for rows.Next() {
		var (
			view       WinsView
			updatedRaw string
		)
		if err := rows.Scan(&view.UserID, &view.ViewDate, &view.TitleRef, &view.DescriptionRef, &updatedRaw); err != nil {
			return nil, err
		}
		view.UpdatedAt = parseTime(updatedRaw)
		result = append(result, &view)
	}
	return result, rows.Err()
}

func scanCompass(scanner interface{ Scan(dest ...any) error }) (*CompassView, error) {
	var (
		view       CompassView
		updatedRaw string
	)
	if err := scanner.Scan(
		&view.UserID,
		&view.ViewDate,
		&view.Mood,
		&view.Energy,
		&view.MainPriority,
		&view.PriorityNote,
		&view.Completion,
		&view.Blocker,
		&view.ImprovementNote,
		&view.ReflectionRef,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	view.UpdatedAt = parseTime(updatedRaw)
	return &view, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
