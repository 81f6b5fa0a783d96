package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"daybook/internal/config"
)

// Store manages transcription job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	opts Options
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	claimRetryAttempts      = 3
)

// Open initializes or connects to the job database.
func Open(cfg *config.Config, opts Options) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath, opts: opts.normalized()}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Enqueue inserts a new pending job. Priority is derived from the audio
// duration at enqueue time.
func (s *Store) Enqueue(ctx context.Context, payload Payload) (*Job, error) {
	if strings.TrimSpace(payload.ResponseRef) == "" {
		return nil, errors.New("response ref is required")
	}
	if strings.TrimSpace(payload.AudioLocator) == "" {
		return nil, errors.New("audio locator is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	submitted := payload.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO transcription_jobs (
            response_ref, audio_locator, stage_id, correlation_token,
            duration_ms, submitted_at, priority, status, progress,
            attempts, max_attempts, next_attempt_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`,
		payload.ResponseRef,
		payload.AudioLocator,
		payload.StageID,
		payload.CorrelationToken,
		payload.DurationMS,
		submitted.UTC().Format(time.RFC3339Nano),
		PriorityFor(payload.DurationMS),
		StatusPending,
		s.opts.MaxAttempts,
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM transcription_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ByToken returns all jobs carrying the caller correlation token, oldest first.
func (s *Store) ByToken(ctx context.Context, token string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM transcription_jobs WHERE correlation_token = ? ORDER BY created_at, id`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Claim leases the highest-priority due pending job to owner. The update is
// conditional on the pending status, so concurrent claimants receive
// disjoint jobs. Returns nil when nothing is due.
func (s *Store) Claim(ctx context.Context, owner string) (*Job, error) {
	for attempt := 0; attempt < claimRetryAttempts; attempt++ {
		now := time.Now().UTC()
		nowStr := now.Format(time.RFC3339Nano)

		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM transcription_jobs
             WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
             ORDER BY priority DESC, created_at, id LIMIT 1`,
			StatusPending,
			nowStr,
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select claimable job: %w", err)
		}

		res, err := s.execWithRetry(
			ctx,
			`UPDATE transcription_jobs
             SET status = ?, lease_owner = ?, attempts = attempts + 1,
                 last_heartbeat = ?, progress = 0, error_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusActive,
			owner,
			nowStr,
			nowStr,
			id,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
		// Lost the race to another worker; pick again.
	}
	return nil, nil
}

// SetProgress records job progress. Values are clamped to [0,100] and never
// regress: a lower value than the stored one is ignored.
func (s *Store) SetProgress(ctx context.Context, id int64, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	err := s.execWithoutResult(
		ctx,
		`UPDATE transcription_jobs
         SET progress = CASE WHEN ? > progress THEN ? ELSE progress END, updated_at = ?
         WHERE id = ? AND status = ?`,
		progress,
		progress,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusActive,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// MarkCompleted transitions an active job to its terminal completed state.
func (s *Store) MarkCompleted(ctx context.Context, id int64, providerModel string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcription_jobs
         SET status = ?, progress = 100, provider_model = ?, lease_owner = NULL,
             last_heartbeat = NULL, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		providerModel,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusActive,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not active", id)
	}
	return nil
}

// MarkFailed records a failed attempt. Retryable failures with remaining
// attempt budget reschedule the job with exponential backoff; everything
// else reaches the terminal failed state. Returns true when the failure is
// terminal.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string, retryable bool) (bool, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, fmt.Errorf("job %d not found", id)
	}
	if job.IsTerminal() {
		return true, nil
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	if retryable && job.Attempts < job.MaxAttempts {
		next := now.Add(s.opts.backoffDelay(job.Attempts))
		err := s.execWithoutResult(
			ctx,
			`UPDATE transcription_jobs
             SET status = ?, next_attempt_at = ?, progress = 0, lease_owner = NULL,
                 last_heartbeat = NULL, error_message = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusPending,
			next.Format(time.RFC3339Nano),
			reason,
			nowStr,
			id,
			StatusActive,
		)
		if err != nil {
			return false, fmt.Errorf("reschedule job: %w", err)
		}
		return false, nil
	}

	err = s.execWithoutResult(
		ctx,
		`UPDATE transcription_jobs
         SET status = ?, lease_owner = NULL, last_heartbeat = NULL,
             error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		reason,
		nowStr,
		id,
		StatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return true, nil
}

// UpdateHeartbeat refreshes the lease heartbeat for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithoutResult(
		ctx,
		`UPDATE transcription_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusActive,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns active jobs with expired heartbeats to pending. The
// consumed attempt is restored: lease expiry means a dead worker, not a
// processing failure.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcription_jobs
         SET status = ?, lease_owner = NULL, last_heartbeat = NULL, progress = 0,
             attempts = CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END,
             next_attempt_at = ?, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		now,
		now,
		StatusActive,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// PruneFinished deletes finished jobs beyond the configured retention
// windows, newest kept.
func (s *Store) PruneFinished(ctx context.Context) (int64, error) {
	var total int64
	for status, keep := range map[Status]int{
		StatusCompleted: s.opts.RetainCompleted,
		StatusFailed:    s.opts.RetainFailed,
	} {
		res, err := s.execWithRetry(
			ctx,
			`DELETE FROM transcription_jobs
             WHERE status = ? AND id NOT IN (
                 SELECT id FROM transcription_jobs WHERE status = ?
                 ORDER BY updated_at DESC, id DESC LIMIT ?
             )`,
			status,
			status,
			keep,
		)
		if err != nil {
			return total, fmt.Errorf("prune %s jobs: %w", status, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// StatsSummary returns a count of jobs grouped by status.
func (s *Store) StatsSummary(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM transcription_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Available: true}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusActive:
			stats.Active = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("queue database connection unavailable")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

const jobColumns = "id, response_ref, audio_locator, stage_id, correlation_token, duration_ms, submitted_at, priority, status, progress, attempts, max_attempts, next_attempt_at, lease_owner, last_heartbeat, provider_model, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            int64
		responseRef   string
		audioLocator  string
		stageID       string
		token         string
		durationMS    int64
		submittedRaw  sql.NullString
		priority      int
		statusStr     string
		progress      int
		attempts      int
		maxAttempts   int
		nextAttemptAt sql.NullString
		leaseOwner    sql.NullString
		heartbeatRaw  sql.NullString
		providerModel sql.NullString
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&responseRef,
		&audioLocator,
		&stageID,
		&token,
		&durationMS,
		&submittedRaw,
		&priority,
		&statusStr,
		&progress,
		&attempts,
		&maxAttempts,
		&nextAttemptAt,
		&leaseOwner,
		&heartbeatRaw,
		&providerModel,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:               id,
		ResponseRef:      responseRef,
		AudioLocator:     audioLocator,
		StageID:          stageID,
		CorrelationToken: token,
		DurationMS:       durationMS,
		Priority:         priority,
		Status:           Status(statusStr),
		Progress:         progress,
		Attempts:         attempts,
		MaxAttempts:      maxAttempts,
		LeaseOwner:       leaseOwner.String,
		ProviderModel:    providerModel.String,
		ErrorMessage:     errorMessage.String,
	}
	if submitted, err := parseTimeString(submittedRaw.String); err == nil {
		job.SubmittedAt = submitted
	}
	if next, err := parseTimeString(nextAttemptAt.String); err == nil {
		job.NextAttemptAt = &next
	}
	if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
		job.LastHeartbeat = &heartbeat
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResult(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
