package queue

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transcription_jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    response_ref TEXT NOT NULL,
    audio_locator TEXT NOT NULL,
    stage_id TEXT NOT NULL,
    correlation_token TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    submitted_at TEXT,
    priority INTEGER NOT NULL DEFAULT 1,
    status TEXT NOT NULL DEFAULT 'pending',
    progress INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL DEFAULT 3,
    next_attempt_at TEXT,
    lease_owner TEXT,
    last_heartbeat TEXT,
    provider_model TEXT,
    error_message TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_claim
    ON transcription_jobs(status, next_attempt_at, priority DESC, created_at);

CREATE INDEX IF NOT EXISTS idx_jobs_token
    ON transcription_jobs(correlation_token);
`

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}
