package queue

import (
	"context"
	"log/slog"
	"time"

	"daybook/internal/config"
	"daybook/internal/logging"
)

// JobHandle is the caller-visible receipt for an enqueued job.
type JobHandle struct {
	ID       int64
	Priority int
}

// Facade wraps the job store for request-path callers. When the backend is
// unavailable at construction the facade runs disabled: enqueue yields nil,
// queries yield empty results, and stats report Available=false. It never
// propagates backend faults into the calling request.
type Facade struct {
	store  *Store
	logger *slog.Logger
}

// NewFacade opens the queue backend, degrading to disabled mode on failure.
func NewFacade(cfg *config.Config, logger *slog.Logger) *Facade {
	logger = logging.NewComponentLogger(logger, "job-queue")
	store, err := Open(cfg, Options{
		MaxAttempts:     cfg.Transcription.MaxAttempts,
		BackoffInitial:  backoffFromConfig(cfg),
		RetainCompleted: cfg.Transcription.RetainCompleted,
		RetainFailed:    cfg.Transcription.RetainFailed,
	})
	if err != nil {
		logger.Warn("transcription queue unavailable; feature disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_disabled"),
		)
		return &Facade{logger: logger}
	}
	return &Facade{store: store, logger: logger}
}

// NewFacadeWithStore wraps an already-open store, for processes that treat a
// missing backend as fatal and open it themselves.
func NewFacadeWithStore(store *Store, logger *slog.Logger) *Facade {
	return &Facade{store: store, logger: logging.NewComponentLogger(logger, "job-queue")}
}

// Available reports whether the queue backend is reachable.
func (f *Facade) Available() bool {
	return f != nil && f.store != nil
}

// Enqueue submits a transcription job. Returns nil (without error) when the
// queue is disabled or the insert fails; submission is best-effort from the
// caller's point of view.
func (f *Facade) Enqueue(ctx context.Context, payload Payload) *JobHandle {
	if !f.Available() {
		return nil
	}
	job, err := f.store.Enqueue(ctx, payload)
	if err != nil {
		f.logger.Error("enqueue failed",
			logging.Error(err),
			logging.String("response_ref", payload.ResponseRef),
			logging.String(logging.FieldToken, payload.CorrelationToken),
		)
		return nil
	}
	f.logger.Info("job enqueued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("priority", job.Priority),
		logging.Int64("duration_ms", job.DurationMS),
		logging.String(logging.FieldToken, job.CorrelationToken),
	)
	return &JobHandle{ID: job.ID, Priority: job.Priority}
}

// Status returns all jobs for a correlation token; empty when disabled.
func (f *Facade) Status(ctx context.Context, token string) []*Job {
	if !f.Available() || token == "" {
		return nil
	}
	jobs, err := f.store.ByToken(ctx, token)
	if err != nil {
		f.logger.Error("status query failed", logging.Error(err), logging.String(logging.FieldToken, token))
		return nil
	}
	return jobs
}

// StatusByID returns a single job; nil when disabled or missing.
func (f *Facade) StatusByID(ctx context.Context, id int64) *Job {
	if !f.Available() {
		return nil
	}
	job, err := f.store.GetByID(ctx, id)
	if err != nil {
		f.logger.Error("status lookup failed", logging.Error(err), logging.Int64(logging.FieldJobID, id))
		return nil
	}
	return job
}

// QueueStats reports aggregate counts; Available is false when disabled or
// when the backend query fails.
func (f *Facade) QueueStats(ctx context.Context) Stats {
	if !f.Available() {
		return Stats{}
	}
	stats, err := f.store.StatsSummary(ctx)
	if err != nil {
		f.logger.Error("stats query failed", logging.Error(err))
		return Stats{}
	}
	return stats
}

// Close releases the backend connection.
func (f *Facade) Close() error {
	if !f.Available() {
		return nil
	}
	return f.store.Close()
}

func backoffFromConfig(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Transcription.BackoffInitialMS) * time.Millisecond
}
