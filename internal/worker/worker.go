package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"daybook/internal/callback"
	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/media"
	"daybook/internal/notifications"
	"daybook/internal/queue"
	"daybook/internal/services"
	"daybook/internal/speech"
)

// Config tunes the worker pool.
type Config struct {
	Concurrency        int
	PollInterval       time.Duration
	ErrorRetryInterval time.Duration
	HeartbeatInterval  time.Duration
	HeartbeatTimeout   time.Duration
}

// ConfigFrom derives worker timing from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Concurrency:        cfg.Transcription.Concurrency,
		PollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		ErrorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		HeartbeatInterval:  time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		HeartbeatTimeout:   time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.ErrorRetryInterval <= 0 {
		c.ErrorRetryInterval = c.PollInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		c.HeartbeatTimeout = 4 * c.HeartbeatInterval
	}
	return c
}

// Worker drains the transcription queue with a bounded pool of claim loops.
// Each slot claims at most one job at a time, so in-flight jobs never exceed
// the configured concurrency.
type Worker struct {
	store    *queue.Store
	fetcher  media.Fetcher
	provider speech.Provider
	results  callback.Writer
	notifier notifications.Service
	logger   *slog.Logger
	cfg      Config
	id       string

	cancel context.CancelFunc
	group  *errgroup.Group

	mu         sync.Mutex
	draining   bool
	drainStart time.Time
	processed  int
	failed     int
	inflight   int
}

// New assembles a worker pool over the given collaborators.
func New(
	store *queue.Store,
	fetcher media.Fetcher,
	provider speech.Provider,
	results callback.Writer,
	notifier notifications.Service,
	logger *slog.Logger,
	cfg Config,
) *Worker {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Worker{
		store:    store,
		fetcher:  fetcher,
		provider: provider,
		results:  results,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "worker"),
		cfg:      cfg.normalized(),
		id:       uuid.NewString(),
	}
}

// Start launches the claim loops. It returns immediately; use Wait or Stop
// to observe shutdown.
func (w *Worker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	w.group = group
	for slot := 0; slot < w.cfg.Concurrency; slot++ {
		slot := slot
		group.Go(func() error {
			return w.runSlot(groupCtx, slot)
		})
	}
	w.logger.Info("worker pool started",
		logging.String("worker_id", w.id),
		logging.Int("concurrency", w.cfg.Concurrency))
	return nil
}

// Wait blocks until every slot has exited.
func (w *Worker) Wait() error {
	if w.group == nil {
		return nil
	}
	return w.group.Wait()
}

// Stop cancels the claim loops and waits for in-flight jobs to finish.
func (w *Worker) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.Wait()
}

func (w *Worker) runSlot(ctx context.Context, slot int) error {
	owner := fmt.Sprintf("%s#%d", w.id, slot)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if slot == 0 {
			w.maintain(ctx)
		}

		job, err := w.store.Claim(ctx, owner)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("claim failed", logging.Error(err))
			if !sleepCtx(ctx, w.cfg.ErrorRetryInterval) {
				return nil
			}
			continue
		}
		if job == nil {
			w.noteIdle(ctx)
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				return nil
			}
			continue
		}

		w.noteClaim()
		err = w.process(ctx, job)
		w.noteDone(err == nil)
		if err != nil && ctx.Err() == nil {
			w.logger.Error("job processing failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err))
		}
	}
}

// maintain reclaims expired leases and trims finished history. Failures are
// logged and retried on the next pass.
func (w *Worker) maintain(ctx context.Context) {
	cutoff := time.Now().Add(-w.cfg.HeartbeatTimeout)
	if reclaimed, err := w.store.ReclaimStale(ctx, cutoff); err != nil {
		w.logger.Error("reclaim stale jobs failed", logging.Error(err))
	} else if reclaimed > 0 {
		w.logger.Warn("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	if _, err := w.store.PruneFinished(ctx); err != nil {
		w.logger.Error("prune finished jobs failed", logging.Error(err))
	}
}

// process runs one job through the pipeline: fetch audio, transcribe, deliver
// the transcript, mark completed. Progress milestones are recorded as each
// stage lands.
func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithRequestID(ctx, job.CorrelationToken)
	log := logging.WithContext(ctx, w.logger)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(hbCtx, job.ID)

	log.Info("job claimed",
		logging.String("response_ref", job.ResponseRef),
		logging.Int("attempt", job.Attempts),
		logging.Int("priority", job.Priority))
	w.setProgress(ctx, log, job.ID, 10)

	audio, err := w.fetcher.Fetch(ctx, job.AudioLocator)
	if err != nil {
		return w.failJob(ctx, log, job, services.Wrap(nil, "worker", "fetch", "fetch audio", err))
	}
	w.setProgress(ctx, log, job.ID, 30)

	log.Info("provider selected", logging.String("provider", w.provider.Name()))
	w.setProgress(ctx, log, job.ID, 40)

	result, err := w.provider.Transcribe(ctx, audio, job.ResponseRef+".m4a")
	if err != nil {
		return w.failJob(ctx, log, job, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return w.failJob(ctx, log, job,
			services.Wrap(services.ErrProvider, "worker", "transcribe", "provider returned no usable text", nil))
	}
	w.setProgress(ctx, log, job.ID, 80)

	err = w.results.UpdateResponse(ctx, job.CorrelationToken, job.StageID, callback.Result{
		ResponseText:  result.Text,
		Status:        callback.StatusTranscribed,
		ProviderModel: result.Model,
	})
	if err != nil {
		return w.failJob(ctx, log, job, err)
	}

	if err := w.store.MarkCompleted(ctx, job.ID, result.Model); err != nil {
		// The transcript is already delivered; the queue record stays behind
		// but the outcome stands.
		log.Error("mark completed failed",
			logging.Error(services.Wrap(services.ErrPersistence, "worker", "complete", "record completion", err)))
		return nil
	}

	log.Info("job completed",
		logging.String("provider", result.Model),
		logging.Int("transcript_chars", len(result.Text)))
	return nil
}

// failJob records a failed attempt. Retryable failures go back to pending
// under the attempt budget; terminal failures additionally write a readable
// placeholder into the response record and raise a notification.
func (w *Worker) failJob(ctx context.Context, log *slog.Logger, job *queue.Job, cause error) error {
	retryable := services.Retryable(cause)
	terminal, err := w.store.MarkFailed(ctx, job.ID, cause.Error(), retryable)
	if err != nil {
		log.Error("mark failed errored", logging.Error(err))
		return cause
	}

	if !terminal {
		log.Warn("job rescheduled",
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", job.MaxAttempts),
			logging.Error(cause))
		return cause
	}

	log.Error("job failed terminally", logging.Error(cause))

	marker := callback.FailureMarker(cause.Error())
	markerErr := w.results.UpdateResponse(ctx, job.CorrelationToken, job.StageID, callback.Result{
		ResponseText: marker,
		Status:       callback.StatusError,
	})
	if markerErr != nil {
		// The placeholder is best effort; the job outcome is already decided.
		log.Error("failure marker write failed", logging.Error(markerErr))
	}

	if notifyErr := w.notifier.NotifyTranscriptionFailed(ctx, job.ResponseRef, cause.Error()); notifyErr != nil {
		log.Warn("failure notification not delivered", logging.Error(notifyErr))
	}
	return cause
}

func (w *Worker) setProgress(ctx context.Context, log *slog.Logger, id int64, progress int) {
	if err := w.store.SetProgress(ctx, id, progress); err != nil {
		log.Warn("progress update failed",
			logging.Int("progress", progress),
			logging.Error(err))
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context, id int64) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.UpdateHeartbeat(ctx, id); err != nil && ctx.Err() == nil {
				w.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldJobID, id),
					logging.Error(err))
			}
		}
	}
}

func (w *Worker) noteClaim() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.draining {
		w.draining = true
		w.drainStart = time.Now()
		w.processed = 0
		w.failed = 0
	}
	w.inflight++
}

func (w *Worker) noteDone(success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight--
	if success {
		w.processed++
	} else {
		w.failed++
	}
}

// noteIdle fires the queue-drained notification once all slots go quiet
// after a busy stretch.
func (w *Worker) noteIdle(ctx context.Context) {
	w.mu.Lock()
	if !w.draining || w.inflight > 0 {
		w.mu.Unlock()
		return
	}
	processed, failed := w.processed, w.failed
	elapsed := time.Since(w.drainStart)
	w.draining = false
	w.mu.Unlock()

	if err := w.notifier.NotifyQueueDrained(ctx, processed, failed, elapsed); err != nil {
		w.logger.Warn("drain notification not delivered", logging.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
