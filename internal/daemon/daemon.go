package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"daybook/internal/cache"
	"daybook/internal/callback"
	"daybook/internal/config"
	"daybook/internal/journal"
	"daybook/internal/logging"
	"daybook/internal/media"
	"daybook/internal/notifications"
	"daybook/internal/progress"
	"daybook/internal/queue"
	"daybook/internal/services"
	"daybook/internal/speech"
	"daybook/internal/stream"
	"daybook/internal/views"
	"daybook/internal/worker"
)

// Daemon wires the transcription pipeline and the view materializer together
// and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	queueStore   *queue.Store
	facade       *queue.Facade
	journalStore *journal.Store
	viewsStore   *views.Store

	tracker    *progress.Tracker
	dispatcher *views.Dispatcher
	hook       *views.Hook
	worker     *worker.Worker
	consumer   *stream.Consumer
	notifier   notifications.Service

	api      *apiServer
	lockPath string
	lock     *flock.Flock

	running      atomic.Bool
	cancel       context.CancelFunc
	consumerDone chan struct{}
	closeOnce    sync.Once
}

// Status reports daemon runtime information.
type Status struct {
	Running       bool        `json:"running"`
	WorkerEnabled bool        `json:"workerEnabled"`
	Queue         queue.Stats `json:"queue"`
	DatabasePath  string      `json:"databasePath"`
	LockFilePath  string      `json:"lockFilePath"`
	Consumer      string      `json:"consumer"`
}

// New constructs a daemon with all dependencies opened. The queue backend is
// required; the transcription worker is optional and disabled when the
// speech provider or callback target is not configured.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	queueStore, err := queue.Open(cfg, queue.Options{
		MaxAttempts:     cfg.Transcription.MaxAttempts,
		BackoffInitial:  time.Duration(cfg.Transcription.BackoffInitialMS) * time.Millisecond,
		RetainCompleted: cfg.Transcription.RetainCompleted,
		RetainFailed:    cfg.Transcription.RetainFailed,
	})
	if err != nil {
		return nil, fmt.Errorf("open job queue: %w", err)
	}

	journalStore, err := journal.Open(cfg)
	if err != nil {
		_ = queueStore.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	viewsStore, err := views.Open(cfg)
	if err != nil {
		_ = queueStore.Close()
		_ = journalStore.Close()
		return nil, fmt.Errorf("open views: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = queueStore.Close()
		_ = journalStore.Close()
		_ = viewsStore.Close()
		return nil, fmt.Errorf("resolve journal timezone: %w", err)
	}

	dedupeWindow := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
	if dedupeWindow <= 0 {
		dedupeWindow = 10 * time.Minute
	}
	notifier := notifications.NewService(cfg, cache.NewTTL(128, dedupeWindow))

	facade := queue.NewFacadeWithStore(queueStore, logger)
	dispatcher := views.NewDispatcher(viewsStore, loc, logger)

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		queueStore:   queueStore,
		facade:       facade,
		journalStore: journalStore,
		viewsStore:   viewsStore,
		tracker:      progress.NewTracker(facade),
		dispatcher:   dispatcher,
		hook:         views.NewHook(dispatcher, logger),
		consumer:     stream.NewConsumer(journalStore, dispatcher, logger, stream.ConfigFrom(cfg)),
		notifier:     notifier,
		lockPath:     filepath.Join(cfg.Paths.LogDir, "daybookd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.worker = buildWorker(cfg, queueStore, notifier, logger, d.logger)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// buildWorker assembles the transcription worker, or returns nil when the
// provider or callback target is unconfigured. Jobs still enqueue and wait.
func buildWorker(
	cfg *config.Config,
	store *queue.Store,
	notifier notifications.Service,
	logger *slog.Logger,
	daemonLog *slog.Logger,
) *worker.Worker {
	provider, err := speech.NewHTTPProvider(cfg)
	if err != nil {
		daemonLog.Warn("transcription worker disabled", logging.Error(err))
		return nil
	}
	writer, err := callback.NewHTTPWriter(cfg)
	if err != nil {
		daemonLog.Warn("transcription worker disabled", logging.Error(err))
		return nil
	}
	fetchTimeout := time.Duration(cfg.Speech.RequestTimeout) * time.Second
	return worker.New(
		store,
		media.NewHTTPFetcher(fetchTimeout),
		provider,
		writer,
		notifier,
		logger,
		worker.ConfigFrom(cfg),
	)
}

// Start acquires the instance lock and launches the worker pool, the stream
// consumer, and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "start", "acquire lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "daemon", "start", "another daybook daemon instance is already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.worker != nil {
		if err := d.worker.Start(runCtx); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start worker: %w", err)
		}
	}

	d.consumerDone = make(chan struct{})
	go func() {
		defer close(d.consumerDone)
		_ = d.consumer.Run(runCtx)
	}()

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			cancel()
			if d.worker != nil {
				_ = d.worker.Stop()
			}
			<-d.consumerDone
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("daybook daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("worker_enabled", d.worker != nil))
	return nil
}

// Stop shuts down background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.worker != nil {
		_ = d.worker.Stop()
	}
	if d.consumerDone != nil {
		<-d.consumerDone
		d.consumerDone = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daybook daemon stopped")
}

// Close stops the daemon and releases database connections.
func (d *Daemon) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.Stop()
		for _, closer := range []interface{ Close() error }{d.queueStore, d.journalStore, d.viewsStore} {
			if closeErr := closer.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	})
	return err
}

// Status reports the current runtime state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		WorkerEnabled: d.worker != nil,
		Queue:         d.facade.QueueStats(ctx),
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
		Consumer:      d.cfg.Stream.ConsumerName,
	}
}

// CaptureEvent appends an interaction event and applies the inline view
// update. The capture succeeds even when the view write fails; the stream
// consumer replays the event.
func (d *Daemon) CaptureEvent(ctx context.Context, event journal.Event) (*journal.Event, error) {
	stored, err := d.journalStore.Append(ctx, event)
	if err != nil {
		return nil, err
	}
	d.hook.OnEventCaptured(ctx, stored)
	return stored, nil
}

// Health verifies the queue database is reachable.
func (d *Daemon) Health(ctx context.Context) error {
	return d.queueStore.Ping(ctx)
}

// TestNotification sends a test push through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}

// APIAddr returns the bound API address, empty until started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}
