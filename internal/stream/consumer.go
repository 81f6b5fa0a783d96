package stream

import (
	"context"
	"log/slog"
	"time"

	"daybook/internal/config"
	"daybook/internal/journal"
	"daybook/internal/logging"
)

// Applier materializes one event into its view. *views.Dispatcher satisfies it.
type Applier interface {
	Apply(ctx context.Context, event *journal.Event) error
}

// Config tunes the consumer loop.
type Config struct {
	ConsumerName    string
	PollInterval    time.Duration
	BatchSize       int
	MaxEventRetries int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// ConfigFrom derives consumer settings from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ConsumerName: cfg.Stream.ConsumerName,
		PollInterval: time.Duration(cfg.Stream.PollInterval) * time.Second,
		BatchSize:    cfg.Stream.BatchSize,
	}
}

func (c Config) normalized() Config {
	if c.ConsumerName == "" {
		c.ConsumerName = "view-materializer"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxEventRetries <= 0 {
		c.MaxEventRetries = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.MaxRetryBackoff <= 0 {
		c.MaxRetryBackoff = 30 * time.Second
	}
	return c
}

// Consumer tails the interaction event feed and applies each event in append
// order, checkpointing as it goes. It supervises itself: feed or store
// failures back off and retry rather than exiting, so a database hiccup
// never takes the view pipeline down with it.
type Consumer struct {
	store   *journal.Store
	applier Applier
	logger  *slog.Logger
	cfg     Config
}

// NewConsumer builds a consumer over the given feed and applier.
func NewConsumer(store *journal.Store, applier Applier, logger *slog.Logger, cfg Config) *Consumer {
	return &Consumer{
		store:   store,
		applier: applier,
		logger:  logging.NewComponentLogger(logger, "stream-consumer"),
		cfg:     cfg.normalized(),
	}
}

// Run processes the feed until the context is canceled. It always returns
// nil on cancellation; operational failures are logged and retried.
func (c *Consumer) Run(ctx context.Context) error {
	cursor, ok := c.loadCheckpoint(ctx)
	if !ok {
		return nil
	}
	c.logger.Info("stream consumer started",
		logging.String("consumer", c.cfg.ConsumerName),
		logging.Int64("cursor", cursor))

	backoff := c.cfg.RetryBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := c.store.ListAfter(ctx, cursor, c.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("event feed read failed", logging.Error(err))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = growBackoff(backoff, c.cfg.MaxRetryBackoff)
			continue
		}
		backoff = c.cfg.RetryBackoff

		if len(events) == 0 {
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}

		for _, event := range events {
			if !c.applyWithRetry(ctx, event) {
				return nil
			}
			cursor = event.ID
			if err := c.store.SaveCheckpoint(ctx, c.cfg.ConsumerName, cursor); err != nil && ctx.Err() == nil {
				// The in-memory cursor still advances; a restart replays from
				// the last persisted checkpoint and the upserts converge.
				c.logger.Warn("checkpoint save failed",
					logging.Int64("cursor", cursor),
					logging.Error(err))
			}
		}
	}
}

// applyWithRetry delivers one event, retrying with backoff. After the retry
// budget is spent the event is skipped so one poison event cannot stall the
// whole feed. Returns false only on context cancellation.
func (c *Consumer) applyWithRetry(ctx context.Context, event *journal.Event) bool {
	backoff := c.cfg.RetryBackoff
	for attempt := 1; ; attempt++ {
		err := c.applier.Apply(ctx, event)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= c.cfg.MaxEventRetries {
			c.logger.Error("event skipped after repeated failures",
				logging.String(logging.FieldEventID, event.UID),
				logging.Int64("sequence", event.ID),
				logging.Int("attempts", attempt),
				logging.Error(err))
			return true
		}
		c.logger.Warn("event apply failed; retrying",
			logging.String(logging.FieldEventID, event.UID),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if !sleepCtx(ctx, backoff) {
			return false
		}
		backoff = growBackoff(backoff, c.cfg.MaxRetryBackoff)
	}
}

// loadCheckpoint reads the persisted cursor, retrying until it succeeds or
// the context ends. Returns false on cancellation.
func (c *Consumer) loadCheckpoint(ctx context.Context) (int64, bool) {
	backoff := c.cfg.RetryBackoff
	for {
		cursor, err := c.store.Checkpoint(ctx, c.cfg.ConsumerName)
		if err == nil {
			return cursor, true
		}
		if ctx.Err() != nil {
			return 0, false
		}
		c.logger.Error("checkpoint read failed", logging.Error(err))
		if !sleepCtx(ctx, backoff) {
			return 0, false
		}
		backoff = growBackoff(backoff, c.cfg.MaxRetryBackoff)
	}
}

func growBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
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
