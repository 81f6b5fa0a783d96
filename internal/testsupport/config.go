package testsupport

import (
	"path/filepath"
	"testing"

	"daybook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timing tuned for fast test runs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1
	cfg.Stream.PollInterval = 1
	cfg.Journal.Timezone = "UTC"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithTimezone overrides the journal bucketing timezone.
func WithTimezone(tz string) ConfigOption {
	return func(c *config.Config) {
		c.Journal.Timezone = tz
	}
}

// WithConcurrency overrides the worker concurrency limit.
func WithConcurrency(n int) ConfigOption {
	return func(c *config.Config) {
		c.Transcription.Concurrency = n
	}
}
