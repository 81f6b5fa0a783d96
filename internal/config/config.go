package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind" env:"DAYBOOK_API_BIND"`
}

// Transcription contains job queue and worker tuning.
type Transcription struct {
	Concurrency      int `toml:"concurrency"`
	MaxAttempts      int `toml:"max_attempts"`
	BackoffInitialMS int `toml:"backoff_initial_ms"`
	RetainCompleted  int `toml:"retain_completed"`
	RetainFailed     int `toml:"retain_failed"`
}

// Speech contains configuration for the speech-to-text provider.
type Speech struct {
	Endpoint       string `toml:"endpoint" env:"DAYBOOK_SPEECH_ENDPOINT"`
	APIKey         string `toml:"api_key" env:"DAYBOOK_SPEECH_API_KEY"`
	Model          string `toml:"model"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Callback contains configuration for the response record write-back.
type Callback struct {
	BaseURL        string `toml:"base_url" env:"DAYBOOK_CALLBACK_URL"`
	AuthToken      string `toml:"auth_token" env:"DAYBOOK_CALLBACK_TOKEN"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Journal contains settings for interaction event capture and bucketing.
type Journal struct {
	Timezone string `toml:"timezone"`
}

// Stream contains configuration for the change-feed consumer.
type Stream struct {
	ConsumerName string `toml:"consumer_name"`
	PollInterval int    `toml:"poll_interval"`
	BatchSize    int    `toml:"batch_size"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic" env:"DAYBOOK_NTFY_TOPIC"`
	RequestTimeout     int    `toml:"request_timeout"`
	Errors             bool   `toml:"errors"`
	Queue              bool   `toml:"queue"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains daemon timing and interval settings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Speech        Speech        `toml:"speech"`
	Callback      Callback      `toml:"callback"`
	Journal       Journal       `toml:"journal"`
	Stream        Stream        `toml:"stream"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return "~/.config/daybook/config.toml"
}

// Load reads the config file at path (or the default location when path is
// empty), applies environment overrides, and validates the result. A missing
// file yields defaults rather than an error so fresh installs work.
func Load(path string) (*Config, string, error) {
	resolvedPath := strings.TrimSpace(path)
	if resolvedPath == "" {
		resolvedPath = DefaultConfigPath()
	}
	expandedPath, err := expandPath(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(expandedPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, expandedPath, fmt.Errorf("parse config %s: %w", expandedPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults apply.
	default:
		return nil, expandedPath, fmt.Errorf("read config %s: %w", expandedPath, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, expandedPath, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, expandedPath, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, expandedPath, err
	}
	return &cfg, expandedPath, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must not be empty")
	}
	if c.Transcription.Concurrency <= 0 {
		return errors.New("transcription.concurrency must be positive")
	}
	if c.Transcription.MaxAttempts <= 0 {
		return errors.New("transcription.max_attempts must be positive")
	}
	if c.Transcription.BackoffInitialMS <= 0 {
		return errors.New("transcription.backoff_initial_ms must be positive")
	}
	if c.Stream.BatchSize <= 0 {
		return errors.New("stream.batch_size must be positive")
	}
	if c.Stream.PollInterval <= 0 {
		return errors.New("stream.poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 || c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow heartbeat settings must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("journal.timezone: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the path of the shared SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "daybook.db")
}

// Location resolves the configured journal timezone. Empty or "local" maps
// to the host timezone so date bucketing follows the deployment's locale.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Journal.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Speech.Endpoint = strings.TrimSpace(c.Speech.Endpoint)
	c.Callback.BaseURL = strings.TrimRight(strings.TrimSpace(c.Callback.BaseURL), "/")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if strings.TrimSpace(c.Stream.ConsumerName) == "" {
		c.Stream.ConsumerName = defaultStreamConsumerName
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Clean(trimmed), nil
}
