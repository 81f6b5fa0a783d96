package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"daybook/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Transcription.Concurrency != 2 {
		t.Fatalf("default concurrency = %d, want 2", cfg.Transcription.Concurrency)
	}
	if cfg.Transcription.MaxAttempts != 3 {
		t.Fatalf("default max attempts = %d, want 3", cfg.Transcription.MaxAttempts)
	}
	if cfg.Transcription.BackoffInitialMS != 2000 {
		t.Fatalf("default backoff = %d, want 2000", cfg.Transcription.BackoffInitialMS)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[callback]
base_url = "http://localhost:9000/api/"

[transcription]
concurrency = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.Concurrency != 4 {
		t.Fatalf("concurrency = %d, want 4", cfg.Transcription.Concurrency)
	}
	if strings.HasSuffix(cfg.Callback.BaseURL, "/") {
		t.Fatalf("callback base URL should be trimmed, got %q", cfg.Callback.BaseURL)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "daybook.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DAYBOOK_NTFY_TOPIC", "https://ntfy.example/daybook")
	t.Setenv("DAYBOOK_SPEECH_ENDPOINT", "https://stt.example/v1")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/daybook" {
		t.Fatalf("ntfy topic override not applied: %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Speech.Endpoint != "https://stt.example/v1" {
		t.Fatalf("speech endpoint override not applied: %q", cfg.Speech.Endpoint)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero concurrency", func(c *config.Config) { c.Transcription.Concurrency = 0 }},
		{"zero attempts", func(c *config.Config) { c.Transcription.MaxAttempts = 0 }},
		{"zero backoff", func(c *config.Config) { c.Transcription.BackoffInitialMS = 0 }},
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }},
		{"heartbeat timeout below interval", func(c *config.Config) {
			c.Workflow.HeartbeatInterval = 30
			c.Workflow.HeartbeatTimeout = 20
		}},
		{"bogus timezone", func(c *config.Config) { c.Journal.Timezone = "Nowhere/Invalid" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if cfg.Stream.ConsumerName != "view-materializer" {
		t.Fatalf("sample consumer name = %q", cfg.Stream.ConsumerName)
	}
}
