package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"daybook/internal/cache"
	"daybook/internal/config"
)

const userAgent = "Daybook/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyTranscriptionFailed(ctx context.Context, responseRef, reason string) error
	NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. The
// dedupe cache is injected so the owner controls its bounds; pass nil to
// build one from the configured window.
func NewService(cfg *config.Config, dedupe *cache.TTL) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dedupe == nil {
		window := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
		if window <= 0 {
			window = 10 * time.Minute
		}
		dedupe = cache.NewTTL(128, window)
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		dedupe:       dedupe,
		notifyErrors: cfg.Notifications.Errors,
		notifyQueue:  cfg.Notifications.Queue,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	dedupe       *cache.TTL
	notifyErrors bool
	notifyQueue  bool
}

func (n *ntfyService) NotifyTranscriptionFailed(ctx context.Context, responseRef, reason string) error {
	if !n.notifyErrors {
		return nil
	}
	responseRef = strings.TrimSpace(responseRef)
	reason = strings.TrimSpace(reason)
	data := payload{
		title:    "Daybook - Transcription Failed",
		message:  fmt.Sprintf("Answer %s could not be transcribed: %s", responseRef, reason),
		tags:     []string{"daybook", "transcription", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.notifyQueue {
		return nil
	}
	data := payload{
		title:   "Daybook - Queue Drained",
		message: fmt.Sprintf("Processed %d answers (%d failed) in %s", processed, failed, duration.Round(time.Second)),
		tags:    []string{"daybook", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors || err == nil {
		return nil
	}
	data := payload{
		title:    "Daybook - Error",
		message:  fmt.Sprintf("%s: %s", strings.TrimSpace(contextLabel), err.Error()),
		tags:     []string{"daybook", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Daybook - Test",
		message: "Notifications are configured correctly.",
		tags:    []string{"daybook", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.dedupe != nil && !n.dedupe.Add(data.title+"|"+data.message) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyTranscriptionFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }

// Noop returns the disabled notification service, used by tests and by
// processes that never notify.
func Noop() Service {
	return noopService{}
}
