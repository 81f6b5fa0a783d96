// Package callback writes finished transcription results back into the
// journaling application's response records, keyed by correlation token and
// stage identifier.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"daybook/internal/config"
	"daybook/internal/services"
)

const (
	// StatusTranscribed marks a record holding usable transcript text.
	StatusTranscribed = "transcribed"
	// StatusError marks a record holding a human-readable failure placeholder.
	StatusError = "error"
)

// Result is the payload delivered to the downstream record.
type Result struct {
	ResponseText  string `json:"responseText"`
	Status        string `json:"status"`
	ProviderModel string `json:"providerModel,omitempty"`
}

// Writer delivers transcription outcomes to the downstream record keyed by
// (correlation token, stage id).
type Writer interface {
	UpdateResponse(ctx context.Context, token, stageID string, result Result) error
}

// FailureMarker renders the placeholder stored when transcription fails
// terminally, so the UI shows a readable state instead of a stuck answer.
func FailureMarker(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("[Transcription failed: %s]", reason)
}

// HTTPWriter performs the record update over HTTP.
type HTTPWriter struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewHTTPWriter builds a writer from config. Returns a configuration error
// when no base URL is set.
func NewHTTPWriter(cfg *config.Config) (*HTTPWriter, error) {
	base := strings.TrimSpace(cfg.Callback.BaseURL)
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "callback", "init", "callback.base_url is not configured", nil)
	}
	timeout := time.Duration(cfg.Callback.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPWriter{
		baseURL:   strings.TrimRight(base, "/"),
		authToken: cfg.Callback.AuthToken,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// UpdateResponse patches the response record for (token, stageID).
func (w *HTTPWriter) UpdateResponse(ctx context.Context, token, stageID string, result Result) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(stageID) == "" {
		return services.Wrap(services.ErrValidation, "callback", "update", "token and stage id are required", nil)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrValidation, "callback", "update", "encode result", err)
	}

	url := fmt.Sprintf("%s/responses/%s/stages/%s", w.baseURL, token, stageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "callback", "update", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.authToken)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "callback", "update", "deliver result", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "callback", "update", fmt.Sprintf("no record for token %s stage %s", token, stageID), nil)
	case resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "callback", "update", fmt.Sprintf("record update status %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrPersistence, "callback", "update", fmt.Sprintf("record update status %d", resp.StatusCode), nil)
	}
}
