// Package media resolves audio locators to raw bytes for transcription.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"daybook/internal/services"
)

// Fetcher resolves an audio locator to its raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// maxAudioBytes bounds a single download; recorded answers are short clips.
const maxAudioBytes = 64 << 20

// HTTPFetcher downloads audio over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the audio at locator. Malformed locators are validation
// errors; network and server faults are transient.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, services.Wrap(services.ErrValidation, "media", "fetch", fmt.Sprintf("unsupported audio locator %q", locator), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "fetch", "build request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "media", "fetch", "download audio", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "media", "fetch", fmt.Sprintf("audio not found at %s", parsed.Redacted()), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "media", "fetch", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "media", "fetch", "read audio body", err)
	}
	if len(data) > maxAudioBytes {
		return nil, services.Wrap(services.ErrValidation, "media", "fetch", "audio exceeds size limit", nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "fetch", "audio body is empty", nil)
	}
	return data, nil
}
