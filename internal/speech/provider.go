// Package speech wraps the external speech-to-text provider. The provider is
// a black box: audio bytes in, transcript text out. Empty or whitespace-only
// output is a provider error, never a successful empty answer.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"daybook/internal/config"
	"daybook/internal/services"
)

// Result holds a usable transcript and the model that produced it.
type Result struct {
	Text  string
	Model string
}

// Provider converts recorded audio into transcript text.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, filenameHint string) (Result, error)
}

// HTTPProvider calls an OpenAI-style transcription endpoint.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPProvider builds a provider from config. Returns a configuration
// error when no endpoint is set.
func NewHTTPProvider(cfg *config.Config) (*HTTPProvider, error) {
	endpoint := strings.TrimSpace(cfg.Speech.Endpoint)
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "speech", "init", "speech.endpoint is not configured", nil)
	}
	timeout := time.Duration(cfg.Speech.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   cfg.Speech.APIKey,
		model:    cfg.Speech.Model,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the configured model.
func (p *HTTPProvider) Name() string {
	return p.model
}

// Transcribe uploads audio and returns the transcript text.
func (p *HTTPProvider) Transcribe(ctx context.Context, audio []byte, filenameHint string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "speech", "transcribe", "no audio supplied", nil)
	}
	if filenameHint == "" {
		filenameHint = "answer.m4a"
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filenameHint)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "build upload", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "write upload", err)
	}
	if p.model != "" {
		if err := form.WriteField("model", p.model); err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "write model field", err)
		}
	}
	if err := form.Close(); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "finalize upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "speech", "transcribe", "build request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "call provider", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "read provider response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", fmt.Sprintf("provider status %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, services.Wrap(services.ErrProvider, "speech", "transcribe", "unparseable provider response", err)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return Result{}, services.Wrap(services.ErrProvider, "speech", "transcribe", "provider returned no usable text", nil)
	}
	return Result{Text: text, Model: p.model}, nil
}
