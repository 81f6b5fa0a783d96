package callback_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"daybook/internal/callback"
	"daybook/internal/services"
	"daybook/internal/testsupport"
)

func newWriter(t *testing.T, base string) *callback.HTTPWriter {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Callback.BaseURL = base
	cfg.Callback.AuthToken = "secret"
	writer, err := callback.NewHTTPWriter(cfg)
	if err != nil {
		t.Fatalf("NewHTTPWriter: %v", err)
	}
	return writer
}

func TestUpdateResponseDeliversPayload(t *testing.T) {
	var gotPath, gotAuth string
	var gotResult callback.Result
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotResult); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	writer := newWriter(t, server.URL)
	err := writer.UpdateResponse(context.Background(), "tok-1", "stage-3", callback.Result{
		ResponseText:  "All done.",
		Status:        callback.StatusTranscribed,
		ProviderModel: "whisper-1",
	})
	if err != nil {
		t.Fatalf("UpdateResponse: %v", err)
	}
	if gotPath != "/responses/tok-1/stages/stage-3" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotResult.Status != callback.StatusTranscribed || gotResult.ResponseText != "All done." {
		t.Fatalf("payload = %+v", gotResult)
	}
}

func TestUpdateResponseClassifiesStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/responses/missing/stages/s":
			http.NotFound(w, r)
		case "/responses/flaky/stages/s":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
	}))
	t.Cleanup(server.Close)

	writer := newWriter(t, server.URL)
	ctx := context.Background()

	if err := writer.UpdateResponse(ctx, "missing", "s", callback.Result{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing record: %v", err)
	}
	if err := writer.UpdateResponse(ctx, "flaky", "s", callback.Result{}); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("server fault: %v", err)
	}
	if err := writer.UpdateResponse(ctx, "rejected", "s", callback.Result{}); !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("rejected update: %v", err)
	}
	if err := writer.UpdateResponse(ctx, "", "s", callback.Result{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty token: %v", err)
	}
}

func TestFailureMarker(t *testing.T) {
	if got := callback.FailureMarker("provider returned no usable text"); got != "[Transcription failed: provider returned no usable text]" {
		t.Fatalf("marker = %q", got)
	}
	if got := callback.FailureMarker("  "); got != "[Transcription failed: unknown error]" {
		t.Fatalf("empty reason marker = %q", got)
	}
}
