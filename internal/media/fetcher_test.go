package media_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"daybook/internal/media"
	"daybook/internal/services"
)

func TestFetchDownloadsAudio(t *testing.T) {
	payload := []byte("fake-audio-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	t.Cleanup(server.Close)

	fetcher := media.NewHTTPFetcher(5 * time.Second)
	data, err := fetcher.Fetch(context.Background(), server.URL+"/clip.m4a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestFetchClassifiesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			// zero-byte body
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)

	fetcher := media.NewHTTPFetcher(5 * time.Second)
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, "not-a-url"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad locator: %v", err)
	}
	if _, err := fetcher.Fetch(ctx, server.URL+"/missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing audio: %v", err)
	}
	if _, err := fetcher.Fetch(ctx, server.URL+"/empty"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty body: %v", err)
	}
	if _, err := fetcher.Fetch(ctx, server.URL+"/flaky"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("server fault should be transient: %v", err)
	}
}
