package testsupport

import (
	"context"
	"testing"

	"daybook/internal/config"
	"daybook/internal/journal"
	"daybook/internal/queue"
	"daybook/internal/views"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, queue.Options{
		MaxAttempts:     cfg.Transcription.MaxAttempts,
		RetainCompleted: cfg.Transcription.RetainCompleted,
		RetainFailed:    cfg.Transcription.RetainFailed,
	})
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenQueueWithOptions opens a queue.Store with explicit options.
func MustOpenQueueWithOptions(t testing.TB, cfg *config.Config, opts queue.Options) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenViews opens a views.Store for tests and registers cleanup.
func MustOpenViews(t testing.TB, cfg *config.Config) *views.Store {
	t.Helper()

	store, err := views.Open(cfg)
	if err != nil {
		t.Fatalf("views.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueJob inserts a pending job for tests using the provided store.
func EnqueueJob(t testing.TB, store *queue.Store, payload queue.Payload) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), payload)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
