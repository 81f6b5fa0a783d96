package queue_test

import (
	"context"
	"testing"

	"daybook/internal/logging"
	"daybook/internal/queue"
	"daybook/internal/testsupport"
)

func TestFacadeEnqueueAndStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	facade := queue.NewFacade(cfg, logging.NewNop())
	t.Cleanup(func() { facade.Close() })
	ctx := context.Background()

	if !facade.Available() {
		t.Fatal("facade should be available with a writable data dir")
	}

	handle := facade.Enqueue(ctx, queue.Payload{
		ResponseRef:      "resp-1",
		AudioLocator:     "https://cdn.example/a.m4a",
		StageID:          "stage-2",
		CorrelationToken: "token-1",
		DurationMS:       45_000,
	})
	if handle == nil {
		t.Fatal("expected a job handle")
	}
	if handle.Priority != 100 {
		t.Fatalf("priority = %d, want 100", handle.Priority)
	}

	jobs := facade.Status(ctx, "token-1")
	if len(jobs) != 1 || jobs[0].ID != handle.ID {
		t.Fatalf("unexpected status result: %#v", jobs)
	}
	if job := facade.StatusByID(ctx, handle.ID); job == nil || job.StageID != "stage-2" {
		t.Fatalf("unexpected job lookup: %#v", job)
	}

	stats := facade.QueueStats(ctx)
	if !stats.Available || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFacadeDisabledModeNeverFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// Point the data dir at a path that cannot be created.
	cfg.Paths.DataDir = "/proc/daybook-nonexistent/data"

	facade := queue.NewFacade(cfg, logging.NewNop())
	ctx := context.Background()

	if facade.Available() {
		t.Fatal("facade should be disabled")
	}
	if handle := facade.Enqueue(ctx, queue.Payload{ResponseRef: "r", AudioLocator: "a"}); handle != nil {
		t.Fatalf("disabled enqueue returned %#v", handle)
	}
	if jobs := facade.Status(ctx, "any"); len(jobs) != 0 {
		t.Fatalf("disabled status returned %#v", jobs)
	}
	if job := facade.StatusByID(ctx, 1); job != nil {
		t.Fatalf("disabled lookup returned %#v", job)
	}
	stats := facade.QueueStats(ctx)
	if stats.Available {
		t.Fatal("disabled stats must report unavailable")
	}
	if err := facade.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFacadeEnqueueInvalidPayloadReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	facade := queue.NewFacade(cfg, logging.NewNop())
	t.Cleanup(func() { facade.Close() })

	if handle := facade.Enqueue(context.Background(), queue.Payload{}); handle != nil {
		t.Fatalf("invalid payload should yield nil handle, got %#v", handle)
	}
}
