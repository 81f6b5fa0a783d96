package progress_test

import (
	"context"
	"testing"

	"daybook/internal/progress"
	"daybook/internal/queue"
)

type stubSource struct {
	jobs map[string][]*queue.Job
	byID map[int64]*queue.Job
}

func (s *stubSource) Status(ctx context.Context, token string) []*queue.Job {
	return s.jobs[token]
}

func (s *stubSource) StatusByID(ctx context.Context, id int64) *queue.Job {
	return s.byID[id]
}

func TestDisplayStatusMapping(t *testing.T) {
	cases := []struct {
		in   queue.Status
		want string
	}{
		{queue.StatusPending, progress.StatusPending},
		{queue.StatusActive, progress.StatusProcessing},
		{queue.StatusCompleted, progress.StatusTranscribed},
		{queue.StatusFailed, progress.StatusFailed},
		{queue.Status("corrupted"), progress.StatusUnknown},
	}
	for _, tc := range cases {
		if got := progress.DisplayStatus(tc.in); got != tc.want {
			t.Errorf("DisplayStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestByTokenProjectsJobs(t *testing.T) {
	source := &stubSource{jobs: map[string][]*queue.Job{
		"tok": {
			{ID: 1, StageID: "stage-1", Status: queue.StatusCompleted, Progress: 100, DurationMS: 12_000},
			{ID: 2, StageID: "stage-2", Status: queue.StatusActive, Progress: 40, DurationMS: 90_000},
		},
	}}
	tracker := progress.NewTracker(source)

	snapshots := tracker.ByToken(context.Background(), "tok")
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}
	if snapshots[0].Status != progress.StatusTranscribed || snapshots[0].Progress != 100 {
		t.Fatalf("first snapshot = %+v", snapshots[0])
	}
	if snapshots[1].Status != progress.StatusProcessing || snapshots[1].StageID != "stage-2" {
		t.Fatalf("second snapshot = %+v", snapshots[1])
	}
}

func TestByTokenWithDisabledQueueIsEmpty(t *testing.T) {
	tracker := progress.NewTracker(&stubSource{})
	snapshots := tracker.ByToken(context.Background(), "missing")
	if len(snapshots) != 0 {
		t.Fatalf("got %d snapshots, want 0", len(snapshots))
	}
}

func TestByIDMissingJob(t *testing.T) {
	tracker := progress.NewTracker(&stubSource{byID: map[int64]*queue.Job{
		7: {ID: 7, Status: queue.StatusPending},
	}})

	if snap := tracker.ByID(context.Background(), 7); snap == nil || snap.Status != progress.StatusPending {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap := tracker.ByID(context.Background(), 99); snap != nil {
		t.Fatalf("expected nil for missing job, got %+v", snap)
	}
}
