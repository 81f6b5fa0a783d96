// Package progress projects internal job state into the caller-facing status
// vocabulary. Internal queue states never leak to clients; callers see
// pending, processing, transcribed, or failed.
package progress

import (
	"context"
	"time"

	"daybook/internal/queue"
)

// Display statuses exposed to clients polling for transcription state.
const (
	StatusPending     = "pending"
	StatusProcessing  = "processing"
	StatusTranscribed = "transcribed"
	StatusFailed      = "failed"
	StatusUnknown     = "unknown"
)

// Snapshot is the client-facing view of a single job.
type Snapshot struct {
	JobID      int64     `json:"jobId"`
	StageID    string    `json:"stageId"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Source supplies job records for projection. *queue.Facade satisfies it.
type Source interface {
	Status(ctx context.Context, token string) []*queue.Job
	StatusByID(ctx context.Context, id int64) *queue.Job
}

// Tracker translates queue records into display snapshots.
type Tracker struct {
	source Source
}

// NewTracker builds a tracker over the given job source.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// ByToken returns snapshots for every job tied to the correlation token,
// oldest first. A disabled queue yields an empty slice, never an error.
func (t *Tracker) ByToken(ctx context.Context, token string) []Snapshot {
	jobs := t.source.Status(ctx, token)
	snapshots := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, project(job))
	}
	return snapshots
}

// ByID returns the snapshot for one job, or nil when it does not exist.
func (t *Tracker) ByID(ctx context.Context, id int64) *Snapshot {
	job := t.source.StatusByID(ctx, id)
	if job == nil {
		return nil
	}
	snapshot := project(job)
	return &snapshot
}

// DisplayStatus maps an internal queue state to the client vocabulary.
func DisplayStatus(status queue.Status) string {
	switch status {
	case queue.StatusCompleted:
		return StatusTranscribed
	case queue.StatusFailed:
		return StatusFailed
	case queue.StatusActive:
		return StatusProcessing
	case queue.StatusPending:
		return StatusPending
	default:
		return StatusUnknown
	}
}

func project(job *queue.Job) Snapshot {
	return Snapshot{
		JobID:      job.ID,
		StageID:    job.StageID,
		Status:     DisplayStatus(job.Status),
		Progress:   job.Progress,
		DurationMS: job.DurationMS,
		CreatedAt:  job.CreatedAt,
	}
}
