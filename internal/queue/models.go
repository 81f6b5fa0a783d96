package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is immutable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payload is the caller-supplied description of a transcription job.
type Payload struct {
	ResponseRef      string
	AudioLocator     string
	StageID          string
	CorrelationToken string
	DurationMS       int64
	SubmittedAt      time.Time
}

// Job represents a transcription job persisted in SQLite.
type Job struct {
	ID               int64
	ResponseRef      string
	AudioLocator     string
	StageID          string
	CorrelationToken string
	DurationMS       int64
	SubmittedAt      time.Time
	Priority         int
	Status           Status
	Progress         int
	Attempts         int
	MaxAttempts      int
	NextAttemptAt    *time.Time
	LeaseOwner       string
	LastHeartbeat    *time.Time
	ProviderModel    string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsTerminal reports whether the job has reached an immutable state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// PriorityFor computes scheduling priority from audio duration. Shorter
// clips score higher; one point is lost per full minute, clamped at 1.
func PriorityFor(durationMS int64) int {
	if durationMS < 0 {
		durationMS = 0
	}
	priority := 100 - int(durationMS/60000)
	if priority < 1 {
		priority = 1
	}
	return priority
}

// Stats summarizes queue contents for status reporting. Available is false
// when the queue backend could not be reached.
type Stats struct {
	Available bool
	Pending   int
	Active    int
	Completed int
	Failed    int
	Total     int
}

// Options tunes retry and retention behavior.
type Options struct {
	MaxAttempts     int
	BackoffInitial  time.Duration
	RetainCompleted int
	RetainFailed    int
}

// DefaultOptions returns the retry and retention defaults: three attempts,
// exponential backoff from two seconds, a small bounded window of finished
// jobs kept for inspection.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		BackoffInitial:  2 * time.Second,
		RetainCompleted: 50,
		RetainFailed:    50,
	}
}

func (o Options) normalized() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 2 * time.Second
	}
	if o.RetainCompleted <= 0 {
		o.RetainCompleted = 50
	}
	if o.RetainFailed <= 0 {
		o.RetainFailed = 50
	}
	return o
}

// backoffDelay returns the wait before the next attempt given how many
// attempts have already been consumed.
func (o Options) backoffDelay(attempts int) time.Duration {
	delay := o.BackoffInitial
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
