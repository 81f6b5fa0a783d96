package views

import "time"

// DateLayout is the local-date bucket key format.
const DateLayout = "2006-01-02"

// CompassView is one user's daily check-in document. Each field is filled by
// the most recent matching event for that local date.
type CompassView struct {
	UserID          string    `json:"userId"`
	ViewDate        string    `json:"viewDate"`
	Mood            string    `json:"mood,omitempty"`
	Energy          string    `json:"energy,omitempty"`
	MainPriority    string    `json:"mainPriority,omitempty"`
	PriorityNote    string    `json:"priorityNote,omitempty"`
	Completion      string    `json:"completion,omitempty"`
	Blocker         string    `json:"blocker,omitempty"`
	ImprovementNote string    `json:"improvementNote,omitempty"`
	ReflectionRef   string    `json:"reflectionRef,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// WinsView is one user's daily accomplishment document. The ref fields hold
// event identifiers rather than copied text, so edits to the underlying
// answer need no view rebuild.
type WinsView struct {
	UserID         string    `json:"userId"`
	ViewDate       string    `json:"viewDate"`
	TitleRef       string    `json:"titleRef,omitempty"`
	DescriptionRef string    `json:"descriptionRef,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BucketDate converts an event capture instant into its local-date bucket
// key for the given location.
func BucketDate(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return at.In(loc).Format(DateLayout)
}
