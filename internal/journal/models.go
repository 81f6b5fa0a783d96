package journal

import (
	"strings"
	"time"
)

// Kind classifies an interaction event by the journaling surface that
// produced it.
type Kind string

const (
	// KindCompass covers the daily check-in prompts: mood, energy,
	// priorities, blockers, completions, and improvement notes.
	KindCompass Kind = "compass"
	// KindWin covers accomplishment capture prompts.
	KindWin Kind = "win"
	// KindReflection covers free-form reflection answers.
	KindReflection Kind = "reflection"
	// KindGratitude covers gratitude prompts.
	KindGratitude Kind = "gratitude"
	// KindGoal covers goal-setting prompts.
	KindGoal Kind = "goal"
)

var knownKinds = map[Kind]struct{}{
	KindCompass:    {},
	KindWin:        {},
	KindReflection: {},
	KindGratitude:  {},
	KindGoal:       {},
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownKinds[kind]
	return kind, ok
}

// Event is one captured journal interaction: a prompt shown to the user and
// the answer they gave. ID is the append-order sequence the change feed
// follows; UID is the stable external identifier other records reference.
type Event struct {
	ID            int64
	UID           string
	UserID        string
	Kind          Kind
	Prompt        string
	Response      string
	NumericAnswer *float64
	MetaTag       string
	CapturedAt    time.Time
}
