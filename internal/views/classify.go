package views

import (
	"strconv"
	"strings"

	"daybook/internal/journal"
)

// CompassField names a column of the compass view document.
type CompassField string

const (
	FieldMood            CompassField = "mood"
	FieldEnergy          CompassField = "energy"
	FieldMainPriority    CompassField = "main_priority"
	FieldPriorityNote    CompassField = "priority_note"
	FieldCompletion      CompassField = "completion"
	FieldBlocker         CompassField = "blocker"
	FieldImprovementNote CompassField = "improvement_note"
	FieldReflectionRef   CompassField = "reflection_ref"
)

// compassRule maps an event to a compass field. Meta tags match exactly;
// otherwise the keyword is matched case-insensitively against the prompt.
type compassRule struct {
	name    string
	tag     string
	keyword string
	field   CompassField
}

// compassRules is evaluated in order and the first match wins, so more
// specific prompts ("main priority") must precede their generic prefixes
// ("priority"). The alignment rule serves prompts from an older check-in
// wording and lands in the energy field.
var compassRules = []compassRule{
	{name: "mood", tag: "mood", keyword: "mood", field: FieldMood},
	{name: "energy", tag: "energy", keyword: "energy", field: FieldEnergy},
	{name: "alignment", tag: "alignment", keyword: "alignment", field: FieldEnergy},
	{name: "priority-selection", tag: "priority-selection", keyword: "main priority", field: FieldMainPriority},
	{name: "priority-note", tag: "priority-note", keyword: "priority", field: FieldPriorityNote},
	{name: "completion", tag: "completion", keyword: "complete", field: FieldCompletion},
	{name: "blocker", tag: "blocker", keyword: "block", field: FieldBlocker},
	{name: "improvement-note", tag: "improvement-note", keyword: "improve", field: FieldImprovementNote},
}

// ClassifyCompass resolves which compass field an event feeds and the value
// to store there. Events matching no rule fall through to the reflection
// reference, so nothing captured during a check-in is silently dropped.
func ClassifyCompass(event *journal.Event) (CompassField, string) {
	tag := strings.ToLower(strings.TrimSpace(event.MetaTag))
	prompt := strings.ToLower(event.Prompt)
	for _, rule := range compassRules {
		if tag == rule.tag || (tag == "" && strings.Contains(prompt, rule.keyword)) {
			return rule.field, eventValue(event)
		}
	}
	return FieldReflectionRef, event.UID
}

// WinsField names a column of the wins view document.
type WinsField string

const (
	FieldTitleRef       WinsField = "title_ref"
	FieldDescriptionRef WinsField = "description_ref"
)

// ClassifyWin resolves which wins slot an event's reference lands in.
// Prompts asking for a title feed the title slot, prompts asking for a
// description feed the description slot; anything else is not materialized.
func ClassifyWin(event *journal.Event) (WinsField, string, bool) {
	tag := strings.ToLower(strings.TrimSpace(event.MetaTag))
	prompt := strings.ToLower(event.Prompt)
	switch {
	case tag == "title" || (tag == "" && strings.Contains(prompt, "title")):
		return FieldTitleRef, event.UID, true
	case tag == "description" || (tag == "" && (strings.Contains(prompt, "description") || strings.Contains(prompt, "describe"))):
		return FieldDescriptionRef, event.UID, true
	default:
		return "", "", false
	}
}

// eventValue prefers a numeric answer when present, otherwise the trimmed
// response text.
func eventValue(event *journal.Event) string {
	if event.NumericAnswer != nil {
		return strconv.FormatFloat(*event.NumericAnswer, 'f', -1, 64)
	}
	return strings.TrimSpace(event.Response)
}
