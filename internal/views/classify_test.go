package views_test

import (
	"testing"

	"daybook/internal/journal"
	"daybook/internal/views"
)

func TestClassifyCompassByMetaTag(t *testing.T) {
	cases := []struct {
		tag  string
		want views.CompassField
	}{
		{"mood", views.FieldMood},
		{"energy", views.FieldEnergy},
		{"alignment", views.FieldEnergy},
		{"priority-selection", views.FieldMainPriority},
		{"priority-note", views.FieldPriorityNote},
		{"completion", views.FieldCompletion},
		{"blocker", views.FieldBlocker},
		{"improvement-note", views.FieldImprovementNote},
	}
	for _, tc := range cases {
		event := &journal.Event{UID: "e1", MetaTag: tc.tag, Response: "answer"}
		field, value := views.ClassifyCompass(event)
		if field != tc.want {
			t.Errorf("tag %q classified as %q, want %q", tc.tag, field, tc.want)
		}
		if value != "answer" {
			t.Errorf("tag %q value = %q", tc.tag, value)
		}
	}
}

func TestClassifyCompassByPromptKeyword(t *testing.T) {
	cases := []struct {
		prompt string
		want   views.CompassField
	}{
		{"How is your mood today?", views.FieldMood},
		{"Rate your energy level", views.FieldEnergy},
		{"What is your main priority today?", views.FieldMainPriority},
		{"Anything else about this priority?", views.FieldPriorityNote},
		{"Did you complete yesterday's goal?", views.FieldCompletion},
		{"What might block you today?", views.FieldBlocker},
		{"What would you improve about yesterday?", views.FieldImprovementNote},
	}
	for _, tc := range cases {
		event := &journal.Event{UID: "e1", Prompt: tc.prompt, Response: "answer"}
		field, _ := views.ClassifyCompass(event)
		if field != tc.want {
			t.Errorf("prompt %q classified as %q, want %q", tc.prompt, field, tc.want)
		}
	}
}

func TestMainPriorityWinsOverPriorityNote(t *testing.T) {
	// "main priority" contains "priority"; rule order must keep the more
	// specific match first.
	event := &journal.Event{UID: "e1", Prompt: "What is your MAIN PRIORITY?", Response: "ship it"}
	field, _ := views.ClassifyCompass(event)
	if field != views.FieldMainPriority {
		t.Fatalf("classified as %q, want main_priority", field)
	}
}

func TestMetaTagOverridesPromptText(t *testing.T) {
	event := &journal.Event{
		UID:      "e1",
		MetaTag:  "blocker",
		Prompt:   "How is your mood and energy?",
		Response: "meetings",
	}
	field, _ := views.ClassifyCompass(event)
	if field != views.FieldBlocker {
		t.Fatalf("classified as %q, want blocker", field)
	}
}

func TestUnmatchedEventFallsBackToReflection(t *testing.T) {
	event := &journal.Event{UID: "event-uid-7", Prompt: "Anything on your mind?", Response: "lots"}
	field, value := views.ClassifyCompass(event)
	if field != views.FieldReflectionRef {
		t.Fatalf("classified as %q, want reflection_ref", field)
	}
	if value != "event-uid-7" {
		t.Fatalf("reflection value = %q, want the event uid", value)
	}
}

func TestNumericAnswerFormatsAsValue(t *testing.T) {
	score := 8.0
	event := &journal.Event{UID: "e1", MetaTag: "energy", NumericAnswer: &score, Response: "ignored"}
	_, value := views.ClassifyCompass(event)
	if value != "8" {
		t.Fatalf("value = %q, want 8", value)
	}
}

func TestClassifyWin(t *testing.T) {
	title := &journal.Event{UID: "win-1", Prompt: "Give this win a title"}
	if field, value, ok := views.ClassifyWin(title); !ok || field != views.FieldTitleRef || value != "win-1" {
		t.Fatalf("title classified as (%q, %q, %v)", field, value, ok)
	}

	desc := &journal.Event{UID: "win-2", Prompt: "Describe what happened"}
	if field, value, ok := views.ClassifyWin(desc); !ok || field != views.FieldDescriptionRef || value != "win-2" {
		t.Fatalf("description classified as (%q, %q, %v)", field, value, ok)
	}

	tagged := &journal.Event{UID: "win-3", MetaTag: "title", Prompt: "Describe what happened"}
	if field, _, ok := views.ClassifyWin(tagged); !ok || field != views.FieldTitleRef {
		t.Fatalf("tagged title classified as %q", field)
	}

	unrelated := &journal.Event{UID: "win-4", Prompt: "How did it feel?"}
	if _, _, ok := views.ClassifyWin(unrelated); ok {
		t.Fatal("unrelated win prompt should not be materialized")
	}
}
