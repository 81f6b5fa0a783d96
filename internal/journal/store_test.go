package journal_test

import (
	"context"
	"testing"
	"time"

	"daybook/internal/journal"
	"daybook/internal/testsupport"
)

func TestAppendAssignsIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	event, err := store.Append(context.Background(), journal.Event{
		UserID:   "user-1",
		Kind:     journal.KindCompass,
		Prompt:   "How is your mood?",
		Response: "Pretty good",
		MetaTag:  "mood",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("id should be assigned")
	}
	if event.UID == "" {
		t.Fatal("uid should be assigned")
	}
	if event.CapturedAt.IsZero() {
		t.Fatal("captured_at should be defaulted")
	}

	fetched, err := store.GetByUID(context.Background(), event.UID)
	if err != nil {
		t.Fatalf("get by uid: %v", err)
	}
	if fetched == nil || fetched.ID != event.ID || fetched.Prompt != "How is your mood?" {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	if _, err := store.Append(context.Background(), journal.Event{Kind: journal.KindWin}); err == nil {
		t.Fatal("missing user id should be rejected")
	}
	if _, err := store.Append(context.Background(), journal.Event{UserID: "u", Kind: "bogus"}); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
}

func TestListAfterFollowsAppendOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		event, err := store.Append(ctx, journal.Event{
			UserID: "user-1",
			Kind:   journal.KindReflection,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, event.ID)
	}

	events, err := store.ListAfter(ctx, ids[1], 10)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, event := range events {
		if event.ID != ids[i+2] {
			t.Fatalf("event %d id = %d, want %d", i, event.ID, ids[i+2])
		}
	}

	limited, err := store.ListAfter(ctx, 0, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != ids[0] {
		t.Fatalf("limited = %d events starting at %d", len(limited), limited[0].ID)
	}
}

func TestCheckpointRoundtrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	id, err := store.Checkpoint(ctx, "view-materializer")
	if err != nil {
		t.Fatalf("initial checkpoint: %v", err)
	}
	if id != 0 {
		t.Fatalf("fresh consumer checkpoint = %d, want 0", id)
	}

	if err := store.SaveCheckpoint(ctx, "view-materializer", 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveCheckpoint(ctx, "view-materializer", 43); err != nil {
		t.Fatalf("save again: %v", err)
	}

	id, err = store.Checkpoint(ctx, "view-materializer")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if id != 43 {
		t.Fatalf("checkpoint = %d, want 43", id)
	}

	other, err := store.Checkpoint(ctx, "other-consumer")
	if err != nil {
		t.Fatalf("other checkpoint: %v", err)
	}
	if other != 0 {
		t.Fatalf("unrelated consumer checkpoint = %d, want 0", other)
	}
}

func TestNumericAnswerSurvivesRoundtrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	score := 7.0
	event, err := store.Append(context.Background(), journal.Event{
		UserID:        "user-1",
		Kind:          journal.KindCompass,
		MetaTag:       "energy",
		NumericAnswer: &score,
		CapturedAt:    time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	fetched, err := store.GetByUID(context.Background(), event.UID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.NumericAnswer == nil || *fetched.NumericAnswer != 7.0 {
		t.Fatalf("numeric answer = %v", fetched.NumericAnswer)
	}
	if !fetched.CapturedAt.Equal(time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("captured_at = %v", fetched.CapturedAt)
	}
}
