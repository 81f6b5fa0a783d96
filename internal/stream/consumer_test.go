package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"daybook/internal/journal"
	"daybook/internal/stream"
	"daybook/internal/testsupport"
)

type recordingApplier struct {
	mu      sync.Mutex
	applied []string
	failUID string
	failErr error
}

func (a *recordingApplier) Apply(ctx context.Context, event *journal.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if event.UID == a.failUID {
		return a.failErr
	}
	a.applied = append(a.applied, event.UID)
	return nil
}

func (a *recordingApplier) seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.applied...)
}

func fastConfig() stream.Config {
	return stream.Config{
		ConsumerName:    "view-materializer",
		PollInterval:    10 * time.Millisecond,
		BatchSize:       10,
		MaxEventRetries: 3,
		RetryBackoff:    time.Millisecond,
		MaxRetryBackoff: 5 * time.Millisecond,
	}
}

func appendEvents(t *testing.T, store *journal.Store, uids ...string) {
	t.Helper()
	for _, uid := range uids {
		if _, err := store.Append(context.Background(), journal.Event{
			UID:    uid,
			UserID: "user-1",
			Kind:   journal.KindReflection,
		}); err != nil {
			t.Fatalf("append %s: %v", uid, err)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsumerAppliesInAppendOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	appendEvents(t, store, "e1", "e2", "e3")

	applier := &recordingApplier{}
	consumer := stream.NewConsumer(store, applier, nil, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	waitFor(t, 5*time.Second, func() bool { return len(applier.seen()) == 3 })
	cancel()
	<-done

	got := applier.seen()
	for i, want := range []string{"e1", "e2", "e3"} {
		if got[i] != want {
			t.Fatalf("applied[%d] = %q, want %q", i, got[i], want)
		}
	}
}

func TestConsumerResumesFromCheckpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	appendEvents(t, store, "e1", "e2")

	first := &recordingApplier{}
	ctx1, cancel1 := context.WithCancel(context.Background())
	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		_ = stream.NewConsumer(store, first, nil, fastConfig()).Run(ctx1)
	}()
	waitFor(t, 5*time.Second, func() bool { return len(first.seen()) == 2 })
	cancel1()
	<-done1

	appendEvents(t, store, "e3")

	second := &recordingApplier{}
	ctx2, cancel2 := context.WithCancel(context.Background())
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		_ = stream.NewConsumer(store, second, nil, fastConfig()).Run(ctx2)
	}()
	waitFor(t, 5*time.Second, func() bool { return len(second.seen()) == 1 })
	cancel2()
	<-done2

	got := second.seen()
	if got[0] != "e3" {
		t.Fatalf("resumed consumer applied %q, want e3 only", got[0])
	}
}

func TestConsumerSkipsPoisonEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	appendEvents(t, store, "e1", "poison", "e3")

	applier := &recordingApplier{
		failUID: "poison",
		failErr: errors.New("unmappable event"),
	}
	consumer := stream.NewConsumer(store, applier, nil, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	// The poison event exhausts its retries and must not block e3.
	waitFor(t, 5*time.Second, func() bool { return len(applier.seen()) == 2 })
	cancel()
	<-done

	got := applier.seen()
	if got[0] != "e1" || got[1] != "e3" {
		t.Fatalf("applied = %v, want [e1 e3]", got)
	}

	// The checkpoint must have advanced past the skipped event.
	cursor, err := store.Checkpoint(context.Background(), "view-materializer")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	events, err := store.ListAfter(context.Background(), cursor, 10)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("%d events remain past the checkpoint, want 0", len(events))
	}
}

func TestConsumerStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	consumer := stream.NewConsumer(store, &recordingApplier{}, nil, fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}
