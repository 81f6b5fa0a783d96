package cache

import (
	"testing"
	"time"
)

func TestAddDeduplicatesFreshKeys(t *testing.T) {
	c := NewTTL(10, time.Minute)
	if !c.Add("a") {
		t.Fatal("first add should report absent")
	}
	if c.Add("a") {
		t.Fatal("second add should report present")
	}
	if !c.Contains("a") {
		t.Fatal("key should be fresh")
	}
}

func TestExpiryAllowsReadd(t *testing.T) {
	c := NewTTL(10, time.Minute)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Add("a")
	current = current.Add(2 * time.Minute)

	if c.Contains("a") {
		t.Fatal("expired key should not be reported")
	}
	if !c.Add("a") {
		t.Fatal("expired key should be addable again")
	}
}

func TestBoundedSizeEvictsOldest(t *testing.T) {
	c := NewTTL(2, time.Minute)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Add("first")
	current = current.Add(time.Second)
	c.Add("second")
	current = current.Add(time.Second)
	c.Add("third")

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if c.Contains("first") {
		t.Fatal("oldest entry should be evicted")
	}
	if !c.Contains("second") || !c.Contains("third") {
		t.Fatal("newer entries should survive")
	}
}
