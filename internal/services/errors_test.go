package services_test

import (
	"errors"
	"strings"
	"testing"

	"daybook/internal/services"
)

func TestWrapPreservesMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "media", "fetch", "download audio", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to survive")
	}
	if !strings.Contains(err.Error(), "media: fetch: download audio") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "worker", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider", services.Wrap(services.ErrProvider, "speech", "transcribe", "empty transcript", nil), false},
		{"validation", services.ErrValidation, false},
		{"configuration", services.ErrConfiguration, false},
		{"transient", services.Wrap(services.ErrTransient, "callback", "update", "", errors.New("timeout")), true},
		{"unclassified", errors.New("boom"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
