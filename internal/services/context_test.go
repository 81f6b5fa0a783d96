package services_test

import (
	"context"
	"testing"

	"daybook/internal/services"
)

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("empty context should not carry a job id")
	}

	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithStage(ctx, "transcribing")
	ctx = services.WithUserID(ctx, "user-1")
	ctx = services.WithRequestID(ctx, "req-abc")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribing" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if user, ok := services.UserIDFromContext(ctx); !ok || user != "user-1" {
		t.Fatalf("user = %q, %v", user, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-abc" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}
