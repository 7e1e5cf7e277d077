package services_test

import (
	"context"
	"testing"

	"subextract/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "9b1d7c")
	ctx = services.WithOwnerID(ctx, "user-7")
	ctx = services.WithStage(ctx, "sampling")
	ctx = services.WithLane(ctx, "lane-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "9b1d7c" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if owner, ok := services.OwnerIDFromContext(ctx); !ok || owner != "user-7" {
		t.Fatalf("unexpected owner: %v %v", owner, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "sampling" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "lane-1" {
		t.Fatalf("unexpected lane: %v %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
