package services_test

import (
	"context"
	"testing"

	"splice/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project id on empty context")
	}
	ctx = services.WithProjectID(ctx, "p1")
	ctx = services.WithVersionID(ctx, 42)
	ctx = services.WithRequestID(ctx, "")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != "p1" {
		t.Fatalf("unexpected project id %q ok=%v", id, ok)
	}
	if v, ok := services.VersionIDFromContext(ctx); !ok || v != 42 {
		t.Fatalf("unexpected version id %d ok=%v", v, ok)
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not be stored")
	}
}
