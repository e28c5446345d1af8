package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bdobrica/Kanri/common/trace"
)

func TestGenerateID(t *testing.T) {
	a, b := trace.GenerateID(), trace.GenerateID()
	if !strings.HasPrefix(a, trace.Prefix) {
		t.Fatalf("missing prefix: %q", a)
	}
	if a == b {
		t.Fatal("expected distinct IDs")
	}
}

func TestEnsure(t *testing.T) {
	ctx, id := trace.Ensure(context.Background())
	if id == "" || trace.FromContext(ctx) != id {
		t.Fatalf("Ensure did not attach an ID")
	}
	ctx2, id2 := trace.Ensure(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatal("Ensure replaced an existing ID")
	}
	if trace.FromContext(context.Background()) != "" {
		t.Fatal("empty context should have no ID")
	}
}
