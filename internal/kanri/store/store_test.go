package store_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/Kanri/internal/kanri/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "kanri-test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanri.db")
	for i := 0; i < 2; i++ {
		s, err := store.New(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.Ping(); err != nil {
			t.Fatalf("ping: %v", err)
		}
		s.Close()
	}
}

func TestAudit_WriteAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []store.AuditRecord{
		{TraceID: "t_1", GuildID: "900", ActorID: "1", Action: "instruction", Result: store.ResultSuccess,
			Payload: store.AuditPayload{"instruction": "lock general"}},
		{TraceID: "t_1", GuildID: "900", ActorID: "1", Action: "lock_channel", Target: "general", Result: store.ResultSuccess},
		{TraceID: "t_2", GuildID: "901", ActorID: "2", Action: "delete_role", Target: "Mods", Result: store.ResultError, Error: "Role not found: Mods"},
	}
	for _, r := range recs {
		if err := s.WriteAudit(ctx, r); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}

	all, err := s.ListAudit(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Action != "delete_role" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].Error != "Role not found: Mods" || all[0].Timestamp.IsZero() {
		t.Errorf("fields not round-tripped: %+v", all[0])
	}

	guild, err := s.ListAudit(ctx, "900", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(guild) != 1 || guild[0].Action != "lock_channel" {
		t.Fatalf("guild filter/limit: %+v", guild)
	}

	trace, err := s.AuditByTrace(ctx, "t_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trace) != 2 || trace[0].Action != "instruction" {
		t.Fatalf("trace lookup: %+v", trace)
	}
	if !strings.Contains(trace[0].Payload, "lock general") {
		t.Errorf("payload not stored: %q", trace[0].Payload)
	}
	if trace[0].Target != "" {
		t.Errorf("null target should read as empty, got %q", trace[0].Target)
	}
}
