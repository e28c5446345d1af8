package nlp_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/nlp"
)

const envelope = `{"actions":[{"type":"create_category","name":"Info"},{"type":"create_channel","name":"announcements","channel_type":"text","category":"Info"}]}`

func TestParse_DirectAndWrappedAgree(t *testing.T) {
	direct, err := nlp.Parser{}.Parse(envelope)
	if err != nil {
		t.Fatalf("direct parse: %v", err)
	}
	if len(direct) != 2 || direct[0].Kind() != actions.KindCreateCategory || direct[1].Kind() != actions.KindCreateChannel {
		t.Fatalf("unexpected actions: %#v", direct)
	}

	wrapped := "Here you go:\n```json\n" + envelope + "\n```\nDone."
	fromProse, err := nlp.Parser{}.Parse(wrapped)
	if err != nil {
		t.Fatalf("wrapped parse: %v", err)
	}
	if diff := cmp.Diff(direct, fromProse); diff != "" {
		t.Fatalf("wrapped parse differs (-direct +wrapped):\n%s", diff)
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "I'm sorry, I can't help with that."},
		{"empty", ""},
		{"no actions key", `{"steps":[{"type":"create_category"}]}`},
		{"actions not a list", `{"actions":{"type":"create_category"}}`},
		{"array top level", `[{"type":"create_category"}]`},
		{"broken json", `{"actions":[{"type":"create_category",}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := nlp.Parser{}.Parse(tt.raw)
			if err == nil {
				t.Fatalf("expected error, got %d actions", len(list))
			}
			var pe *nlp.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Raw != tt.raw {
				t.Errorf("raw text not preserved: %q", pe.Raw)
			}
			if errors.Is(err, nlp.ErrNoActions) {
				t.Errorf("malformed output must not be reported as empty")
			}
		})
	}
}

func TestParse_EmptyList(t *testing.T) {
	_, err := nlp.Parser{}.Parse(`Nothing to do: {"actions": []}`)
	if !errors.Is(err, nlp.ErrNoActions) {
		t.Fatalf("expected ErrNoActions, got %v", err)
	}
	var pe *nlp.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestParse_SnowflakesKeepPrecision(t *testing.T) {
	list, err := nlp.Parser{}.Parse(`{"actions":[{"type":"delete_channel","name_or_id":1187654321098765432}]}`)
	if err != nil {
		t.Fatal(err)
	}
	del, ok := list[0].(actions.DeleteChannel)
	if !ok || del.Target != "1187654321098765432" {
		t.Fatalf("unexpected action: %#v", list[0])
	}
}

func TestParse_Repair(t *testing.T) {
	raw := "```json\n{\"actions\": [{\"type\": \"lock_channel\", \"name_or_id\": \"general\"},]}\n```"

	if _, err := (nlp.Parser{}).Parse(raw); err == nil {
		t.Fatal("trailing comma should fail without repair")
	}

	list, err := nlp.Parser{Repair: true}.Parse(raw)
	if err != nil {
		t.Fatalf("repair parse: %v", err)
	}
	if len(list) != 1 || list[0].Kind() != actions.KindLockChannel {
		t.Fatalf("unexpected actions: %#v", list)
	}
}
