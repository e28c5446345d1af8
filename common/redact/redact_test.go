package redact_test

import (
	"testing"

	"github.com/bdobrica/Kanri/common/redact"
)

func TestString(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		values []string
		want   string
	}{
		{"single", "Bearer hf_abcdef123", []string{"hf_abcdef123"}, "Bearer [REDACTED]"},
		{"short value ignored", "abc token", []string{"abc"}, "abc token"},
		{"several", "a=secret-one b=secret-two", []string{"secret-one", "secret-two"}, "a=[REDACTED] b=[REDACTED]"},
		{"absent", "nothing here", []string{"hf_abcdef123"}, "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redact.String(tt.in, tt.values...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedactor(t *testing.T) {
	r := redact.New("", "ab", "discord-bot-token")
	got := r.String("token discord-bot-token leaked")
	if got != "token [REDACTED] leaked" {
		t.Fatalf("unexpected output %q", got)
	}

	var nilRedactor *redact.Redactor
	if nilRedactor.String("x") != "x" {
		t.Fatal("nil redactor must pass text through")
	}
}

func TestMap(t *testing.T) {
	in := map[string]any{
		"discord_token": "abc123456",
		"api_key":       "sk-1234",
		"guild":         "42",
		"count":         3,
	}
	out := redact.Map(in)
	if out["discord_token"] != redact.Placeholder || out["api_key"] != redact.Placeholder {
		t.Fatalf("credential keys not redacted: %v", out)
	}
	if out["guild"] != "42" || out["count"] != 3 {
		t.Fatalf("plain keys altered: %v", out)
	}
	if in["discord_token"] != "abc123456" {
		t.Fatal("input map was modified")
	}
}
