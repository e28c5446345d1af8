package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(loggerConfig{level: "warn", format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept", "guild", "42")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d:\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "kept" || rec["guild"] != "42" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(loggerConfig{level: "debug", format: "console"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hello console")
	if !strings.Contains(buf.String(), "hello console") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	tests := []loggerConfig{
		{level: "loud", format: "json"},
		{level: "info", format: "xml"},
	}
	for _, cfg := range tests {
		if _, err := newLogger(cfg, &bytes.Buffer{}); err == nil {
			t.Errorf("newLogger(%+v) succeeded, want error", cfg)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := command()
	want := []string{"discord-token", "model-token", "config", "http-addr", "inference-timeout", "confirm-ttl", "log-format"}
	have := map[string]bool{}
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			have[n] = true
		}
	}
	for _, n := range want {
		if !have[n] {
			t.Errorf("missing flag --%s", n)
		}
	}
}
