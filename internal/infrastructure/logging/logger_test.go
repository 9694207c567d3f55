package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
)

// records decodes one JSON object per line.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad JSON line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "1.2.0")

	log.Info("dispatcher started", "queue_mode", true)

	recs := records(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec["service"] != "graylogic-av" || rec["version"] != "1.2.0" {
		t.Errorf("default fields = %v/%v", rec["service"], rec["version"])
	}
	if rec["msg"] != "dispatcher started" || rec["queue_mode"] != true {
		t.Errorf("record = %v", rec)
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.LoggingConfig{Format: "TEXT"}, "dev")

	log.Info("command dropped", "reason", "cooldown_blocked")

	out := buf.String()
	if !strings.Contains(out, "reason=cooldown_blocked") || !strings.Contains(out, "service=graylogic-av") {
		t.Errorf("text output = %q", out)
	}
}

func TestComponentLevels(t *testing.T) {
	cfg := config.LoggingConfig{
		Level: "info",
		Components: map[string]string{
			"Dispatch": "debug",
			"mqtt":     "error",
		},
	}

	tests := []struct {
		name      string
		component string
		level     slog.Level
		want      bool
	}{
		{"root level applies to unlisted component", "api", slog.LevelDebug, false},
		{"unlisted component at info", "api", slog.LevelInfo, true},
		{"component more verbose than root", "dispatch", slog.LevelDebug, true},
		{"component quieter than root", "mqtt", slog.LevelWarn, false},
		{"quiet component still logs errors", "mqtt", slog.LevelError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newLogger(&buf, cfg, "dev").Component(tt.component)

			log.Log(context.Background(), tt.level, "gating decision")

			got := buf.Len() > 0
			if got != tt.want {
				t.Errorf("%s at %v logged = %v, want %v", tt.component, tt.level, got, tt.want)
			}
		})
	}
}

func TestForDevice(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "warn", Components: map[string]string{"dispatch": "debug"}}
	root := newLogger(&buf, cfg, "dev")

	dlog := root.ForDevice("dispatch", "lounge-projector")
	dlog.Debug("command accepted", "command", "input_hdmi1", "queued", true)
	root.Info("not shown")

	recs := records(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1: %s", len(recs), buf.String())
	}
	rec := recs[0]
	for key, want := range map[string]any{
		KeyComponent: "dispatch",
		KeyDevice:    "lounge-projector",
		"command":    "input_hdmi1",
		"service":    "graylogic-av",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %v", key, rec[key], want)
		}
	}
}

func TestWith_KeepsComponentLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "error", Components: map[string]string{"dispatch": "debug"}}

	log := newLogger(&buf, cfg, "dev").ForDevice("dispatch", "lounge-amp").With("request_id", "r-1")
	log.Debug("queued command sent")

	recs := records(t, &buf)
	if len(recs) != 1 || recs[0]["request_id"] != "r-1" || recs[0][KeyDevice] != "lounge-amp" {
		t.Errorf("records = %v", recs)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard().ForDevice("dispatch", "lounge-amp")
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("discard logger enabled at debug")
	}
	log.Error("dropped", "key", "value")
}

func TestDefault(t *testing.T) {
	log := Default()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger enabled at debug")
	}
	if !log.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("default logger disabled at info")
	}
}
