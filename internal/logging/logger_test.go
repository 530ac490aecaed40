package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"trace", LevelTrace},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFiltersAndLabels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", &buf)
	log.Debug("hidden")
	log.Info("shown", "walker", "w")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "walker=w") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	log = NewLogger("trace", &buf)
	log.Log(context.Background(), LevelTrace, "step")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Fatalf("trace level not labelled: %q", buf.String())
	}
}
