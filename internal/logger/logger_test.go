package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	Init("debug", "json")
	if !L.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug level should be enabled")
	}

	Init("warn", "text")
	if L.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be suppressed at warn level")
	}
}

func TestContextLogger(t *testing.T) {
	Init("info", "text")

	custom := L.With("request_id", "12345")
	ctx := WithContext(context.Background(), custom)
	if got := FromContext(ctx); got != custom {
		t.Fatalf("context logger not returned")
	}

	// A bare context falls back to the package logger.
	if got := FromContext(context.Background()); got == nil {
		t.Fatalf("fallback logger is nil")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
