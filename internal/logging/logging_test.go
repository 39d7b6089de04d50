package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, slog.LevelInfo); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAtomicHandlerSwap(t *testing.T) {
	t.Parallel()
	var first, second bytes.Buffer
	ah := NewAtomicHandler(slog.NewTextHandler(&first, nil))
	log := slog.New(ah)

	log.Info("one")
	ah.Swap(slog.NewTextHandler(&second, nil))
	log.Info("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Fatalf("first handler saw: %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Fatalf("second handler saw: %q", second.String())
	}
}

func TestFanoutWritesAll(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	h := Fanout(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	log := slog.New(h)
	log.Info("broadcast")

	if !strings.Contains(a.String(), "broadcast") {
		t.Fatalf("text handler missed record: %q", a.String())
	}
	if !strings.Contains(b.String(), "broadcast") {
		t.Fatalf("json handler missed record: %q", b.String())
	}
}

func TestFanoutEnabledAnyHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := Fanout(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("fanout must be enabled when any handler is")
	}
}
