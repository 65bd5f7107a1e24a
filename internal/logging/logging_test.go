package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, Config{Level: "debug"})
	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Debug("probe", "step", 3)
	if !strings.Contains(buf.String(), "step=3") {
		t.Fatalf("expected record in buffer, got %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected slog.Default for empty context")
	}
}

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, Config{Level: "warn", Format: "json"})
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected JSON record, got %q", out)
	}
}
