package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("builds a json logger honouring the level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, err := New("warn", "json", &buf)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		logger.Info("hidden")
		logger.Warn("shown")
		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
			t.Fatalf("unexpected output: %q", out)
		}
	})

	t.Run("rejects unknown formats and levels", func(t *testing.T) {
		t.Parallel()
		if _, err := New("info", "xml", nil); err == nil {
			t.Fatalf("expected format error")
		}
		if _, err := New("loud", "text", nil); err == nil {
			t.Fatalf("expected level error")
		}
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger in empty context")
	}
	logger := Discard()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger round trip")
	}
}
