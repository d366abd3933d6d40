package logger_i

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/akolanti/ThreadQA/internal/config"
)

func TestLogger_FromContextAddsTrace(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer Init()

	log := NewLogger("test")
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-123")
	log.FromContext(ctx).Info("hello", "k", "v")

	out := buf.String()
	for _, want := range []string{"component=test", "traceId=trace-123", "k=v", "hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestLogger_FromContextWithoutTrace(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer Init()

	log := NewLogger("test")
	log.FromContext(context.Background()).Warn("plain")
	if strings.Contains(buf.String(), "traceId") {
		t.Errorf("unexpected traceId in %q", buf.String())
	}
}
