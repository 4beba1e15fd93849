package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/logging"
)

func TestFromContextFallsBackToProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf).With().Str("source", "process").Logger())
	defer logging.Init(zerolog.InfoLevel, false)

	for _, ctx := range []context.Context{nil, context.Background()} {
		buf.Reset()
		l := FromContext(ctx)
		l.Info().Msg("test")
		if !strings.Contains(buf.String(), `"source":"process"`) {
			t.Errorf("fallback logger not used: %s", buf.String())
		}
	}
}

func TestWithLoggerAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf).With().Str("custom", "field").Logger()

	l := FromContext(WithLogger(context.Background(), custom))
	l.Info().Msg("test")

	if !strings.Contains(buf.String(), `"custom":"field"`) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}

func TestWithLoggerNilContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(nil, zerolog.New(&buf))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	l := FromContext(ctx)
	l.Info().Msg("test")
	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestChainedFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithStr(ctx, "input", "s3://maps/prod.bin")
	ctx = WithInt(ctx, "worker", 3)

	l := FromContext(ctx)
	l.Info().Msg("test")

	out := buf.String()
	if !strings.Contains(out, `"input":"s3://maps/prod.bin"`) {
		t.Errorf("expected input field, got: %s", out)
	}
	if !strings.Contains(out, `"worker":3`) {
		t.Errorf("expected worker field, got: %s", out)
	}
}
