// Package logctx carries a zerolog logger through context.Context so that
// per-file fields (input path, worker index) follow a request into the
// codec and storage layers.
//
//	ctx = logctx.WithStr(ctx, "input", path)
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/logging"
)

type loggerKey struct{}

// WithLogger returns a context carrying l. A nil ctx is treated as
// context.Background.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger carried by ctx, or the process logger from
// pkg/logging when there is none.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return *logging.L()
}

// WithStr adds a string field to the context logger.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithInt adds an int field to the context logger.
func WithInt(ctx context.Context, key string, value int) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Int(key, value).Logger())
}
