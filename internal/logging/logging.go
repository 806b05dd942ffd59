package logging

import (
	"context"
	"log/slog"
	"os"
)

// New returns a logger configured with a text handler writing to STDOUT.
// When enabled is false every record is discarded.
func New(enabled bool) *slog.Logger {
	if !enabled {
		return Discard()
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type ctxKey struct{}

// NewContext returns a copy of ctx with the logger stored.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves a logger from ctx or returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
