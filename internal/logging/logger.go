// Package logging defines the structured-logging interface used across
// the server core.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are
// key-value pairs, e.g. log.Info(ctx, "session closed", "user_id", id).
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given
	// key-value pairs.
	With(args ...any) Logger
}
