// Package logging is the logging seam for the backend: services and
// transports log through the Logger interface, so the sink can be swapped
// without touching call sites.
package logging

import "context"

// Logger logs structured key-value pairs. Variadic args alternate keys and
// values:
//
//	log.Info(ctx, "rotating token", "user_id", id)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn is for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a derived logger whose entries always carry the given
	// key-value pairs.
	With(args ...any) Logger
}
