// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention. Use these functions
// instead of raw strings to keep log output consistent across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Gate creates a tag for the gate that produced a decision.
func Gate(name string) slog.Attr {
	return slog.String("gate", name)
}

// Reason creates a tag for gate decision reason codes.
func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

// Org creates a tag for organization IDs.
func Org(id string) slog.Attr {
	return slog.String("org-id", id)
}

// User creates a tag for user IDs.
func User(id string) slog.Attr {
	return slog.String("user-id", id)
}

// Path creates a tag for request paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Target creates a tag for redirect targets.
func Target(target string) slog.Attr {
	return slog.String("target", target)
}

// Addr creates a tag for network addresses.
func Addr(addr string) slog.Attr {
	return slog.String("addr", addr)
}

// Provider creates a tag for cloud provider names.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Attempt creates a tag for attempt numbers.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count creates a tag for generic counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration creates a tag for elapsed durations.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Endpoint creates a tag for upstream RPC endpoints.
func Endpoint(path string) slog.Attr {
	return slog.String("endpoint", path)
}
