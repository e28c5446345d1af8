// Package trace issues correlation IDs and carries them through a context so
// a single instruction can be followed across log lines, audit rows and the
// reply sent to the requester.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"
)

type key struct{}

// Prefix starts every generated ID.
const Prefix = "t_"

// GenerateID returns a new random trace ID.
func GenerateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return Prefix + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return Prefix + hex.EncodeToString(b)
}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// FromContext returns the trace ID in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}

// Ensure returns ctx unchanged when it already carries an ID, otherwise a
// child context with a fresh one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateID()
	return WithTraceID(ctx, id), id
}

// Attr is a slog attribute for the trace ID in ctx.
func Attr(ctx context.Context) slog.Attr {
	return slog.String("trace_id", FromContext(ctx))
}
