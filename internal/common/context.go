package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID      contextKey = "run_id"
	ContextKeyCompetitor contextKey = "competitor"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithCompetitor tags the context with the competitor being processed
func WithCompetitor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyCompetitor, name)
}

// CompetitorFromContext extracts the competitor name from context
func CompetitorFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyCompetitor).(string); ok {
		return name
	}
	return ""
}

// WithTimeout returns ctx unchanged (with a no-op cancel) when timeout is not positive.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}
