package engine

import (
	"context"
	"log/slog"
	"time"

	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/state"
)

// ExecutionContext carries what the host hands a node for one invocation:
// its persisted state, credential lookup, a clock and a logger.
type ExecutionContext struct {
	// Ctx is the Go context for cancellation and timeouts
	Ctx context.Context

	// State persists the node's cursor between invocations
	State state.Store

	// Credentials resolves credential types by name
	Credentials credentials.Resolver

	// Now returns the invocation time; defaults to time.Now
	Now func() time.Time

	// Logger is scoped to the node instance
	Logger *slog.Logger
}

// NewExecutionContext creates an ExecutionContext with a wall clock and the
// default logger.
func NewExecutionContext(ctx context.Context, store state.Store, resolver credentials.Resolver) *ExecutionContext {
	return &ExecutionContext{
		Ctx:         ctx,
		State:       store,
		Credentials: resolver,
		Now:         time.Now,
		Logger:      slog.Default(),
	}
}

// Time returns the current invocation time in UTC.
func (ec *ExecutionContext) Time() time.Time {
	if ec.Now == nil {
		return time.Now().UTC()
	}
	return ec.Now().UTC()
}

// Log returns the context logger, falling back to slog.Default.
func (ec *ExecutionContext) Log() *slog.Logger {
	if ec.Logger == nil {
		return slog.Default()
	}
	return ec.Logger
}
