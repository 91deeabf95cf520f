package core

import (
	"context"
	"time"
)

// QueryEvent contains information about an executed statement.
// It is passed to QueryHook callbacks for logging, metrics, or tracing.
type QueryEvent struct {
	// SQL is the bound statement text ($n placeholders)
	SQL string
	// Args are the bound parameters
	Args []any
	// Table is the primary table of the statement
	Table string
	// Operation is SELECT, INSERT, UPDATE or DELETE
	Operation string
	// Duration is how long the connector call took
	Duration time.Duration
	// Rows is the number of rows returned
	Rows int
	// Error is the connector error, nil on success
	Error error
}

// QueryHook is invoked after each statement reaches the connector.
//
// Example:
//
//	exec, _ := core.NewExecutor(conn,
//	    core.WithQueryHook(func(ctx context.Context, e core.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

// invokeHook calls the query hook if set.
func (e *Executor) invokeHook(ctx context.Context, event QueryEvent) {
	if e.hook != nil {
		e.hook(ctx, event)
	}
}
