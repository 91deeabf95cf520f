package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// AuditLevel defines which operations are audited.
type AuditLevel int

const (
	// AuditNone disables audit logging.
	AuditNone AuditLevel = iota
	// AuditWrites logs INSERT, UPDATE and DELETE statements.
	AuditWrites
	// AuditAll logs reads as well.
	AuditAll
)

// AuditEvent represents one audited statement.
type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	User           string    `json:"user,omitempty"`
	ApplicationKey string    `json:"application_key,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Operation      string    `json:"operation"`
	Table          string    `json:"table,omitempty"`
	Rows           int       `json:"rows"`
	SQL            string    `json:"sql"`
	ParamsHash     string    `json:"params_hash,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	Duration       int64     `json:"duration_ms"`
}

// Auditor writes audit events to a slog logger.
type Auditor struct {
	logger *slog.Logger
	level  AuditLevel
}

// NewAuditor creates a new audit logger.
func NewAuditor(logger *slog.Logger, level AuditLevel) *Auditor {
	return &Auditor{
		logger: logger,
		level:  level,
	}
}

// LogOperation records one executed statement. Parameter values are hashed, never logged.
func (a *Auditor) LogOperation(ctx context.Context, operation, table, query string, args []any, rows int, err error, duration time.Duration) {
	if !a.shouldLog(operation) {
		return
	}

	event := AuditEvent{
		Timestamp:      time.Now().UTC(),
		User:           GetUser(ctx),
		ApplicationKey: GetApplicationKey(ctx),
		RequestID:      GetRequestID(ctx),
		Operation:      operation,
		Table:          table,
		Rows:           rows,
		SQL:            query,
		ParamsHash:     hashParams(args),
		Success:        err == nil,
		Duration:       duration.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	logFunc := a.logger.Info
	if !event.Success {
		logFunc = a.logger.Warn
	}

	logFunc("audit_event",
		"user", event.User,
		"application_key", event.ApplicationKey,
		"request_id", event.RequestID,
		"operation", event.Operation,
		"table", event.Table,
		"rows", event.Rows,
		"sql", event.SQL,
		"params_hash", event.ParamsHash,
		"success", event.Success,
		"error", event.Error,
		"duration_ms", event.Duration,
	)
}

// LogBlocked records a statement rejected before execution.
func (a *Auditor) LogBlocked(ctx context.Context, table string, err error) {
	if a.logger == nil || a.level == AuditNone {
		return
	}
	a.logger.Warn("security_event",
		"event_type", "fragment_blocked",
		"user", GetUser(ctx),
		"request_id", GetRequestID(ctx),
		"table", table,
		"error", err.Error(),
	)
}

func (a *Auditor) shouldLog(operation string) bool {
	if a.logger == nil {
		return false
	}

	switch a.level {
	case AuditWrites:
		return operation == "INSERT" || operation == "UPDATE" || operation == "DELETE"
	case AuditAll:
		return true
	default:
		return false
	}
}

// hashParams creates a SHA256 hash of parameters for the audit trail.
func hashParams(params []any) string {
	if len(params) == 0 {
		return ""
	}

	h := sha256.New()
	for _, param := range params {
		_, _ = fmt.Fprintf(h, "%v", param) // hash.Hash.Write never returns error
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contextKey string

const (
	userKey           contextKey = "bookstore:user"
	applicationKeyKey contextKey = "bookstore:application_key"
	requestIDKey      contextKey = "bookstore:request_id"
)

// WithUser adds the acting user to the context for audit logging.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithApplicationKey adds the tenant key to the context for audit logging.
func WithApplicationKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, applicationKeyKey, key)
}

// WithRequestID adds a request ID to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetUser retrieves the user from context.
func GetUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// GetApplicationKey retrieves the tenant key from context.
func GetApplicationKey(ctx context.Context) string {
	key, _ := ctx.Value(applicationKeyKey).(string)
	return key
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
