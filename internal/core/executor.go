// Package core builds and executes the SQL of the bookstore data-access layer:
// condition builders, order strategies, SELECT/INSERT/UPDATE/DELETE builders and
// the Executor that runs them against a storage connector.
package core

import (
	"context"
	"time"

	"github.com/coregx/bookstore/internal/dialects"
	"github.com/coregx/bookstore/internal/logger"
	"github.com/coregx/bookstore/internal/security"
	"github.com/coregx/bookstore/internal/tracer"
	"github.com/coregx/bookstore/internal/util"
)

// Row is one result row keyed by column name (or alias for joined columns).
type Row = map[string]any

// ExecOptions controls connection handling for one statement.
type ExecOptions struct {
	// CloseConnection releases the connection after the statement instead of keeping it for the next call.
	CloseConnection bool
}

// Connector runs one bound statement and returns its rows.
type Connector interface {
	Query(ctx context.Context, query string, args []any, opts ExecOptions) ([]Row, error)
}

// Executor builds statements and runs them against a Connector.
// It holds no per-query state and is safe for concurrent use.
type Executor struct {
	conn       Connector
	dialect    dialects.Dialect
	driverName string
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	validator  *security.Validator
	auditor    *security.Auditor
	hook       QueryHook
}

// Option is a functional option for configuring Executor.
type Option func(*Executor)

// WithDialect selects a registered dialect by driver name. Panics if it is unknown.
func WithDialect(driverName string) Option {
	return func(e *Executor) {
		e.dialect = dialects.GetDialect(driverName)
		e.driverName = driverName
	}
}

// WithLogger sets the statement logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithSanitizer sets the parameter masking used in statement logs.
func WithSanitizer(s *logger.Sanitizer) Option {
	return func(e *Executor) {
		e.sanitizer = s
	}
}

// WithTracer sets the statement tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Executor) {
		e.tracer = t
	}
}

// WithValidator checks join predicates and raw field lists before they are embedded.
func WithValidator(v *security.Validator) Option {
	return func(e *Executor) {
		e.validator = v
	}
}

// WithAuditor audits executed statements.
func WithAuditor(a *security.Auditor) Option {
	return func(e *Executor) {
		e.auditor = a
	}
}

// WithQueryHook sets a callback invoked after each statement.
func WithQueryHook(h QueryHook) Option {
	return func(e *Executor) {
		e.hook = h
	}
}

// NewExecutor creates an Executor. The dialect defaults to postgres.
func NewExecutor(conn Connector, opts ...Option) (*Executor, error) {
	if conn == nil {
		return nil, ErrMissingConnector
	}
	e := &Executor{
		conn:       conn,
		dialect:    dialects.GetDialect("postgres"),
		driverName: "postgres",
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Select runs a read and desanitizes every string field of every row.
// No matching rows is a successful, empty result.
func (e *Executor) Select(ctx context.Context, spec SelectSpec) ([]Row, error) {
	if err := e.validateSpec(ctx, spec); err != nil {
		return nil, err
	}
	stmt, err := BuildSelect(spec)
	if err != nil {
		return nil, err
	}
	rows, err := e.run(ctx, stmt, "bookstore.query.select")
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		util.DesanitizeRow(row)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// Insert creates a record and returns the RETURNING row (its Id).
func (e *Executor) Insert(ctx context.Context, table string, values Values) (Row, error) {
	stmt, err := BuildInsert(table, values)
	if err != nil {
		return nil, err
	}
	rows, err := e.run(ctx, stmt, "bookstore.query.insert")
	if err != nil {
		return nil, err
	}
	return firstRow(rows), nil
}

// Update writes values to the record named by their id assignment and returns
// the RETURNING row. The row is empty when no record matched.
func (e *Executor) Update(ctx context.Context, table string, values Values) (Row, error) {
	stmt, err := BuildUpdate(table, values)
	if err != nil {
		return nil, err
	}
	rows, err := e.run(ctx, stmt, "bookstore.query.update")
	if err != nil {
		return nil, err
	}
	return firstRow(rows), nil
}

// Delete removes the record with id and returns the deleted rows.
func (e *Executor) Delete(ctx context.Context, table, id string) ([]Row, error) {
	stmt, err := BuildDelete(table, id)
	if err != nil {
		return nil, err
	}
	rows, err := e.run(ctx, stmt, "bookstore.query.delete")
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		util.DesanitizeRow(row)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

func (e *Executor) validateSpec(ctx context.Context, spec SelectSpec) error {
	if e.validator == nil {
		return nil
	}
	var err error
	if spec.Join != nil {
		err = e.validator.ValidateFragment("join condition", spec.Join.On)
	}
	if err == nil && spec.Table.IsZero() {
		err = e.validator.ValidateIdentifiers("field", append([]string{spec.RawTable}, spec.RawFields...))
	}
	if err == nil {
		err = e.validator.ValidateIdentifiers("order field", orderFields(spec.Order, spec.JoinOrder))
	}
	if err != nil && e.auditor != nil {
		e.auditor.LogBlocked(ctx, spec.leftName(), err)
	}
	return err
}

// run binds stmt, sends it to the connector on a connection released afterwards,
// and reports the outcome to the logger, tracer, auditor and hook.
func (e *Executor) run(ctx context.Context, stmt Statement, spanName string) ([]Row, error) {
	query, err := stmt.Bind(e.dialect)
	if err != nil {
		return nil, err
	}
	args := stmt.Args()

	ctx, span := e.tracer.StartSpan(ctx, spanName)
	defer span.End()

	start := time.Now()
	rows, err := e.conn.Query(ctx, query, args, ExecOptions{CloseConnection: true})
	elapsed := time.Since(start)
	err = e.dialect.TranslateError(err)

	e.logExecution(query, args, len(rows), elapsed, err)

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:       query,
		ArgCount:  len(args),
		Duration:  elapsed,
		Rows:      len(rows),
		Error:     err,
		Database:  e.driverName,
		Operation: stmt.Operation(),
		Table:     stmt.Table(),
	})

	if e.auditor != nil {
		e.auditor.LogOperation(ctx, stmt.Operation(), stmt.Table(), query, args, len(rows), err, elapsed)
	}

	e.invokeHook(ctx, QueryEvent{
		SQL:       query,
		Args:      args,
		Table:     stmt.Table(),
		Operation: stmt.Operation(),
		Duration:  elapsed,
		Rows:      len(rows),
		Error:     err,
	})

	return rows, err
}

func (e *Executor) logExecution(query string, args []any, rows int, elapsed time.Duration, err error) {
	params := e.sanitizer.FormatParams(e.sanitizer.MaskParams(query, args))
	if err != nil {
		e.logger.Error("query execution failed",
			"sql", query,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"database", e.driverName,
			"error", err,
		)
		return
	}
	e.logger.Info("query executed",
		"sql", query,
		"params", params,
		"duration_ms", elapsed.Milliseconds(),
		"rows", rows,
		"database", e.driverName,
	)
}

func firstRow(rows []Row) Row {
	if len(rows) == 0 {
		return Row{}
	}
	return rows[0]
}

func orderFields(orders ...*OrderBy) []string {
	fields := make([]string, 0, len(orders))
	for _, o := range orders {
		if o != nil && o.Field != "" {
			fields = append(fields, o.Field)
		}
	}
	return fields
}
