package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coregx/bookstore/internal/core"
	"github.com/coregx/bookstore/internal/dialects"
	"github.com/coregx/bookstore/internal/schema"
	"github.com/coregx/bookstore/internal/security"
)

// SQLResult is the JSON payload of the sql commands.
type SQLResult struct {
	SQL   string `json:"sql"`
	Bound string `json:"bound"`
	Args  []any  `json:"args"`
}

type selectFlags struct {
	id        string
	app       string
	cutoff    string
	fields    []string
	join      string
	on        string
	order     string
	joinOrder string
}

// NewSQLCommand creates the sql command group, which renders statements without executing them.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Render the SQL issued by the data layer",
	}
	cmd.AddCommand(newSQLSelectCommand(rootOpts))
	cmd.AddCommand(newSQLInsertCommand(rootOpts))
	cmd.AddCommand(newSQLUpdateCommand(rootOpts))
	cmd.AddCommand(newSQLDeleteCommand(rootOpts))
	return cmd
}

func newSQLSelectCommand(rootOpts *RootOptions) *cobra.Command {
	f := &selectFlags{}
	cmd := &cobra.Command{
		Use:   "select <kind|table>",
		Short: "Render a read",
		Long: `Render a read of an entity kind, or of a raw table with --fields.

Orders are written as field or field:desc.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.spec(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid select", err)
			}
			stmt, err := core.BuildSelect(spec)
			if err != nil {
				return WrapExitError(ExitCommandError, "build select", err)
			}
			return writeStatement(rootOpts.formatter(cmd), stmt)
		},
	}
	cmd.Flags().StringVar(&f.id, "id", "", "record id")
	cmd.Flags().StringVar(&f.app, "app", "", "application key (tenant)")
	cmd.Flags().StringVar(&f.cutoff, "cutoff", "now", "publish cutoff: now, none or a timestamp")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields of a raw table")
	cmd.Flags().StringVar(&f.join, "join", "", "kind to LEFT JOIN")
	cmd.Flags().StringVar(&f.on, "on", "", "join condition")
	cmd.Flags().StringVar(&f.order, "order", "", "order of the left table")
	cmd.Flags().StringVar(&f.joinOrder, "join-order", "", "order of the joined table")
	return cmd
}

func (f *selectFlags) spec(target string) (core.SelectSpec, error) {
	cutoff, err := core.ParseCutoff(f.cutoff)
	if err != nil {
		return core.SelectSpec{}, err
	}
	spec := core.SelectSpec{ID: f.id, Cutoff: cutoff, ApplicationKey: f.app}

	if t, err := schema.Lookup(target); err == nil && len(f.fields) == 0 {
		spec.Table = t
	} else {
		spec.RawTable = target
		spec.RawFields = f.fields
	}

	if f.join != "" {
		right, err := schema.Lookup(f.join)
		if err != nil {
			return core.SelectSpec{}, err
		}
		spec.Join = &core.Join{Table: right, On: f.on}
	}
	if spec.Order, err = parseOrder(f.order); err != nil {
		return core.SelectSpec{}, err
	}
	if spec.JoinOrder, err = parseOrder(f.joinOrder); err != nil {
		return core.SelectSpec{}, err
	}
	for _, o := range []*core.OrderBy{spec.Order, spec.JoinOrder} {
		if o == nil {
			continue
		}
		if err := security.NewValidator().ValidateIdentifiers("order field", []string{o.Field}); err != nil {
			return core.SelectSpec{}, err
		}
	}
	return spec, nil
}

func newSQLInsertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <kind> <column=value>...",
		Short: "Render an insert",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, rootOpts, args, core.BuildInsert)
		},
	}
}

func newSQLUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <kind> id=<id> <column=value>...",
		Short: "Render an update",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, rootOpts, args, core.BuildUpdate)
		},
	}
}

func newSQLDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Render a delete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := schema.Lookup(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid delete", err)
			}
			stmt, err := core.BuildDelete(t.Name, args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "build delete", err)
			}
			return writeStatement(rootOpts.formatter(cmd), stmt)
		},
	}
}

func runWrite(cmd *cobra.Command, rootOpts *RootOptions, args []string, build func(string, core.Values) (core.Statement, error)) error {
	t, err := schema.Lookup(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid "+cmd.Name(), err)
	}
	values, err := parseValues(args[1:])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid "+cmd.Name(), err)
	}
	stmt, err := build(t.Name, values)
	if err != nil {
		return WrapExitError(ExitCommandError, "build "+cmd.Name(), err)
	}
	return writeStatement(rootOpts.formatter(cmd), stmt)
}

func writeStatement(f *OutputFormatter, stmt core.Statement) error {
	inline, err := stmt.Inline()
	if err != nil {
		return WrapExitError(ExitCommandError, "render statement", err)
	}
	bound, err := stmt.Bind(dialects.GetDialect("postgres"))
	if err != nil {
		return WrapExitError(ExitCommandError, "bind statement", err)
	}
	f.VerboseLog("bound: %s", bound)

	result := SQLResult{SQL: inline, Bound: bound, Args: stmt.Args()}
	return f.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, inline)
		return err
	})
}

// parseOrder parses field or field:direction.
func parseOrder(s string) (*core.OrderBy, error) {
	if s == "" {
		return nil, nil
	}
	field, dir, _ := strings.Cut(s, ":")
	if field == "" {
		return nil, fmt.Errorf("invalid order %q", s)
	}
	return &core.OrderBy{Field: field, Direction: core.Direction(strings.ToUpper(dir))}, nil
}

// parseValues parses column=value pairs. null is SQL NULL; integers and
// floats keep their type except in the Id column; anything else is a string.
func parseValues(pairs []string) (core.Values, error) {
	values := make(core.Values, 0, len(pairs))
	for _, pair := range pairs {
		col, raw, ok := strings.Cut(pair, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q: want column=value", pair)
		}
		values = values.Set(col, parseValue(col, raw))
	}
	return values, nil
}

func parseValue(col, raw string) any {
	if strings.EqualFold(col, "id") {
		return raw
	}
	if raw == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return raw
}
