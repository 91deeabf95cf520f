package core

import (
	"fmt"
	"sort"
	"strings"
)

// Assignment is one column and the value written to it.
type Assignment struct {
	Column string
	Value  any
}

// Values is an ordered list of assignments. Column order in the generated
// statement follows the list order.
type Values []Assignment

// Set appends an assignment and returns the extended list.
func (v Values) Set(column string, value any) Values {
	return append(v, Assignment{Column: column, Value: value})
}

// Get returns the value assigned to column (case-insensitive).
func (v Values) Get(column string) (any, bool) {
	for _, a := range v {
		if strings.EqualFold(a.Column, column) {
			return a.Value, true
		}
	}
	return nil, false
}

// ValuesFromMap converts m into Values sorted by column name, so generated SQL is deterministic.
func ValuesFromMap(m map[string]any) Values {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(Values, 0, len(keys))
	for _, k := range keys {
		values = values.Set(k, m[k])
	}
	return values
}

// BuildInsert renders INSERT INTO <table> (<cols>) VALUES (<vals>) RETURNING Id;
func BuildInsert(table string, values Values) (Statement, error) {
	if table == "" {
		return Statement{}, ErrMissingTable
	}
	if len(values) == 0 {
		return Statement{}, ErrNoValues
	}

	cols := make([]string, 0, len(values))
	markers := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, a := range values {
		v, err := normalizeValue(a.Value)
		if err != nil {
			return Statement{}, WrapError(err, "column "+a.Column)
		}
		cols = append(cols, a.Column)
		markers = append(markers, "?")
		args = append(args, v)
	}

	return Statement{
		text: "INSERT INTO " + table +
			" (" + strings.Join(cols, ", ") + ")" +
			" VALUES (" + strings.Join(markers, ", ") + ") RETURNING Id;",
		args:      args,
		table:     table,
		operation: "INSERT",
	}, nil
}

// BuildUpdate renders UPDATE <table> SET <col = val, ...> WHERE id = <id> RETURNING id;
// The id assignment is required; it is removed from the SET list and used in the WHERE clause.
func BuildUpdate(table string, values Values) (Statement, error) {
	if table == "" {
		return Statement{}, ErrMissingTable
	}

	var (
		id    any
		found bool
		sets  = make([]string, 0, len(values))
		args  = make([]any, 0, len(values))
	)
	for _, a := range values {
		if strings.EqualFold(a.Column, "id") {
			id, found = a.Value, true
			continue
		}
		v, err := normalizeValue(a.Value)
		if err != nil {
			return Statement{}, WrapError(err, "column "+a.Column)
		}
		sets = append(sets, a.Column+" = ?")
		args = append(args, v)
	}
	if !found || id == nil || id == "" {
		return Statement{}, ErrMissingID
	}
	idArg, err := normalizeValue(id)
	if err != nil {
		return Statement{}, WrapError(err, "column id")
	}
	if len(sets) == 0 {
		return Statement{}, ErrNoValues
	}

	return Statement{
		text:      "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = ? RETURNING id;",
		args:      append(args, idArg),
		table:     table,
		operation: "UPDATE",
	}, nil
}

// BuildDelete renders DELETE FROM <table> WHERE id = <id> RETURNING *
func BuildDelete(table, id string) (Statement, error) {
	if table == "" {
		return Statement{}, ErrMissingTable
	}
	if id == "" {
		return Statement{}, ErrMissingID
	}
	return Statement{
		text:      "DELETE FROM " + table + " WHERE id = ? RETURNING *",
		args:      []any{id},
		table:     table,
		operation: "DELETE",
	}, nil
}

// String renders the assignments for diagnostics.
func (v Values) String() string {
	parts := make([]string, len(v))
	for i, a := range v {
		parts[i] = fmt.Sprintf("%s=%v", a.Column, a.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
