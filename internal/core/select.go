package core

import (
	"strings"

	"github.com/coregx/bookstore/internal/schema"
)

// HeadlineColumns are the right-table columns projected by a join.
// Joins only assemble headline lists, so the full right row is never selected.
var HeadlineColumns = []string{"Id", "Name", "SortNumber"}

// Join describes a LEFT JOIN of a right table. On is caller-supplied SQL and is
// not checked against the schema. It takes no arguments, so it must not contain "?"
// (neither as a literal nor as the jsonb operator).
type Join struct {
	Table schema.Table
	On    string
}

// SelectSpec describes one read. It is a plain value: build it once, pass it to
// BuildSelect or Executor.Select, and discard it.
//
// The left table is Table, or RawTable with RawFields when no descriptor applies.
// The zero Cutoff shows only published records; use NoPublishFilter for drafts.
// An empty ApplicationKey omits the tenant condition.
type SelectSpec struct {
	Table          schema.Table
	RawTable       string
	RawFields      []string
	Join           *Join
	ID             string
	Cutoff         PublishCutoff
	ApplicationKey string
	Order          *OrderBy
	JoinOrder      *OrderBy
}

func (s SelectSpec) leftName() string {
	if !s.Table.IsZero() {
		return s.Table.Name
	}
	return s.RawTable
}

func (s SelectSpec) leftColumns() []string {
	if !s.Table.IsZero() {
		return s.Table.Columns
	}
	return s.RawFields
}

func (s SelectSpec) rightName() string {
	if s.Join == nil {
		return ""
	}
	return s.Join.Table.Name
}

// BuildSelect renders spec as
// SELECT <fields> FROM <from> [WHERE (<conditions>)] [ORDER BY <order>].
func BuildSelect(spec SelectSpec) (Statement, error) {
	left := spec.leftName()
	if left == "" {
		return Statement{}, ErrMissingTable
	}
	right := spec.rightName()
	if spec.Join != nil {
		if right == "" {
			return Statement{}, WrapError(ErrMissingTable, "join")
		}
		if strings.TrimSpace(spec.Join.On) == "" {
			return Statement{}, ErrMissingJoinCondition
		}
		if strings.Contains(spec.Join.On, "?") {
			return Statement{}, ErrJoinBindMarker
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectFields(spec, left))
	b.WriteString(" FROM ")
	b.WriteString(left)
	if spec.Join != nil {
		b.WriteString(" LEFT JOIN " + right + " ON " + spec.Join.On)
	}

	where := whereClause(
		IDCondition(spec.ID, left, right),
		PublishDateCondition(spec.Cutoff, left, right),
		TenantCondition(spec.ApplicationKey, left, right),
	)
	b.WriteString(where.SQL)

	order, err := buildOrder(left, right, spec.Order, spec.JoinOrder)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(order)

	return Statement{
		text:      b.String(),
		args:      where.Args,
		table:     left,
		operation: "SELECT",
	}, nil
}

func selectFields(spec SelectSpec, left string) string {
	cols := spec.leftColumns()
	if spec.Join == nil {
		if len(cols) == 0 {
			return "*"
		}
		return strings.Join(cols, ", ")
	}

	leftAlias := strings.ToLower(left)
	right := spec.Join.Table
	fields := make([]string, 0, len(cols)+len(HeadlineColumns))
	for _, col := range cols {
		fields = append(fields, left+"."+col+" AS "+leftAlias+"_"+col)
	}
	for _, col := range HeadlineColumns {
		if right.HasColumn(col) {
			fields = append(fields, right.Name+"."+col+" AS "+right.Alias()+"_"+col)
		}
	}
	return strings.Join(fields, ", ")
}

// whereClause parenthesizes each non-empty condition, joins them with AND and
// wraps the conjunction once more.
func whereClause(conds ...Condition) Condition {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		if c.IsEmpty() {
			continue
		}
		parts = append(parts, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	if len(parts) == 0 {
		return Condition{}
	}
	return Condition{
		SQL:  " WHERE (" + strings.Join(parts, " AND ") + ")",
		Args: args,
	}
}
