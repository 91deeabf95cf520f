package core

import (
	"fmt"
	"strings"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy sorts by one field. An empty Direction sorts ascending.
type OrderBy struct {
	Field     string
	Direction Direction
}

func (o OrderBy) clause(table string) (string, error) {
	dir := Direction(strings.ToUpper(string(o.Direction)))
	switch dir {
	case "":
		dir = Asc
	case Asc, Desc:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, o.Direction)
	}
	if table != "" {
		return table + "." + o.Field + " " + string(dir), nil
	}
	return o.Field + " " + string(dir), nil
}

// orderStrategy is the ordering selected for a combination of joined table and sort fields.
type orderStrategy uint8

const (
	orderNone orderStrategy = iota
	orderUnqualified
	orderLeft
	orderRight
	orderBoth
)

// selectOrderStrategy picks the ordering for the input combination; first match wins.
// A right-hand order without a joined table selects orderNone.
func selectOrderStrategy(joined bool, left, right *OrderBy) orderStrategy {
	hasLeft := left != nil && left.Field != ""
	hasRight := right != nil && right.Field != ""
	switch {
	case !joined && hasLeft:
		return orderUnqualified
	case joined && hasLeft && !hasRight:
		return orderLeft
	case joined && !hasLeft && hasRight:
		return orderRight
	case joined && hasLeft && hasRight:
		return orderBoth
	default:
		return orderNone
	}
}

// buildOrder returns " ORDER BY <clause>" or "" when no strategy applies.
func buildOrder(leftTable, rightTable string, left, right *OrderBy) (string, error) {
	var (
		clause string
		err    error
	)
	switch selectOrderStrategy(rightTable != "", left, right) {
	case orderNone:
		return "", nil
	case orderUnqualified:
		clause, err = left.clause("")
	case orderLeft:
		clause, err = left.clause(leftTable)
	case orderRight:
		clause, err = right.clause(rightTable)
	case orderBoth:
		var l, r string
		if l, err = left.clause(leftTable); err == nil {
			if r, err = right.clause(rightTable); err == nil {
				clause = l + ", " + r
			}
		}
	}
	if err != nil {
		return "", err
	}
	return " ORDER BY " + clause, nil
}
