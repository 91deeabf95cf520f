// Package dialects provides the SQL dialect used to bind generated statements.
// Statements are built with "?" markers and renumbered by the dialect at execution time.
package dialects

import "errors"

// Driver errors translated by a dialect. The driver error stays in the chain.
var (
	// ErrDuplicateKey is returned when a write violates a unique constraint, e.g. an existing Id.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey is returned when a write references a missing parent record.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrUndefinedTable is returned when a statement names a table the database does not have.
	ErrUndefinedTable = errors.New("undefined table")
)

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Placeholder returns the marker of the index-th (1-based) argument.
	Placeholder(index int) string
	// TranslateError maps driver errors onto the package sentinels.
	// Errors it does not recognize, and nil, are returned unchanged.
	TranslateError(err error) error
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := dialects[name]; ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// Lookup retrieves a registered dialect by driver name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}
