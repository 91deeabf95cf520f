// Package schema holds the static table descriptors of the bookstore entities.
//
// Descriptors are plain values. The registry hands out copies so callers can never
// alter the process-wide definitions.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// IDPrefixLen is the length of the id prefix that identifies an entity kind.
const IDPrefixLen = 4

// ErrUnknownTable is returned when a kind or id prefix has no registered descriptor.
var ErrUnknownTable = errors.New("unknown table")

// Table describes one entity table.
type Table struct {
	Name     string
	Columns  []string
	IDPrefix string
}

// Alias is the prefix used for this table's columns in joined result sets.
func (t Table) Alias() string {
	return strings.ToLower(t.Name)
}

// HasColumn reports whether col is one of the declared columns.
func (t Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// IsZero reports whether t is the zero descriptor.
func (t Table) IsZero() bool {
	return t.Name == ""
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	t.Columns = slices.Clone(t.Columns)
	return t
}

// Entity descriptors.
var (
	Story = Table{
		Name: "Story",
		Columns: []string{
			"Id", "Name", "Description", "ImageUrl", "SortNumber", "PublishDate",
			"ApplicationIncluded", "ApplicationExcluded", "CreatedAt", "UpdatedAt",
		},
		IDPrefix: "000s",
	}
	Chapter = Table{
		Name: "Chapter",
		Columns: []string{
			"Id", "StoryId", "Name", "Description", "SortNumber", "PublishDate",
			"ApplicationIncluded", "ApplicationExcluded", "CreatedAt", "UpdatedAt",
		},
		IDPrefix: "000c",
	}
	Paragraph = Table{
		Name: "Paragraph",
		Columns: []string{
			"Id", "ChapterId", "Name", "Content", "SortNumber", "PublishDate",
			"ApplicationIncluded", "ApplicationExcluded", "CreatedAt", "UpdatedAt",
		},
		IDPrefix: "000p",
	}
	Configuration = Table{
		Name: "Configuration",
		Columns: []string{
			"Id", "Name", "Value", "PublishDate", "ApplicationIncluded", "ApplicationExcluded",
		},
		IDPrefix: "000f",
	}
	Identity = Table{
		Name: "Identity",
		Columns: []string{
			"Id", "Email", "Name", "Provider", "ProviderId", "CreatedAt",
		},
		IDPrefix: "000i",
	}
)

var registry = map[string]Table{
	"story":         Story,
	"chapter":       Chapter,
	"paragraph":     Paragraph,
	"configuration": Configuration,
	"identity":      Identity,
}

// Kinds returns the registered entity kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Lookup returns the descriptor registered for kind (case-insensitive).
func Lookup(kind string) (Table, error) {
	t, ok := registry[strings.ToLower(kind)]
	if !ok {
		return Table{}, fmt.Errorf("%w: kind %q", ErrUnknownTable, kind)
	}
	return t.Clone(), nil
}

// ByID returns the descriptor whose id prefix matches the first IDPrefixLen characters of id.
func ByID(id string) (Table, error) {
	if len(id) >= IDPrefixLen {
		prefix := id[:IDPrefixLen]
		for _, t := range registry {
			if t.IDPrefix == prefix {
				return t.Clone(), nil
			}
		}
	}
	return Table{}, fmt.Errorf("%w: id %q", ErrUnknownTable, id)
}

// NewID generates a record id for t: the table's prefix followed by 32 hex characters.
func NewID(t Table) string {
	return t.IDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
