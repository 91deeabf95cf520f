package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		kind     string
		expected Table
	}{
		{kind: "story", expected: Story},
		{kind: "Chapter", expected: Chapter},
		{kind: "PARAGRAPH", expected: Paragraph},
		{kind: "configuration", expected: Configuration},
		{kind: "identity", expected: Identity},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			table, err := Lookup(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, table)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("author")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	table, err := Lookup("story")
	require.NoError(t, err)

	table.Columns[0] = "Mutated"

	assert.Equal(t, "Id", Story.Columns[0])
}

func TestByID(t *testing.T) {
	table, err := ByID("000pabcdef")
	require.NoError(t, err)
	assert.Equal(t, "Paragraph", table.Name)

	_, err = ByID("000x1234")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = ByID("00")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestTable_Alias(t *testing.T) {
	assert.Equal(t, "story", Story.Alias())
	assert.Equal(t, "paragraph", Paragraph.Alias())
}

func TestTable_HasColumn(t *testing.T) {
	assert.True(t, Chapter.HasColumn("SortNumber"))
	assert.False(t, Identity.HasColumn("SortNumber"))
}

func TestNewID(t *testing.T) {
	id := NewID(Chapter)
	assert.Len(t, id, IDPrefixLen+32)
	assert.Equal(t, "000c", id[:IDPrefixLen])
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewID(Chapter))

	table, err := ByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Chapter", table.Name)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"chapter", "configuration", "identity", "paragraph", "story"}, Kinds())
}
