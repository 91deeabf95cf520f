package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{value: nil, expected: "null"},
		{value: "plain", expected: "'plain'"},
		{value: "it's", expected: "'it''s'"},
		{value: 42, expected: "42"},
		{value: int64(-7), expected: "-7"},
		{value: uint8(8), expected: "8"},
		{value: 3.25, expected: "3.25"},
		{value: float32(0.5), expected: "0.5"},
		{value: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), expected: "'2021-01-01 00:00:00'"},
	}

	for _, tt := range tests {
		got, err := Literal(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}

	_, err := Literal(true)
	assert.ErrorIs(t, err, ErrUnsupportedValueType)
	_, err = Literal(math.NaN())
	assert.ErrorIs(t, err, ErrUnsupportedValueType)
}

func TestStatement_PlaceholderMismatch(t *testing.T) {
	stmt := Statement{text: "SELECT * FROM Story WHERE a = ? AND b = ?", args: []any{1}}

	_, err := stmt.Bind(nil)
	assert.ErrorIs(t, err, ErrPlaceholderMismatch)
	_, err = stmt.Inline()
	assert.ErrorIs(t, err, ErrPlaceholderMismatch)
}

func TestStatement_InlineUnsupportedArg(t *testing.T) {
	stmt := Statement{text: "SELECT ?", args: []any{struct{}{}}}
	_, err := stmt.Inline()
	assert.ErrorIs(t, err, ErrUnsupportedValueType)
}

func TestStatement_ArgsIsCopy(t *testing.T) {
	stmt := Statement{text: "?", args: []any{"a"}}
	args := stmt.Args()
	args[0] = "b"
	assert.Equal(t, []any{"a"}, stmt.Args())
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	assert.Equal(t, "2021-01-01 05:00:00", FormatTimestamp(time.Date(2021, 1, 1, 0, 0, 0, 999, loc)))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))

	err := WrapError(ErrMissingID, "update Story")
	assert.Equal(t, "update Story: record id is required", err.Error())
	assert.ErrorIs(t, err, ErrMissingID)
}
