package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_MaskParams(t *testing.T) {
	s := NewSanitizer(nil)

	tests := []struct {
		name     string
		sql      string
		params   []any
		expected []any
	}{
		{
			name:     "no sensitive column",
			sql:      "SELECT Id, Name FROM Story WHERE id = ?",
			params:   []any{"000s1"},
			expected: []any{"000s1"},
		},
		{
			name:     "email column masks strings only",
			sql:      "INSERT INTO Identity (Id, Email, Name) VALUES (?, ?, ?)",
			params:   []any{"000i1", "a@b.c", 42},
			expected: []any{maskValue, maskValue, 42},
		},
		{
			name:     "case insensitive",
			sql:      "UPDATE Identity SET ProviderId = ? WHERE id = ?",
			params:   []any{"gh-1", "000i1"},
			expected: []any{maskValue, maskValue},
		},
		{
			name:     "word boundary",
			sql:      "SELECT Codename FROM Story",
			params:   []any{"x"},
			expected: []any{"x"},
		},
		{
			name:     "empty params",
			sql:      "SELECT Email FROM Identity",
			params:   nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.MaskParams(tt.sql, tt.params))
		})
	}
}

func TestSanitizer_MaskParams_DoesNotModifyInput(t *testing.T) {
	s := NewSanitizer([]string{"name"})
	params := []any{"secret name"}

	_ = s.MaskParams("SELECT Name FROM Story", params)

	assert.Equal(t, "secret name", params[0])
}

func TestSanitizer_MaskKey(t *testing.T) {
	s := NewSanitizer(nil)

	assert.Equal(t, "bs-app1-3-used-auth-codes-"+maskValue, s.MaskKey("bs-app1-3-used-auth-codes-abc123"))
	assert.Equal(t, "bs-app1-3-stories-000s1", s.MaskKey("bs-app1-3-stories-000s1"))
}

func TestSanitizer_FormatParams(t *testing.T) {
	s := NewSanitizer(nil)

	assert.Equal(t, "[]", s.FormatParams(nil))
	assert.Equal(t, "[000s1, 3, NULL]", s.FormatParams([]any{"000s1", 3, nil}))

	long := strings.Repeat("x", 150)
	formatted := s.FormatParams([]any{long})
	assert.Equal(t, "["+strings.Repeat("x", 100)+"...]", formatted)
}
