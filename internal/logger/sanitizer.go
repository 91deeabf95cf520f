package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// Sanitizer masks sensitive values before statements and cache keys reach the log.
// A statement is treated as sensitive when it names one of the sensitive columns;
// then every string parameter is masked.
type Sanitizer struct {
	maskValue string
	columns   *regexp.Regexp
	keys      []string
}

// DefaultSensitiveColumns are masked unless NewSanitizer is given an explicit list.
var DefaultSensitiveColumns = []string{
	"password", "token", "secret", "email", "providerid", "code",
}

// DefaultSensitiveKeyPrefixes mark cache lookups whose suffix must not be logged.
var DefaultSensitiveKeyPrefixes = []string{"used-auth-codes"}

const maskValue = "***REDACTED***"

// NewSanitizer creates a sanitizer for the given column names.
// If no columns are provided, DefaultSensitiveColumns is used.
func NewSanitizer(columns []string) *Sanitizer {
	if len(columns) == 0 {
		columns = DefaultSensitiveColumns
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = regexp.QuoteMeta(c)
	}

	return &Sanitizer{
		maskValue: maskValue,
		columns:   regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
		keys:      DefaultSensitiveKeyPrefixes,
	}
}

// MaskParams returns params with string values replaced when sql names a sensitive column.
// The input slice is never modified.
func (s *Sanitizer) MaskParams(sql string, params []any) []any {
	if len(params) == 0 || !s.columns.MatchString(sql) {
		return params
	}

	masked := make([]any, len(params))
	for i, p := range params {
		if _, ok := p.(string); ok {
			masked[i] = s.maskValue
		} else {
			masked[i] = p
		}
	}
	return masked
}

// MaskKey hides the variable part of sensitive cache keys such as used auth codes.
func (s *Sanitizer) MaskKey(key string) string {
	for _, prefix := range s.keys {
		if i := strings.Index(key, prefix); i >= 0 {
			return key[:i+len(prefix)] + "-" + s.maskValue
		}
	}
	return key
}

// FormatParams converts parameters to a bounded string representation for logging.
func (s *Sanitizer) FormatParams(params []any) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue truncates long values to keep log lines bounded.
func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}

	return str
}
