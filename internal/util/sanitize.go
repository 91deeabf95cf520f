// Package util provides the quote sanitizer used when values are rendered into SQL text.
//
// The sanitizer only doubles single quotes. Semicolons, comment sequences and
// backslashes pass through unchanged; it is not a general injection defense.
package util

import "strings"

// SanitizeString doubles embedded single quotes and trims surrounding whitespace.
func SanitizeString(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "'", "''")
}

// DesanitizeString collapses doubled single quotes back to one.
func DesanitizeString(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

// Sanitize applies SanitizeString to string values. Other values are returned unchanged.
func Sanitize(v any) any {
	if s, ok := v.(string); ok {
		return SanitizeString(s)
	}
	return v
}

// Desanitize applies DesanitizeString to string values. Other values are returned unchanged.
func Desanitize(v any) any {
	if s, ok := v.(string); ok {
		return DesanitizeString(s)
	}
	return v
}

// DesanitizeRow desanitizes every string field of row in place.
func DesanitizeRow(row map[string]any) {
	for k, v := range row {
		if s, ok := v.(string); ok {
			row[k] = DesanitizeString(s)
		}
	}
}
