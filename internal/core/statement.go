package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/bookstore/internal/dialects"
	"github.com/coregx/bookstore/internal/util"
)

// TimestampLayout is the literal form of timestamps in generated SQL.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp normalizes t to UTC with second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Statement is a generated SQL statement. Its text uses "?" as the argument marker;
// Bind renumbers the markers for a dialect and Inline renders the arguments as literals.
type Statement struct {
	text      string
	args      []any
	table     string
	operation string
}

// Text returns the statement with "?" markers.
func (s Statement) Text() string {
	return s.text
}

// Args returns a copy of the statement arguments.
func (s Statement) Args() []any {
	return append([]any(nil), s.args...)
}

// Table returns the primary table of the statement.
func (s Statement) Table() string {
	return s.table
}

// Operation returns SELECT, INSERT, UPDATE or DELETE.
func (s Statement) Operation() string {
	return s.operation
}

// Bind returns the statement text with dialect placeholders ($1, $2, ...).
func (s Statement) Bind(d dialects.Dialect) (string, error) {
	i := 0
	out, err := s.replaceMarkers(func(_ any) string {
		i++
		return d.Placeholder(i)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Inline returns the statement with every argument rendered as a SQL literal.
// Strings are sanitized and single-quoted, nil becomes null.
// The result is meant for logs and diagnostics; execution always binds.
func (s Statement) Inline() (string, error) {
	var litErr error
	out, err := s.replaceMarkers(func(v any) string {
		lit, err := Literal(v)
		if err != nil && litErr == nil {
			litErr = err
		}
		return lit
	})
	if err != nil {
		return "", err
	}
	if litErr != nil {
		return "", litErr
	}
	return out, nil
}

// replaceMarkers substitutes each "?" in order with render(arg).
func (s Statement) replaceMarkers(render func(any) string) (string, error) {
	if n := strings.Count(s.text, "?"); n != len(s.args) {
		return "", fmt.Errorf("%w: %d markers, %d args", ErrPlaceholderMismatch, n, len(s.args))
	}

	var b strings.Builder
	b.Grow(len(s.text) + 8*len(s.args))
	next := 0
	for i := 0; i < len(s.text); i++ {
		if s.text[i] == '?' {
			b.WriteString(render(s.args[next]))
			next++
			continue
		}
		b.WriteByte(s.text[i])
	}
	return b.String(), nil
}

// Literal renders a writable value as SQL text.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return "'" + util.SanitizeString(val) + "'", nil
	case time.Time:
		return "'" + FormatTimestamp(val) + "'", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValueType, v)
	}
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite float %v", ErrUnsupportedValueType, f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}

// normalizeValue validates v and returns the form that is bound for execution.
// Strings are trimmed and timestamps normalized the same way Literal renders them.
func normalizeValue(v any) (any, error) {
	if _, err := Literal(v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case time.Time:
		return FormatTimestamp(val), nil
	default:
		return v, nil
	}
}
