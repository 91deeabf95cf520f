package core

import (
	"fmt"
	"strings"
	"time"
)

// Condition is a SQL boolean fragment with "?" markers and its arguments.
// An empty SQL contributes nothing to a WHERE clause.
type Condition struct {
	SQL  string
	Args []any
}

// IsEmpty reports whether the condition contributes nothing.
func (c Condition) IsEmpty() bool {
	return c.SQL == ""
}

// and joins two conditions, parenthesizing each side. Empty sides are dropped.
func (c Condition) and(other Condition) Condition {
	switch {
	case c.IsEmpty():
		return other
	case other.IsEmpty():
		return c
	}
	return Condition{
		SQL:  "(" + c.SQL + ") AND (" + other.SQL + ")",
		Args: append(append([]any(nil), c.Args...), other.Args...),
	}
}

// TenantCondition restricts rows to those visible to applicationKey through the
// applicationIncluded / applicationExcluded list columns. Every column is qualified
// with its table. With a right table both sides are restricted independently.
func TenantCondition(applicationKey, left, right string) Condition {
	if applicationKey == "" || left == "" {
		return Condition{}
	}
	cond := tenantFragment(applicationKey, left)
	if right != "" {
		cond = cond.and(tenantFragment(applicationKey, right))
	}
	return cond
}

func tenantFragment(key, table string) Condition {
	return Condition{
		SQL: "(" + table + ".applicationIncluded LIKE '%'||?||'%' OR " + table + ".applicationIncluded='*')" +
			" AND (" + table + ".applicationExcluded IS NULL OR " + table + ".applicationExcluded NOT LIKE '%'||?||'%')",
		Args: []any{key, key},
	}
}

// IDCondition matches a single record id. The column is qualified with the left
// table only when a right table is joined.
func IDCondition(id, left, right string) Condition {
	if id == "" {
		return Condition{}
	}
	return Condition{
		SQL:  qualify(left, right != "") + "id = ?",
		Args: []any{id},
	}
}

// cutoffKind discriminates the three publish-date policies.
type cutoffKind uint8

const (
	cutoffNow cutoffKind = iota
	cutoffNone
	cutoffAt
)

// PublishCutoff selects how the PublishDate column filters rows. The zero value
// shows only records already published (PublishDate <= NOW()).
type PublishCutoff struct {
	kind cutoffKind
	at   time.Time
}

// PublishedNow shows only records whose publish date has passed. It equals the zero value.
func PublishedNow() PublishCutoff {
	return PublishCutoff{kind: cutoffNow}
}

// NoPublishFilter disables publish-date filtering, exposing drafts to edit and preview flows.
func NoPublishFilter() PublishCutoff {
	return PublishCutoff{kind: cutoffNone}
}

// PublishedBefore shows records published at or before t.
func PublishedBefore(t time.Time) PublishCutoff {
	return PublishCutoff{kind: cutoffAt, at: t.UTC().Truncate(time.Second)}
}

var cutoffLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	TimestampLayout,
	"2006-01-02",
}

// ParseCutoff parses a cutoff from text. "" and "now" select PublishedNow,
// "none" and "null" select NoPublishFilter, anything else must be a date or timestamp.
func ParseCutoff(s string) (PublishCutoff, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "now":
		return PublishedNow(), nil
	case "none", "null":
		return NoPublishFilter(), nil
	}
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return PublishedBefore(t), nil
		}
	}
	return PublishCutoff{}, fmt.Errorf("invalid publish cutoff %q", s)
}

// IsDefault reports whether c is the PublishedNow policy.
func (c PublishCutoff) IsDefault() bool {
	return c.kind == cutoffNow
}

// String returns "now", "none" or the normalized timestamp.
func (c PublishCutoff) String() string {
	switch c.kind {
	case cutoffNow:
		return "now"
	case cutoffNone:
		return "none"
	case cutoffAt:
		return FormatTimestamp(c.at)
	}
	panic(fmt.Sprintf("unknown publish cutoff kind %d", c.kind))
}

// PublishDateCondition builds the publish-date filter for c. Columns are qualified
// only when a right table is joined, and then both sides are filtered.
func PublishDateCondition(c PublishCutoff, left, right string) Condition {
	joined := right != ""
	switch c.kind {
	case cutoffNone:
		return Condition{}
	case cutoffNow:
		cond := Condition{SQL: qualify(left, joined) + "PublishDate <= NOW()"}
		if joined {
			cond.SQL += " AND " + right + ".PublishDate <= NOW()"
		}
		return cond
	case cutoffAt:
		at := FormatTimestamp(c.at)
		cond := Condition{SQL: qualify(left, joined) + "PublishDate <= ?", Args: []any{at}}
		if joined {
			cond.SQL += " AND " + right + ".PublishDate <= ?"
			cond.Args = append(cond.Args, at)
		}
		return cond
	}
	panic(fmt.Sprintf("unknown publish cutoff kind %d", c.kind))
}

func qualify(table string, joined bool) string {
	if !joined || table == "" {
		return ""
	}
	return table + "."
}
