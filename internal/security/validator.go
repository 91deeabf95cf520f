// Package security guards the caller-supplied SQL text that the query builder
// embeds verbatim (join predicates, raw field lists) and audits write operations.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeFragment is returned when a free-text SQL fragment matches a blocked pattern.
var ErrUnsafeFragment = errors.New("unsafe SQL fragment")

// Validator checks free-text SQL fragments against injection patterns.
type Validator struct {
	patterns []*regexp.Regexp
	strict   bool
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict also rejects fragments containing quotes or bind markers.
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// NewValidator creates a validator with the default blocked patterns.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		patterns: compilePatterns(blockedPatterns),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.strict {
		v.patterns = append(v.patterns, compilePatterns(strictPatterns)...)
	}

	return v
}

// blockedPatterns never appear in a legitimate join predicate or field list.
var blockedPatterns = []string{
	`--`,
	`/\*`,
	`\*/`,
	`;`,
	`\bUNION\b`,
	`\bSELECT\b`,
	`\bDROP\b`,
	`\bDELETE\b`,
	`\bINSERT\b`,
	`\bUPDATE\b`,
	`\bTRUNCATE\b`,
	`\bALTER\b`,
	`PG_SLEEP\s*\(`,
	`INFORMATION_SCHEMA`,
	`\bOR\s+'?1'?\s*=\s*'?1'?`,
}

// strictPatterns reject literals and bind markers, leaving only column comparisons.
var strictPatterns = []string{
	`'`,
	`\?`,
	`\$\d`,
}

// ValidateFragment returns ErrUnsafeFragment if fragment matches a blocked pattern.
// kind names the fragment in the error message (e.g. "join condition").
func (v *Validator) ValidateFragment(kind, fragment string) error {
	normalized := strings.ToUpper(fragment)
	for _, pattern := range v.patterns {
		if pattern.MatchString(normalized) {
			return fmt.Errorf("%w: %s matches %s", ErrUnsafeFragment, kind, pattern.String())
		}
	}
	return nil
}

// ValidateIdentifiers checks that every name is a plain or table-qualified identifier.
func (v *Validator) ValidateIdentifiers(kind string, names []string) error {
	for _, name := range names {
		if !identifierRegex.MatchString(name) {
			return fmt.Errorf("%w: %s %q is not an identifier", ErrUnsafeFragment, kind, name)
		}
	}
	return nil
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// compilePatterns compiles string patterns to regexp.Regexp.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
