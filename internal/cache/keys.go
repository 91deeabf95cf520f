package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/bookstore/internal/schema"
)

// Kind is the logical kind of a cached value.
type Kind string

// Cache kinds.
const (
	KindAuthCode  Kind = "auth-code"
	KindMetadata  Kind = "metadata"
	KindStoryList Kind = "story-list"
	KindStory     Kind = "story"
	KindChapter   Kind = "chapter"
	KindParagraph Kind = "paragraph"
)

// Literal lookup keys.
const (
	// AuthCodePrefix starts every used-auth-code lookup, e.g. "used-auth-codes-4f2a".
	AuthCodePrefix = "used-auth-codes"
	// MetadataKey looks up the configuration rows.
	MetadataKey = "metadata"
	// StoryListKey looks up the list of all stories.
	StoryListKey = "storiesAll"
)

const (
	// AuthCodeTTL is the fixed lifetime of used auth code entries.
	AuthCodeTTL = 1200 * time.Second
	// DefaultTTL is used when the factory has no lifetime configured.
	DefaultTTL = time.Hour
)

// ErrUnknownCacheKey is returned for lookups that match no cache kind.
var ErrUnknownCacheKey = errors.New("unknown cache key")

// Namespace scopes every key to one deployment: {prefix}-{application}-{increment}.
// Bumping DataIncrement orphans all existing entries.
type Namespace struct {
	KeyPrefix      string
	ApplicationKey string
	DataIncrement  int
}

func (n Namespace) String() string {
	return n.KeyPrefix + "-" + n.ApplicationKey + "-" + strconv.Itoa(n.DataIncrement)
}

// KeyFunc renders a namespaced key for a lookup.
type KeyFunc func(lookup string) string

// Generator renders the keys of one lookup.
type Generator struct {
	Kind    Kind
	lookup  string
	ttl     time.Duration
	current KeyFunc
	legacy  KeyFunc
}

// Key returns the current key.
func (g Generator) Key() string {
	return g.current(g.lookup)
}

// LegacyKey returns the key written by the previous key scheme, probed on read.
// It reports false for kinds without a legacy scheme.
func (g Generator) LegacyKey() (string, bool) {
	if g.legacy == nil {
		return "", false
	}
	return g.legacy(g.lookup), true
}

// Lifetime returns the expiry applied on write.
func (g Generator) Lifetime() time.Duration {
	return g.ttl
}

// Keys returns the current key followed by the legacy key when it differs.
func (g Generator) Keys() []string {
	keys := []string{g.Key()}
	if legacy, ok := g.LegacyKey(); ok && legacy != keys[0] {
		keys = append(keys, legacy)
	}
	return keys
}

// KeyFactory resolves lookups to generators within a namespace.
type KeyFactory struct {
	Namespace  Namespace
	DefaultTTL time.Duration
}

// Resolve returns the generator for lookup. Lookups are an auth code key
// (AuthCodePrefix...), MetadataKey, StoryListKey, or a record id whose prefix
// names a story, chapter or paragraph. Anything else is ErrUnknownCacheKey.
func (f KeyFactory) Resolve(lookup string) (Generator, error) {
	ttl := f.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ns := f.Namespace.String()

	suffixed := func(suffix string) KeyFunc {
		return func(string) string { return ns + "-" + suffix }
	}
	byID := func(plural string) KeyFunc {
		return func(id string) string { return ns + "-" + plural + "-" + id }
	}

	gen := Generator{lookup: lookup, ttl: ttl}
	switch {
	case strings.HasPrefix(lookup, AuthCodePrefix):
		gen.Kind = KindAuthCode
		gen.ttl = AuthCodeTTL
		gen.current = func(code string) string { return ns + "-" + code }
	case lookup == MetadataKey:
		gen.Kind = KindMetadata
		gen.current = suffixed("metadata")
	case lookup == StoryListKey:
		gen.Kind = KindStoryList
		gen.current = suffixed("stories")
	case hasIDPrefix(lookup, schema.Paragraph):
		gen.Kind = KindParagraph
		gen.current = byID("paragraphs")
	case hasIDPrefix(lookup, schema.Chapter):
		gen.Kind = KindChapter
		gen.current = byID("chapters")
	case hasIDPrefix(lookup, schema.Story):
		gen.Kind = KindStory
		gen.current = byID("stories")
	default:
		return Generator{}, fmt.Errorf("%w: %q", ErrUnknownCacheKey, lookup)
	}
	// The legacy scheme currently renders the same keys.
	gen.legacy = gen.current
	return gen, nil
}

func hasIDPrefix(lookup string, t schema.Table) bool {
	return len(lookup) >= schema.IDPrefixLen && lookup[:schema.IDPrefixLen] == t.IDPrefix
}
