// Package store is the data facade of the bookstore: typed reads of stories,
// chapters, paragraphs, configuration and identities, and writes that keep the
// cache consistent.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/coregx/bookstore/internal/cache"
	"github.com/coregx/bookstore/internal/core"
	"github.com/coregx/bookstore/internal/logger"
	"github.com/coregx/bookstore/internal/schema"
)

var (
	// ErrMissingExecutor is returned when a Store is created without an executor.
	ErrMissingExecutor = errors.New("query executor is not configured")
	// ErrWrongKind is returned when an id does not belong to the requested entity.
	ErrWrongKind = errors.New("id belongs to a different entity")
	// ErrCacheDisabled is returned by operations that need the cache when none is configured.
	ErrCacheDisabled = errors.New("cache is not configured")
)

// Record is one entity row keyed by column name.
// Records read from the cache carry JSON-decoded values (numbers as float64).
type Record map[string]any

// Get returns the value of column, matching the name case-insensitively.
func (r Record) Get(column string) any {
	if v, ok := r[column]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v
		}
	}
	return nil
}

// StoryView is a story with the headlines of its chapters.
type StoryView struct {
	Story    Record   `json:"story"`
	Chapters []Record `json:"chapters"`
}

// ChapterView is a chapter with the headlines of its paragraphs.
type ChapterView struct {
	Chapter    Record   `json:"chapter"`
	Paragraphs []Record `json:"paragraphs"`
}

// ReadOptions adjusts one read.
type ReadOptions struct {
	// SkipCache reads storage without consulting or filling the cache.
	SkipCache bool
	// Cutoff is the publish-date policy. The zero value shows published records only.
	Cutoff core.PublishCutoff
	// ApplicationKey overrides the store's tenant key for this read.
	ApplicationKey string
}

// Store reads and writes bookstore entities.
// Only default reads are cached: no SkipCache, the PublishedNow cutoff and the store's own tenant.
type Store struct {
	exec     *core.Executor
	cache    *cache.Cache
	logger   logger.Logger
	appKey   string
	fallback bool
}

// Option is a functional option for configuring Store.
type Option func(*Store)

// WithCache enables caching of reads.
func WithCache(c *cache.Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithApplicationKey sets the default tenant key of every read.
func WithApplicationKey(key string) Option {
	return func(s *Store) {
		s.appKey = key
	}
}

// WithFallbackOnUnavailable reads storage when the cache cannot be reached,
// logging a warning instead of failing.
func WithFallbackOnUnavailable(enabled bool) Option {
	return func(s *Store) {
		s.fallback = enabled
	}
}

// New creates a Store over exec.
func New(exec *core.Executor, opts ...Option) (*Store, error) {
	if exec == nil {
		return nil, ErrMissingExecutor
	}
	s := &Store{
		exec:   exec,
		logger: &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetStory returns the story with id and its chapter headlines ordered by SortNumber.
// An unknown or invisible story yields an empty StoryView.
func (s *Store) GetStory(ctx context.Context, id string, opts ReadOptions) (StoryView, error) {
	if err := expectKind(id, schema.Story); err != nil {
		return StoryView{}, err
	}

	var view StoryView
	if hit, err := s.fromCache(ctx, id, opts, &view); err != nil || hit {
		return view, err
	}

	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:          schema.Story,
		Join:           &core.Join{Table: schema.Chapter, On: "Story.Id = Chapter.StoryId"},
		ID:             id,
		Cutoff:         opts.Cutoff,
		ApplicationKey: s.applicationKey(opts),
		JoinOrder:      &core.OrderBy{Field: "SortNumber", Direction: core.Asc},
	})
	if err != nil {
		return StoryView{}, err
	}
	view.Story, view.Chapters = splitJoined(rows, schema.Story, schema.Chapter)
	if len(rows) == 0 {
		return view, nil
	}
	return view, s.toCache(ctx, id, opts, view)
}

// ListStories returns every visible story ordered by SortNumber.
func (s *Store) ListStories(ctx context.Context, opts ReadOptions) ([]Record, error) {
	var stories []Record
	if hit, err := s.fromCache(ctx, cache.StoryListKey, opts, &stories); err != nil || hit {
		return stories, err
	}

	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:          schema.Story,
		Cutoff:         opts.Cutoff,
		ApplicationKey: s.applicationKey(opts),
		Order:          &core.OrderBy{Field: "SortNumber", Direction: core.Asc},
	})
	if err != nil {
		return nil, err
	}
	stories = records(rows)
	if len(stories) == 0 {
		return stories, nil
	}
	return stories, s.toCache(ctx, cache.StoryListKey, opts, stories)
}

// GetChapter returns the chapter with id and its paragraph headlines ordered by SortNumber.
func (s *Store) GetChapter(ctx context.Context, id string, opts ReadOptions) (ChapterView, error) {
	if err := expectKind(id, schema.Chapter); err != nil {
		return ChapterView{}, err
	}

	var view ChapterView
	if hit, err := s.fromCache(ctx, id, opts, &view); err != nil || hit {
		return view, err
	}

	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:          schema.Chapter,
		Join:           &core.Join{Table: schema.Paragraph, On: "Chapter.Id = Paragraph.ChapterId"},
		ID:             id,
		Cutoff:         opts.Cutoff,
		ApplicationKey: s.applicationKey(opts),
		JoinOrder:      &core.OrderBy{Field: "SortNumber", Direction: core.Asc},
	})
	if err != nil {
		return ChapterView{}, err
	}
	view.Chapter, view.Paragraphs = splitJoined(rows, schema.Chapter, schema.Paragraph)
	if len(rows) == 0 {
		return view, nil
	}
	return view, s.toCache(ctx, id, opts, view)
}

// GetParagraph returns the paragraph with id, or an empty Record.
func (s *Store) GetParagraph(ctx context.Context, id string, opts ReadOptions) (Record, error) {
	if err := expectKind(id, schema.Paragraph); err != nil {
		return nil, err
	}

	var paragraph Record
	if hit, err := s.fromCache(ctx, id, opts, &paragraph); err != nil || hit {
		return paragraph, err
	}

	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:          schema.Paragraph,
		ID:             id,
		Cutoff:         opts.Cutoff,
		ApplicationKey: s.applicationKey(opts),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Record{}, nil
	}
	paragraph = Record(rows[0])
	return paragraph, s.toCache(ctx, id, opts, paragraph)
}

// GetMetadata returns the visible configuration rows ordered by Name.
func (s *Store) GetMetadata(ctx context.Context, opts ReadOptions) ([]Record, error) {
	var metadata []Record
	if hit, err := s.fromCache(ctx, cache.MetadataKey, opts, &metadata); err != nil || hit {
		return metadata, err
	}

	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:          schema.Configuration,
		Cutoff:         opts.Cutoff,
		ApplicationKey: s.applicationKey(opts),
		Order:          &core.OrderBy{Field: "Name", Direction: core.Asc},
	})
	if err != nil {
		return nil, err
	}
	metadata = records(rows)
	if len(metadata) == 0 {
		return metadata, nil
	}
	return metadata, s.toCache(ctx, cache.MetadataKey, opts, metadata)
}

// GetIdentity returns the identity with id, or an empty Record. Identities are never cached
// and carry neither publish dates nor tenant lists.
func (s *Store) GetIdentity(ctx context.Context, id string) (Record, error) {
	if err := expectKind(id, schema.Identity); err != nil {
		return nil, err
	}
	rows, err := s.exec.Select(ctx, core.SelectSpec{
		Table:  schema.Identity,
		ID:     id,
		Cutoff: core.NoPublishFilter(),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Record{}, nil
	}
	return Record(rows[0]), nil
}

// Create inserts a record of kind and returns its RETURNING row. A missing Id is
// generated from the kind's id prefix.
//
// Cache entries that embed the record are invalidated after the insert. If that
// fails the insert has still been applied and the error wraps cache.ErrUnavailable.
func (s *Store) Create(ctx context.Context, kind string, values core.Values) (Record, error) {
	table, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	id, ok := values.Get("Id")
	if !ok || id == nil || id == "" {
		id = schema.NewID(table)
		values = append(core.Values{{Column: "Id", Value: id}}, withoutColumn(values, "Id")...)
	}

	row, err := s.exec.Insert(ctx, table.Name, values)
	if err != nil {
		return nil, err
	}
	return Record(row), s.invalidate(ctx, table, fmt.Sprint(id), Record(valuesMap(values)))
}

// Update writes values to the record named by their id and returns the RETURNING
// row, empty when no record matched. Invalidation follows Create. For chapters and
// paragraphs the stored parent id is read first, so the parent view is invalidated
// even when values omit it or move the record to another parent.
func (s *Store) Update(ctx context.Context, kind string, values core.Values) (Record, error) {
	table, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if _, err := core.BuildUpdate(table.Name, values); err != nil {
		return nil, err
	}
	v, _ := values.Get("id")
	id := fmt.Sprint(v)

	current, err := s.storedParent(ctx, table, id)
	if err != nil {
		return nil, err
	}
	row, err := s.exec.Update(ctx, table.Name, values)
	if err != nil {
		return nil, err
	}
	return Record(row), s.invalidate(ctx, table, id, Record(valuesMap(values)), current)
}

// Delete removes the record with id and returns the deleted rows. Invalidation follows Create.
func (s *Store) Delete(ctx context.Context, kind, id string) ([]Record, error) {
	table, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.Delete(ctx, table.Name, id)
	if err != nil {
		return nil, err
	}
	deleted := records(rows)

	var parent Record
	if len(deleted) > 0 {
		parent = deleted[0]
	}
	return deleted, s.invalidate(ctx, table, id, parent)
}

// MarkAuthCodeUsed records code as used for AuthCodeTTL.
func (s *Store) MarkAuthCodeUsed(ctx context.Context, code string) error {
	if s.cache == nil {
		return ErrCacheDisabled
	}
	return s.cache.Set(ctx, authCodeKey(code), true)
}

// IsAuthCodeUsed reports whether code was marked used within AuthCodeTTL.
// Cache failures are always returned, regardless of the fallback setting.
func (s *Store) IsAuthCodeUsed(ctx context.Context, code string) (bool, error) {
	if s.cache == nil {
		return false, ErrCacheDisabled
	}
	var used bool
	res, err := s.cache.Get(ctx, authCodeKey(code), &used)
	if err != nil {
		return false, err
	}
	return res == cache.Hit && used, nil
}

func authCodeKey(code string) string {
	if strings.HasPrefix(code, cache.AuthCodePrefix) {
		return code
	}
	return cache.AuthCodePrefix + "-" + code
}

func (s *Store) applicationKey(opts ReadOptions) string {
	if opts.ApplicationKey != "" {
		return opts.ApplicationKey
	}
	return s.appKey
}

func (s *Store) cacheable(opts ReadOptions) bool {
	return s.cache != nil &&
		!opts.SkipCache &&
		opts.Cutoff.IsDefault() &&
		(opts.ApplicationKey == "" || opts.ApplicationKey == s.appKey)
}

// fromCache decodes the cached value of lookup into dest when opts allow caching.
func (s *Store) fromCache(ctx context.Context, lookup string, opts ReadOptions, dest any) (bool, error) {
	if !s.cacheable(opts) {
		return false, nil
	}
	res, err := s.cache.Get(ctx, lookup, dest)
	if err != nil {
		return false, s.cacheFailure("read", lookup, err)
	}
	return res == cache.Hit, nil
}

func (s *Store) toCache(ctx context.Context, lookup string, opts ReadOptions, value any) error {
	if !s.cacheable(opts) {
		return nil
	}
	if err := s.cache.Set(ctx, lookup, value); err != nil {
		return s.cacheFailure("write", lookup, err)
	}
	return nil
}

// invalidate drops the cache entries that embed a record of table: its own entry,
// the story list for stories, the metadata for configuration rows, and the parent
// views for chapters and paragraphs. rows supply the parent ids when known.
func (s *Store) invalidate(ctx context.Context, table schema.Table, id string, rows ...Record) error {
	if s.cache == nil {
		return nil
	}

	var lookups []string
	switch table.Name {
	case schema.Story.Name:
		lookups = append(lookups, id, cache.StoryListKey)
	case schema.Chapter.Name, schema.Paragraph.Name:
		lookups = append(lookups, id)
		col := parentColumn(table)
		for _, row := range rows {
			if parent, ok := row.Get(col).(string); ok && parent != "" && !slices.Contains(lookups, parent) {
				lookups = append(lookups, parent)
			}
		}
	case schema.Configuration.Name:
		lookups = append(lookups, cache.MetadataKey)
	}

	for _, lookup := range lookups {
		err := s.cache.Del(ctx, lookup)
		if errors.Is(err, cache.ErrUnknownCacheKey) {
			// Ids outside the cached id spaces have no entry.
			continue
		}
		if err != nil {
			if ferr := s.cacheFailure("invalidate", lookup, err); ferr != nil {
				return fmt.Errorf("invalidate %s: %w", lookup, ferr)
			}
		}
	}
	return nil
}

// storedParent reads the parent id column of a stored chapter or paragraph.
// It returns nil when table has no parent view, no cache is configured or no record matches.
func (s *Store) storedParent(ctx context.Context, table schema.Table, id string) (Record, error) {
	col := parentColumn(table)
	if s.cache == nil || col == "" {
		return nil, nil
	}
	rows, err := s.exec.Select(ctx, core.SelectSpec{
		RawTable:  table.Name,
		RawFields: []string{"Id", col},
		ID:        id,
		Cutoff:    core.NoPublishFilter(),
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return Record(rows[0]), nil
}

// parentColumn names the column holding the id of the view that embeds table.
func parentColumn(table schema.Table) string {
	switch table.Name {
	case schema.Chapter.Name:
		return "StoryId"
	case schema.Paragraph.Name:
		return "ChapterId"
	}
	return ""
}

// cacheFailure returns err, or nil after a warning when the store falls back on an unavailable cache.
func (s *Store) cacheFailure(op, lookup string, err error) error {
	if s.fallback && errors.Is(err, cache.ErrUnavailable) {
		s.logger.Warn("cache unavailable, continuing without it",
			"operation", op,
			"lookup", lookup,
			"error", err,
		)
		return nil
	}
	return err
}

// expectKind checks that id carries the id prefix of table.
func expectKind(id string, table schema.Table) error {
	found, err := schema.ByID(id)
	if err != nil {
		return err
	}
	if found.Name != table.Name {
		return fmt.Errorf("%w: %q is a %s id, not %s", ErrWrongKind, id, found.Name, table.Name)
	}
	return nil
}

// splitJoined separates joined rows into the left record (from the first row)
// and the right headlines. Rows without a right-hand id come from a LEFT JOIN
// with no match and contribute no headline.
func splitJoined(rows []core.Row, left, right schema.Table) (Record, []Record) {
	parent := Record{}
	children := []Record{}
	leftPrefix := left.Alias() + "_"
	rightPrefix := right.Alias() + "_"

	for i, row := range rows {
		child := Record{}
		for col, v := range row {
			lower := strings.ToLower(col)
			switch {
			case strings.HasPrefix(lower, leftPrefix):
				if i == 0 {
					parent[col[len(leftPrefix):]] = v
				}
			case strings.HasPrefix(lower, rightPrefix):
				child[col[len(rightPrefix):]] = v
			}
		}
		if child.Get("Id") != nil {
			children = append(children, child)
		}
	}
	return parent, children
}

func records(rows []core.Row) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record(row)
	}
	return out
}

func valuesMap(values core.Values) map[string]any {
	m := make(map[string]any, len(values))
	for _, a := range values {
		m[a.Column] = a.Value
	}
	return m
}

func withoutColumn(values core.Values, column string) core.Values {
	out := make(core.Values, 0, len(values))
	for _, a := range values {
		if !strings.EqualFold(a.Column, column) {
			out = append(out, a)
		}
	}
	return out
}
