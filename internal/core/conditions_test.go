package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyTenant = "(Story.applicationIncluded LIKE '%'||?||'%' OR Story.applicationIncluded='*')" +
	" AND (Story.applicationExcluded IS NULL OR Story.applicationExcluded NOT LIKE '%'||?||'%')"

const chapterTenant = "(Chapter.applicationIncluded LIKE '%'||?||'%' OR Chapter.applicationIncluded='*')" +
	" AND (Chapter.applicationExcluded IS NULL OR Chapter.applicationExcluded NOT LIKE '%'||?||'%')"

func inline(t *testing.T, c Condition) string {
	t.Helper()
	out, err := Statement{text: c.SQL, args: c.Args}.Inline()
	require.NoError(t, err)
	return out
}

func TestTenantCondition_SingleTable(t *testing.T) {
	cond := TenantCondition("app1", "Story", "")

	assert.Equal(t, storyTenant, cond.SQL)
	assert.Equal(t, []any{"app1", "app1"}, cond.Args)
	assert.Equal(t,
		"(Story.applicationIncluded LIKE '%'||'app1'||'%' OR Story.applicationIncluded='*')"+
			" AND (Story.applicationExcluded IS NULL OR Story.applicationExcluded NOT LIKE '%'||'app1'||'%')",
		inline(t, cond))
}

func TestTenantCondition_Joined(t *testing.T) {
	cond := TenantCondition("app1", "Story", "Chapter")

	assert.Equal(t, "("+storyTenant+") AND ("+chapterTenant+")", cond.SQL)
	assert.Equal(t, []any{"app1", "app1", "app1", "app1"}, cond.Args)
}

func TestTenantCondition_NoKey(t *testing.T) {
	assert.True(t, TenantCondition("", "Story", "Chapter").IsEmpty())
}

func TestTenantCondition_SanitizesKeyWhenInlined(t *testing.T) {
	cond := TenantCondition("o'app", "Story", "")
	assert.Contains(t, inline(t, cond), "'%'||'o''app'||'%'")
}

func TestIDCondition(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		right    string
		expected string
	}{
		{name: "single table is unqualified", id: "000s1", expected: "id = ?"},
		{name: "joined is qualified with left table", id: "000s1", right: "Chapter", expected: "Story.id = ?"},
		{name: "empty id", id: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := IDCondition(tt.id, "Story", tt.right)
			assert.Equal(t, tt.expected, cond.SQL)
			if tt.expected != "" {
				assert.Equal(t, []any{tt.id}, cond.Args)
			}
		})
	}
}

func TestPublishDateCondition(t *testing.T) {
	date := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cutoff   PublishCutoff
		right    string
		expected string
	}{
		{name: "unset", cutoff: PublishCutoff{}, expected: "PublishDate <= NOW()"},
		{name: "now", cutoff: PublishedNow(), expected: "PublishDate <= NOW()"},
		{name: "now joined", cutoff: PublishedNow(), right: "Chapter",
			expected: "Story.PublishDate <= NOW() AND Chapter.PublishDate <= NOW()"},
		{name: "null", cutoff: NoPublishFilter(), expected: ""},
		{name: "null joined", cutoff: NoPublishFilter(), right: "Chapter", expected: ""},
		{name: "date", cutoff: PublishedBefore(date), expected: "PublishDate <= '2021-01-01 00:00:00'"},
		{name: "date joined", cutoff: PublishedBefore(date), right: "Chapter",
			expected: "Story.PublishDate <= '2021-01-01 00:00:00' AND Chapter.PublishDate <= '2021-01-01 00:00:00'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := PublishDateCondition(tt.cutoff, "Story", tt.right)
			if tt.expected == "" {
				assert.True(t, cond.IsEmpty())
				return
			}
			assert.Equal(t, tt.expected, inline(t, cond))
		})
	}
}

func TestPublishedBefore_NormalizesToUTCSeconds(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	cutoff := PublishedBefore(time.Date(2021, 6, 1, 12, 30, 45, 987654321, loc))

	assert.Equal(t, "2021-06-01 10:30:45", cutoff.String())
	assert.Equal(t, "PublishDate <= '2021-06-01 10:30:45'", inline(t, PublishDateCondition(cutoff, "Story", "")))
}

func TestParseCutoff(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: "now"},
		{input: "now", expected: "now"},
		{input: "NULL", expected: "none"},
		{input: "none", expected: "none"},
		{input: "2021-01-01", expected: "2021-01-01 00:00:00"},
		{input: "2021-01-01 08:09:10", expected: "2021-01-01 08:09:10"},
		{input: "2021-01-01T08:09:10", expected: "2021-01-01 08:09:10"},
		{input: "2021-01-01T08:09:10.123+01:00", expected: "2021-01-01 07:09:10"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cutoff, err := ParseCutoff(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cutoff.String())
		})
	}

	_, err := ParseCutoff("yesterday")
	assert.Error(t, err)
}

func TestPublishCutoff_IsDefault(t *testing.T) {
	assert.True(t, PublishCutoff{}.IsDefault())
	assert.True(t, PublishedNow().IsDefault())
	assert.False(t, NoPublishFilter().IsDefault())
	assert.False(t, PublishedBefore(time.Now()).IsDefault())
}
