package toolname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dotsToUnderscores(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}

func TestNewMappingIdentityWhenNoNormalization(t *testing.T) {
	m, err := NewMapping([]string{"search.web", "fs.read_file"}, nil, nil)
	require.NoError(t, err)

	got, ok := m.ToProvider("search.web")
	require.True(t, ok)
	assert.Equal(t, "search.web", got)
}

func TestNewMappingAssignsCollisionSuffixes(t *testing.T) {
	// Two distinct canonical tool names that normalize to the same
	// provider-visible string must still resolve to distinct,
	// round-trippable provider names.
	m, err := NewMapping([]string{"search.web", "search_web"}, dotsToUnderscores, nil)
	require.NoError(t, err)

	a, ok := m.ToProvider("search.web")
	require.True(t, ok)
	b, ok := m.ToProvider("search_web")
	require.True(t, ok)

	assert.NotEqual(t, a, b)
	assert.Equal(t, "search_web__1", a)
	assert.Equal(t, "search_web", b)

	canonA, ok := m.ToCanonical(a)
	require.True(t, ok)
	assert.Equal(t, "search.web", canonA)

	canonB, ok := m.ToCanonical(b)
	require.True(t, ok)
	assert.Equal(t, "search_web", canonB)
}

func TestNewMappingSuffixesOnlyNamesWhoseNormalizedFormCollides(t *testing.T) {
	m, err := NewMapping([]string{"a.run", "a_run", "a..run"}, dotsToUnderscores, nil)
	require.NoError(t, err)

	a, _ := m.ToProvider("a.run")
	b, _ := m.ToProvider("a_run")
	c, _ := m.ToProvider("a..run")

	assert.Equal(t, "a_run__1", a)
	assert.Equal(t, "a_run", b)
	assert.Equal(t, "a__run", c)
}

func TestNewMappingExactDuplicateCanonicalNamesCollapse(t *testing.T) {
	m, err := NewMapping([]string{"get_time", "get_time"}, nil, nil)
	require.NoError(t, err)

	names := m.Names()
	require.Len(t, names, 1)
}

func TestNewMappingRejectsEmptyName(t *testing.T) {
	_, err := NewMapping([]string{""}, nil, nil)
	require.Error(t, err)
}

func TestNewMappingScenarioS6ToolNameCollision(t *testing.T) {
	// Scenario S6: function tools named ["web_search", "web_search__1"]
	// combined with a provider-native "web_search" tool. The first is
	// rewritten to "web_search__2", skipping both the provider-reserved
	// name and the already-present user-declared "web_search__1"; the
	// mapping is independent of iteration order.
	reserved := map[string]string{"anthropic.web_search_20250305": "web_search"}

	m, err := NewMapping([]string{"web_search", "web_search__1"}, nil, reserved)
	require.NoError(t, err)

	a, ok := m.ToProvider("web_search")
	require.True(t, ok)
	b, ok := m.ToProvider("web_search__1")
	require.True(t, ok)

	assert.Equal(t, "web_search__2", a)
	assert.Equal(t, "web_search__1", b)

	canonA, ok := m.ToCanonical(a)
	require.True(t, ok)
	assert.Equal(t, "web_search", canonA)

	canonB, ok := m.ToCanonical(b)
	require.True(t, ok)
	assert.Equal(t, "web_search__1", canonB)

	name, ok := m.ProviderToolName("anthropic.web_search_20250305")
	require.True(t, ok)
	assert.Equal(t, "web_search", name)
}

func TestNewMappingOrderIndependentAgainstS6Fixture(t *testing.T) {
	reserved := map[string]string{"anthropic.web_search_20250305": "web_search"}

	m, err := NewMapping([]string{"web_search__1", "web_search"}, nil, reserved)
	require.NoError(t, err)

	a, _ := m.ToProvider("web_search")
	b, _ := m.ToProvider("web_search__1")
	assert.Equal(t, "web_search__2", a)
	assert.Equal(t, "web_search__1", b)
}

func TestSanitizeReplacesDisallowedRunes(t *testing.T) {
	got := Sanitize("search.web-news", 64)
	assert.Equal(t, "search_web-news", got)
}

func TestSanitizeTruncatesWithHashSuffixWhenTooLong(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := Sanitize(long, 64)
	require.Len(t, got, 64)
	assert.True(t, IsSafe(got, 64))

	// Sanitizing the same input twice is deterministic.
	again := Sanitize(long, 64)
	assert.Equal(t, got, again)
}

func TestSanitizeDistinctLongInputsStayDistinct(t *testing.T) {
	a := Sanitize(strings.Repeat("a", 100), 64)
	b := Sanitize(strings.Repeat("a", 99)+"b", 64)
	assert.NotEqual(t, a, b)
}

func TestIsSafeRejectsDisallowedRunes(t *testing.T) {
	assert.False(t, IsSafe("search.web", 64))
	assert.True(t, IsSafe("search_web", 64))
	assert.False(t, IsSafe("", 64))
	assert.False(t, IsSafe(strings.Repeat("a", 65), 64))
}
