package query

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc = map[string]interface{}

func testUsers() []doc {
	return []doc{
		{"_id": "1", "name": "Bob", "hobby": "Soccer", "age": 30},
		{"_id": "2", "name": "Tim", "age": 22.0},
		{"_id": "3", "name": "Frank", "hobby": "Chess", "age": int64(41)},
		{"_id": "4", "name": "Freddie", "hobby": "Golf", "age": 35},
		{"_id": "5", "name": "Asdf", "hobby": nil, "tags": []interface{}{"a", "b"}},
	}
}

func names(docs []doc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d["name"].(string)
	}
	return out
}

func TestSortSet(t *testing.T) {
	var s Sort
	s = s.Set("name", Ascending)
	s = s.Set("hobby", Descending)
	s = s.Set("name", Descending)

	assert.Equal(t, []string{"name", "hobby"}, s.Fields())
	dir, ok := s.Direction("name")
	require.True(t, ok)
	assert.Equal(t, Descending, dir)
	assert.Equal(t, "-name,-hobby", s.String())

	_, ok = s.Direction("age")
	assert.False(t, ok)
}

func TestQueryBuilderChaining(t *testing.T) {
	q := New("users").
		WhereEq("name", "Bob").
		WhereNotNull("hobby").
		OrderBy("name", Descending).
		Skip(1).
		Limit(2).
		Populate("contacts", "users").
		Populate("contacts", "users")

	assert.Equal(t, "users", q.Collection())
	assert.Len(t, q.Conditions(), 2)
	assert.Len(t, q.Populations(), 1, "duplicate populations are collapsed")

	limit, ok := q.LimitValue()
	require.True(t, ok)
	assert.Equal(t, 2, limit)
	skip, ok := q.SkipValue()
	require.True(t, ok)
	assert.Equal(t, 1, skip)

	assert.Equal(t,
		"FIND users WHERE name = Bob AND hobby IS NOT NULL SORT -name SKIP 1 LIMIT 2 POPULATE contacts FROM users",
		q.String())
}

func TestApplyEquality(t *testing.T) {
	got := Apply(testUsers(), New("users").WhereEq("name", "Bob"))
	assert.Equal(t, []string{"Bob"}, names(got))
}

func TestApplyNullEqualityMatchesMissingAndNull(t *testing.T) {
	got := Apply(testUsers(), New("users").WhereEq("hobby", nil))
	assert.Equal(t, []string{"Tim", "Asdf"}, names(got))

	got = Apply(testUsers(), New("users").WhereNe("hobby", nil))
	assert.Equal(t, []string{"Bob", "Frank", "Freddie"}, names(got))
}

func TestApplyNumericComparisonAcrossKinds(t *testing.T) {
	got := Apply(testUsers(), New("users").WhereGte("age", 30.0).WhereLt("age", 41))
	assert.Equal(t, []string{"Bob", "Freddie"}, names(got))

	got = Apply(testUsers(), New("users").WhereEq("age", 41.0))
	assert.Equal(t, []string{"Frank"}, names(got))
}

func TestApplyRegexAndChainedFilters(t *testing.T) {
	q := New("users").
		WhereRegex("name", regexp.MustCompile(`^[a-zA-Z]{3}$`)).
		WhereNe("hobby", nil)
	assert.Equal(t, []string{"Bob"}, names(Apply(testUsers(), q)))
}

func TestApplyInAndArrayMembership(t *testing.T) {
	got := Apply(testUsers(), New("users").WhereIn("name", "Tim", "Frank"))
	assert.Equal(t, []string{"Tim", "Frank"}, names(got))

	got = Apply(testUsers(), New("users").WhereNotIn("name", "Tim", "Frank"))
	assert.Equal(t, []string{"Bob", "Freddie", "Asdf"}, names(got))

	got = Apply(testUsers(), New("users").WhereEq("tags", "b"))
	assert.Equal(t, []string{"Asdf"}, names(got))
}

func TestApplySortDescending(t *testing.T) {
	got := Apply(testUsers(), New("users").OrderBy("name", Descending))
	assert.Equal(t, []string{"Tim", "Freddie", "Frank", "Bob", "Asdf"}, names(got))
}

func TestApplySortPlacesNullsFirst(t *testing.T) {
	got := Apply(testUsers(), New("users").OrderBy("hobby", Ascending).OrderBy("name", Ascending))
	assert.Equal(t, []string{"Asdf", "Tim", "Frank", "Freddie", "Bob"}, names(got))
}

func TestApplySkipAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		q        *Query
		expected int
	}{
		{"limit below size", New("users").Limit(4), 4},
		{"limit above size", New("users").Limit(6), 5},
		{"limit equal size", New("users").Limit(5), 5},
		{"zero limit is unlimited", New("users").Limit(0), 5},
		{"skip", New("users").Skip(2), 3},
		{"skip past end", New("users").Skip(10), 0},
		{"skip and limit", New("users").Skip(1).Limit(2), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Apply(testUsers(), tt.q), tt.expected)
		})
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	users := testUsers()
	Apply(users, New("users").OrderBy("name", Descending).Limit(2))
	assert.Equal(t, "Bob", users[0]["name"])
	assert.Len(t, users, 5)
}

func TestLookupDottedPath(t *testing.T) {
	d := doc{"address": map[string]interface{}{"city": "Oslo"}}
	v, ok := Lookup(d, "address.city")
	require.True(t, ok)
	assert.Equal(t, "Oslo", v)

	_, ok = Lookup(d, "address.zip")
	assert.False(t, ok)

	got := Apply([]doc{d}, New("places").WhereEq("address.city", "Oslo"))
	assert.Len(t, got, 1)
}

func TestCompare(t *testing.T) {
	cmp, ok := Compare(1, 2.5)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = Compare("b", "a")
	require.True(t, ok)
	assert.Equal(t, 1, cmp)

	cmp, ok = Compare(false, true)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	_, ok = Compare("a", 1)
	assert.False(t, ok)
}
