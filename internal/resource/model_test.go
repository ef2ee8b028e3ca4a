package resource

import (
	"context"
	"math"
	"net/http"
	"testing"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema() *schema.Schema {
	return schema.New("User",
		schema.String("name", schema.Unique()),
		schema.String("password", schema.Restricted()),
		schema.Ref("profile", "users"),
	)
}

func commentSchema() *schema.Schema {
	return schema.New("Comment",
		schema.String("content"),
		schema.String("reaction", schema.ID()),
		schema.Ref("author", "users"),
	)
}

func TestNewModelReadsFieldOptions(t *testing.T) {
	users := New(userSchema())
	assert.Equal(t, "User", users.Name())
	assert.Equal(t, "users", users.Collection())
	assert.Equal(t, schema.PrimaryKey, users.Identifier())
	assert.True(t, users.IsRestricted("password"))
	assert.False(t, users.IsRestricted("name"))
	assert.Len(t, users.Transformers(), builtinTransformers)

	comments := New(commentSchema())
	assert.Equal(t, "reaction", comments.Identifier())
}

func TestSetIdentifierRequiresDeclaredField(t *testing.T) {
	m := New(userSchema())
	m.SetIdentifier("name")
	assert.Equal(t, "name", m.Identifier())

	assert.Panics(t, func() { m.SetIdentifier("dne") })
}

func TestRestrict(t *testing.T) {
	m := New(userSchema()).Restrict("profile", "name")
	assert.Equal(t, []string{"name", "password", "profile"}, m.Restricted())
}

func TestFiltersAreKeyedByName(t *testing.T) {
	noop := func(context.Context, *Request, *query.Query, ...string) error { return nil }
	m := New(userSchema()).
		Filter("winners", noop).
		Filter("threeletters", noop).
		Filter("winners", noop)
	assert.Equal(t, []string{"threeletters", "winners"}, m.Filters())
}

func TestTransformAppendsAfterBuiltins(t *testing.T) {
	m := New(userSchema()).
		Transform(func(context.Context, *Request, store.Document) error { return nil }).
		TransformPopulation("profile", func(context.Context, *Request, store.Document) error { return nil })
	assert.Len(t, m.Transformers(), builtinTransformers+2)
}

func header(name string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Order", name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestUseRoutesMiddleware(t *testing.T) {
	m := New(userSchema())
	m.Use(RouteQuery, header("query"))
	m.Use(RouteAll, header("all"))

	assert.Len(t, m.Middleware(RouteQuery), 2)
	assert.Len(t, m.Middleware(RouteAll), 1)
	assert.Len(t, m.Middleware(RouteDestroy), 1)

	assert.Panics(t, func() { m.Use("patch", header("x")) })
}

func TestLimitRegistersModifier(t *testing.T) {
	m := New(userSchema()).Limit(4)
	assert.Equal(t, 4, m.MaxLimit())

	tests := []struct {
		name     string
		supplied interface{}
		present  bool
		expected interface{}
	}{
		{"absent", nil, false, 4},
		{"below", "2", true, 2},
		{"above", "6", true, 4},
		{"zero", "0", true, 4},
		{"not a number", "NaN", true, 4},
		{"garbage", "abc", true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]interface{}{}
			if tt.present {
				params["limit"] = tt.supplied
			}
			require.NoError(t, m.modifiers.Apply(context.Background(), &Request{Model: m}, params))
			assert.Equal(t, tt.expected, params["limit"])
		})
	}
}

func TestSubmodelValidation(t *testing.T) {
	users := New(userSchema())
	comments := New(commentSchema())

	assert.Error(t, users.Submodel("", comments, "author"))
	assert.Error(t, users.Submodel("comments", comments, ""))
	assert.Error(t, users.Submodel("self", users, "profile"))
	assert.Error(t, users.Submodel("comments", comments, "dne"))

	require.NoError(t, users.Submodel("comments", comments, "author"))
	assert.Same(t, users, comments.Parent())
	assert.Equal(t, "author", comments.CorrespondsTo())
	require.Len(t, users.Submodels(), 1)
	assert.Equal(t, "comments", users.Submodels()[0].Path)

	other := New(commentSchema().WithCollection("notes"))
	assert.Error(t, users.Submodel("comments", other, "author"), "duplicate path")
	assert.Error(t, users.Submodel("again", comments, "author"), "child already nested")

	nested := New(commentSchema().WithCollection("replies"))
	err := comments.Submodel("replies", nested, "author")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot hold sub-resources")

	parent := New(userSchema().WithCollection("admins"))
	assert.Error(t, parent.Submodel("users", users, "profile"), "a resource holding sub-resources cannot be nested")
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		n       int
		present bool
		message string
	}{
		{"absent", nil, 0, false, ""},
		{"string", "4", 4, true, ""},
		{"padded", " 3 ", 3, true, ""},
		{"int", 2, 2, true, ""},
		{"float", 2.9, 2, true, ""},
		{"nan", "NaN", 0, false, "Limit must be a number."},
		{"word", "four", 0, false, "Limit must be a number."},
		{"infinite", "Inf", 0, false, "Limit must be a number."},
		{"negative", "-1", 0, false, "Limit must not be negative."},
		{"bool", true, 0, false, "Limit must be a number."},
		{"beyond int range", "1e20", math.MaxInt, true, ""},
		{"huge float", 1e300, math.MaxInt, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, present, err := parseCount("Limit", tt.value)
			if tt.message != "" {
				require.Error(t, err)
				assert.Equal(t, tt.message, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.present, present)
		})
	}
}
