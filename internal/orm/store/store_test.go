package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDBError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		duplicate bool
		notFound  bool
	}{
		{"nil", nil, false, false},
		{"no rows", sql.ErrNoRows, false, true},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), false, true},
		{"pgx unique", &pgconn.PgError{Code: "23505", Detail: "Key (name)=(Bob) already exists."}, true, false},
		{"pgx other", &pgconn.PgError{Code: "23503"}, false, false},
		{"pq unique", &pq.Error{Code: "23505"}, true, false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true, false},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true, false},
		{"other", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertDBError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.duplicate, IsDuplicate(got))
			assert.Equal(t, tt.notFound, IsNotFound(got))
		})
	}
}

func TestDocumentClone(t *testing.T) {
	doc := Document{
		"_id":    "1",
		"nested": map[string]interface{}{"a": 1},
		"list":   []interface{}{map[string]interface{}{"b": 2}},
		"names":  []string{"x"},
	}
	clone := doc.Clone()
	clone["nested"].(map[string]interface{})["a"] = 99
	clone["list"].([]interface{})[0].(map[string]interface{})["b"] = 99
	clone["names"].([]string)[0] = "y"

	assert.Equal(t, 1, doc["nested"].(map[string]interface{})["a"])
	assert.Equal(t, 2, doc["list"].([]interface{})[0].(map[string]interface{})["b"])
	assert.Equal(t, "x", doc["names"].([]string)[0])
	assert.Equal(t, "1", clone.ID())
	assert.Nil(t, Document(nil).Clone())
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(Document{"_id": "1", "age": 3})
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "1", doc.ID())
	assert.Equal(t, 3.0, doc["age"])

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, "", KeyOf(nil))
	assert.Equal(t, "abc", KeyOf("abc"))
	assert.Equal(t, "42", KeyOf(42))
	assert.Equal(t, "42", KeyOf(42.0))
	assert.Equal(t, "true", KeyOf(true))
}

func TestPrimaryKeyLookup(t *testing.T) {
	id, ok := PrimaryKeyLookup(query.New("users").WhereEq("name", "Bob").WhereEq("_id", "u1"))
	require.True(t, ok)
	assert.Equal(t, "u1", id)

	_, ok = PrimaryKeyLookup(query.New("users").WhereNe("_id", "u1"))
	assert.False(t, ok)

	_, ok = PrimaryKeyLookup(query.New("users").WhereEq("_id", nil))
	assert.False(t, ok)
}
