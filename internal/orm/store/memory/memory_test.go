package memory

import (
	"context"
	"testing"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureCollection(ctx, store.CollectionSpec{Name: "users", Unique: []string{"name"}}))

	for _, doc := range []store.Document{
		{"_id": "u1", "name": "Bob", "contacts": []interface{}{"u2", "u3"}},
		{"_id": "u2", "name": "Tim"},
		{"_id": "u3", "name": "Frank", "best": "u1"},
	} {
		require.NoError(t, s.Insert(ctx, "users", doc))
	}
	return s
}

func TestInsertAndFind(t *testing.T) {
	s := setupStore(t)
	docs, err := s.Find(context.Background(), query.New("users").WhereEq("name", "Tim"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u2", docs[0].ID())
	assert.Equal(t, 3, s.Len("users"))
}

func TestFindUnknownCollectionIsEmpty(t *testing.T) {
	s := New()
	docs, err := s.Find(context.Background(), query.New("ghosts"))
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestInsertDuplicate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, "users", store.Document{"_id": "u9", "name": "Bob"})
	require.Error(t, err)
	assert.True(t, store.IsDuplicate(err))
	assert.Contains(t, err.Error(), "users.name")

	err = s.Insert(ctx, "users", store.Document{"_id": "u1", "name": "Other"})
	assert.True(t, store.IsDuplicate(err))

	err = s.Insert(ctx, "users", store.Document{"name": "NoID"})
	assert.Error(t, err)
}

func TestFindOne(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc, err := s.FindOne(ctx, query.New("users").WhereEq("name", "Frank"))
	require.NoError(t, err)
	assert.Equal(t, "u3", doc.ID())

	_, err = s.FindOne(ctx, query.New("users").WhereEq("name", "DNE"))
	assert.True(t, store.IsNotFound(err))
}

func TestFindReturnsClones(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	doc, err := s.FindOne(ctx, query.New("users").WhereEq("name", "Bob"))
	require.NoError(t, err)
	doc["name"] = "Mutated"
	doc["contacts"].([]interface{})[0] = "zzz"

	again, err := s.FindOne(ctx, query.New("users").WhereEq("_id", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", again["name"])
	assert.Equal(t, "u2", again["contacts"].([]interface{})[0])
}

func TestFindPopulates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	docs, err := s.Find(ctx, query.New("users").
		WhereEq("name", "Bob").
		Populate("contacts", "users"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	contacts, ok := docs[0]["contacts"].([]interface{})
	require.True(t, ok)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Tim", contacts[0].(map[string]interface{})["name"])
	assert.Equal(t, "Frank", contacts[1].(map[string]interface{})["name"])

	docs, err = s.Find(ctx, query.New("users").WhereEq("name", "Frank").Populate("best", "users"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", docs[0]["best"].(map[string]interface{})["name"])
}

func TestPopulateDanglingReferences(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "users", store.Document{
		"_id": "u4", "name": "Lost", "best": "gone", "contacts": []interface{}{"u1", "gone"},
	}))

	doc, err := s.FindOne(ctx, query.New("users").WhereEq("_id", "u4").
		Populate("best", "users").
		Populate("contacts", "users"))
	require.NoError(t, err)
	assert.Nil(t, doc["best"])
	assert.Len(t, doc["contacts"], 1)
}

func TestSave(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "users", store.Document{"_id": "u2", "name": "Timothy"}))
	doc, err := s.FindOne(ctx, query.New("users").WhereEq("_id", "u2"))
	require.NoError(t, err)
	assert.Equal(t, "Timothy", doc["name"])

	err = s.Save(ctx, "users", store.Document{"_id": "u2", "name": "Bob"})
	assert.True(t, store.IsDuplicate(err))

	err = s.Save(ctx, "users", store.Document{"_id": "nope", "name": "X"})
	assert.True(t, store.IsNotFound(err))
}

func TestRemove(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Remove(ctx, "users", "u1"))
	assert.Equal(t, 2, s.Len("users"))

	err := s.Remove(ctx, "users", "u1")
	assert.True(t, store.IsNotFound(err))
	err = s.Remove(ctx, "ghosts", "u1")
	assert.True(t, store.IsNotFound(err))
}

func TestFindHonoursCancelledContext(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, query.New("users"))
	assert.ErrorIs(t, err, context.Canceled)
}
