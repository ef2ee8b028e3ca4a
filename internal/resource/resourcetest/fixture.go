// Package resourcetest seeds the users/comments dataset shared by resource and
// router tests.
package resourcetest

import (
	"context"
	"testing"

	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/orm/store/memory"
	"github.com/conduit-lang/restifier/internal/resource"
	"github.com/stretchr/testify/require"
)

// Seeded user ids
const (
	BobID     = "u-bob"
	TimID     = "u-tim"
	FrankID   = "u-frank"
	FreddieID = "u-freddie"
	AsdfID    = "u-asdf"
)

// UserNames lists the seeded users in insertion order
var UserNames = []string{"Bob", "Tim", "Frank", "Freddie", "Asdf"}

// Fixture holds the users resource and its comments sub-resource
type Fixture struct {
	Store    *memory.Store
	Registry *resource.Registry
	Users    *resource.Model
	Comments *resource.Model
}

// UserSchema declares name, hobby, a restricted password, contacts, profile and enable
func UserSchema() *schema.Schema {
	return schema.New("User",
		schema.String("name", schema.Unique()),
		schema.String("hobby"),
		schema.String("password", schema.Restricted()),
		schema.RefMany("contacts", "users"),
		schema.Ref("profile", "users"),
		schema.Bool("enable"),
	)
}

// CommentSchema declares comments identified by their unique reaction
func CommentSchema() *schema.Schema {
	return schema.New("Comment",
		schema.String("content"),
		schema.String("reaction", schema.ID()),
		schema.Ref("author", "users"),
	)
}

// New builds unregistered models so tests can configure hooks before Start.
// Comments are served under users at /users/:id/comments.
func New(t testing.TB) *Fixture {
	t.Helper()
	f := &Fixture{
		Store:    memory.New(),
		Users:    resource.New(UserSchema()),
		Comments: resource.New(CommentSchema()),
	}
	require.NoError(t, f.Users.Submodel("comments", f.Comments, "author"))
	return f
}

// Start registers the models and seeds the dataset
func (f *Fixture) Start(t testing.TB, opts ...resource.RegistryOption) *Fixture {
	t.Helper()
	ctx := context.Background()

	f.Registry = resource.NewRegistry(f.Store, opts...)
	require.NoError(t, f.Registry.Register(ctx, f.Users))
	require.NoError(t, f.Registry.Validate())

	for _, doc := range Users() {
		require.NoError(t, f.Store.Insert(ctx, "users", doc))
	}
	for _, doc := range Comments() {
		require.NoError(t, f.Store.Insert(ctx, "comments", doc))
	}
	return f
}

// Users returns the seeded user documents. Tim has no hobby.
func Users() []store.Document {
	return []store.Document{
		{
			"_id": BobID, "name": "Bob", "hobby": "Soccer", "password": "hunter2",
			"contacts": []interface{}{TimID, FrankID, FreddieID, AsdfID},
			"profile":  BobID, "enable": true,
		},
		{"_id": TimID, "name": "Tim", "password": "tim", "contacts": []interface{}{BobID}, "enable": false},
		{"_id": FrankID, "name": "Frank", "hobby": "Chess", "password": "frank", "contacts": []interface{}{}, "enable": true},
		{"_id": FreddieID, "name": "Freddie", "hobby": "Golf", "password": "freddie", "enable": false},
		{"_id": AsdfID, "name": "Asdf", "hobby": "Tennis", "password": "asdf", "enable": true},
	}
}

// Comments returns the seeded comments. Bob wrote three and Tim one.
func Comments() []store.Document {
	return []store.Document{
		{"_id": "c-1", "content": "Lol", "reaction": "BobL", "author": BobID},
		{"_id": "c-2", "content": "Wow", "reaction": "BobW", "author": BobID},
		{"_id": "c-3", "content": "Hmm", "reaction": "BobH", "author": BobID},
		{"_id": "c-4", "content": "Lol", "reaction": "TimL", "author": TimID},
	}
}

// Names extracts the name of every document
func Names(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d["name"].(string)
	}
	return out
}
