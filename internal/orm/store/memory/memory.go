// Package memory provides an in-process document store. Collections are created
// on first use; it is the default backend and the one used by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
)

// Store is an in-memory document store safe for concurrent use
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	spec store.CollectionSpec
	docs []store.Document
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection if needed and records its unique fields
func (s *Store) EnsureCollection(ctx context.Context, spec store.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(spec.Name)
	c.spec = spec
	return nil
}

// Find returns clones of every matching document
func (s *Store) Find(ctx context.Context, q *query.Query) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var docs []store.Document
	if c, ok := s.collections[q.Collection()]; ok {
		matched := query.Apply(c.docs, q)
		docs = make([]store.Document, len(matched))
		for i, doc := range matched {
			docs[i] = doc.Clone()
		}
	}
	s.mu.RUnlock()

	if docs == nil {
		docs = []store.Document{}
	}
	if err := store.Populate(ctx, s, docs, q.Populations()); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns the first matching document
func (s *Store) FindOne(ctx context.Context, q *query.Query) (store.Document, error) {
	return store.FindOne(ctx, s, q)
}

// Insert stores a new document
func (s *Store) Insert(ctx context.Context, name string, doc store.Document) error {
	if doc.ID() == nil {
		return fmt.Errorf("insert into %s: document has no %s", name, schema.PrimaryKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(name)
	if err := c.checkUnique(doc, -1); err != nil {
		return err
	}
	c.docs = append(c.docs, doc.Clone())
	return nil
}

// Save replaces the stored document with the same primary key
func (s *Store) Save(ctx context.Context, name string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return store.ErrNotFound
	}
	idx := c.indexOf(doc.ID())
	if idx < 0 {
		return store.ErrNotFound
	}
	if err := c.checkUnique(doc, idx); err != nil {
		return err
	}
	c.docs[idx] = doc.Clone()
	return nil
}

// Remove deletes the document with the given primary key
func (s *Store) Remove(ctx context.Context, name string, id interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return store.ErrNotFound
	}
	idx := c.indexOf(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	return nil
}

// Len returns the number of documents in a collection
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[name]; ok {
		return len(c.docs)
	}
	return 0
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}

func (s *Store) collectionLocked(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{spec: store.CollectionSpec{Name: name}}
		s.collections[name] = c
	}
	return c
}

func (c *collection) indexOf(id interface{}) int {
	for i, doc := range c.docs {
		if query.Equal(doc.ID(), id) {
			return i
		}
	}
	return -1
}

// checkUnique verifies the primary key and unique fields against every document
// except the one at position self
func (c *collection) checkUnique(doc store.Document, self int) error {
	fields := append([]string{schema.PrimaryKey}, c.spec.Unique...)
	for i, existing := range c.docs {
		if i == self {
			continue
		}
		for _, field := range fields {
			v, ok := doc[field]
			if !ok || v == nil {
				continue
			}
			if query.Equal(existing[field], v) {
				return fmt.Errorf("%w: %s.%s %q", store.ErrDuplicate, c.spec.Name, field, store.KeyOf(v))
			}
		}
	}
	return nil
}
