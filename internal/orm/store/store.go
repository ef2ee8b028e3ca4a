// Package store defines the document store capability consumed by resources.
// Backends live in the memory, sqlstore and redisstore subpackages.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
)

// Document is a single materialized record
type Document map[string]interface{}

// ID returns the native primary key of the document
func (d Document) ID() interface{} {
	return d[schema.PrimaryKey]
}

// Clone returns a deep copy of the document. Stores hand out clones so request
// handling never mutates stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(deepCopyMap(d))
}

// CollectionSpec describes what a store must enforce for a collection
type CollectionSpec struct {
	Name string
	// Unique lists fields, besides the primary key, that must be unique
	Unique []string
}

// Store is the document store capability
type Store interface {
	// EnsureCollection prepares a collection and its unique constraints
	EnsureCollection(ctx context.Context, spec CollectionSpec) error
	// Find returns every document matching the query, populated as requested
	Find(ctx context.Context, q *query.Query) ([]Document, error)
	// FindOne returns the first matching document or ErrNotFound
	FindOne(ctx context.Context, q *query.Query) (Document, error)
	// Insert stores a new document; the primary key must be set
	Insert(ctx context.Context, collection string, doc Document) error
	// Save replaces an existing document by primary key
	Save(ctx context.Context, collection string, doc Document) error
	// Remove deletes a document by primary key
	Remove(ctx context.Context, collection string, id interface{}) error
	// Close releases backend resources
	Close() error
}

// FindOne is a helper for backends implementing FindOne on top of Find
func FindOne(ctx context.Context, s Store, q *query.Query) (Document, error) {
	docs, err := s.Find(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// PrimaryKeyLookup returns the id of a plain equality condition on the primary
// key, letting backends fetch a single record instead of scanning a collection
func PrimaryKeyLookup(q *query.Query) (interface{}, bool) {
	for _, cond := range q.Conditions() {
		if cond.Field != schema.PrimaryKey || cond.Operator != query.OpEqual {
			continue
		}
		switch cond.Value.(type) {
		case string, float64, int, int64:
			return cond.Value, true
		}
	}
	return nil, false
}

// Encode serializes a document for backends persisting JSON payloads
func Encode(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode deserializes a JSON payload into a document
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// KeyOf renders a field value as a string key for unique indexes and id lookups
func KeyOf(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case Document:
		return Document(deepCopyMap(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
