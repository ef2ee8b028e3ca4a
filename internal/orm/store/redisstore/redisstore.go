// Package redisstore keeps each collection in a Redis hash of JSON documents.
// Insertion order is tracked in a sorted set and unique fields in index hashes
// mapping a field value to the owning document id.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/redis/go-redis/v9"
)

// maxRetries bounds optimistic transaction retries on concurrent writes
const maxRetries = 5

// Config holds Redis connection settings
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "restifier:",
	}
}

// Store is a Redis-backed document store
type Store struct {
	client *redis.Client
	prefix string

	mu     sync.RWMutex
	unique map[string][]string
}

var _ store.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection
func Open(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient creates a store over an existing client
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		unique: make(map[string][]string),
	}
}

func (s *Store) docsKey(collection string) string {
	return s.prefix + collection + ":docs"
}

func (s *Store) orderKey(collection string) string {
	return s.prefix + collection + ":order"
}

func (s *Store) seqKey(collection string) string {
	return s.prefix + collection + ":seq"
}

func (s *Store) uniqueKey(collection, field string) string {
	return s.prefix + collection + ":unique:" + field
}

// EnsureCollection records the unique fields of a collection. Redis needs no
// schema statements; index hashes are created on first write.
func (s *Store) EnsureCollection(ctx context.Context, spec store.CollectionSpec) error {
	if spec.Name == "" {
		return errors.New("collection name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[spec.Name] = append([]string(nil), spec.Unique...)
	return nil
}

func (s *Store) uniqueFields(collection string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unique[collection]
}

// Find loads documents in insertion order and evaluates the query over them
func (s *Store) Find(ctx context.Context, q *query.Query) ([]store.Document, error) {
	collection := q.Collection()

	var ids []string
	if id, ok := store.PrimaryKeyLookup(q); ok {
		ids = []string{store.KeyOf(id)}
	} else {
		var err error
		ids, err = s.client.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", collection, err)
		}
	}

	docs := make([]store.Document, 0, len(ids))
	if len(ids) > 0 {
		payloads, err := s.client.HMGet(ctx, s.docsKey(collection), ids...).Result()
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", collection, err)
		}
		for _, payload := range payloads {
			raw, ok := payload.(string)
			if !ok {
				continue
			}
			doc, err := store.Decode([]byte(raw))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	docs = query.Apply(docs, q)
	if err := store.Populate(ctx, s, docs, q.Populations()); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns the first matching document
func (s *Store) FindOne(ctx context.Context, q *query.Query) (store.Document, error) {
	return store.FindOne(ctx, s, q)
}

// Insert stores a new document, failing when its id or a unique value is taken
func (s *Store) Insert(ctx context.Context, collection string, doc store.Document) error {
	if doc.ID() == nil {
		return fmt.Errorf("insert into %s: document has no %s", collection, schema.PrimaryKey)
	}
	payload, err := store.Encode(doc)
	if err != nil {
		return err
	}

	id := store.KeyOf(doc.ID())
	fields := s.uniqueFields(collection)
	docsKey := s.docsKey(collection)

	return s.transact(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, docsKey, id).Result()
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s.%s %q", store.ErrDuplicate, collection, schema.PrimaryKey, id)
		}
		if err := s.checkUnique(ctx, tx, collection, fields, doc, id); err != nil {
			return err
		}

		seq, err := tx.Incr(ctx, s.seqKey(collection)).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, docsKey, id, payload)
			p.ZAdd(ctx, s.orderKey(collection), redis.Z{Score: float64(seq), Member: id})
			for _, field := range fields {
				if v, ok := doc[field]; ok && v != nil {
					p.HSet(ctx, s.uniqueKey(collection, field), store.KeyOf(v), id)
				}
			}
			return nil
		})
		return err
	}, s.watchKeys(collection, fields)...)
}

// Save replaces an existing document and moves its unique index entries
func (s *Store) Save(ctx context.Context, collection string, doc store.Document) error {
	payload, err := store.Encode(doc)
	if err != nil {
		return err
	}

	id := store.KeyOf(doc.ID())
	fields := s.uniqueFields(collection)
	docsKey := s.docsKey(collection)

	return s.transact(ctx, func(tx *redis.Tx) error {
		previous, err := s.load(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if err := s.checkUnique(ctx, tx, collection, fields, doc, id); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, docsKey, id, payload)
			for _, field := range fields {
				old, hadOld := previous[field]
				v, ok := doc[field]
				if hadOld && old != nil && !query.Equal(old, v) {
					p.HDel(ctx, s.uniqueKey(collection, field), store.KeyOf(old))
				}
				if ok && v != nil {
					p.HSet(ctx, s.uniqueKey(collection, field), store.KeyOf(v), id)
				}
			}
			return nil
		})
		return err
	}, s.watchKeys(collection, fields)...)
}

// Remove deletes a document and its unique index entries
func (s *Store) Remove(ctx context.Context, collection string, id interface{}) error {
	key := store.KeyOf(id)
	fields := s.uniqueFields(collection)

	return s.transact(ctx, func(tx *redis.Tx) error {
		previous, err := s.load(ctx, tx, collection, key)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, s.docsKey(collection), key)
			p.ZRem(ctx, s.orderKey(collection), key)
			for _, field := range fields {
				if v, ok := previous[field]; ok && v != nil {
					p.HDel(ctx, s.uniqueKey(collection, field), store.KeyOf(v))
				}
			}
			return nil
		})
		return err
	}, s.watchKeys(collection, fields)...)
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) load(ctx context.Context, tx *redis.Tx, collection, id string) (store.Document, error) {
	raw, err := tx.HGet(ctx, s.docsKey(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return store.Decode([]byte(raw))
}

// checkUnique fails when a unique value of doc is owned by another document
func (s *Store) checkUnique(ctx context.Context, tx *redis.Tx, collection string, fields []string, doc store.Document, id string) error {
	for _, field := range fields {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		owner, err := tx.HGet(ctx, s.uniqueKey(collection, field), store.KeyOf(v)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		if owner != id {
			return fmt.Errorf("%w: %s.%s %q", store.ErrDuplicate, collection, field, store.KeyOf(v))
		}
	}
	return nil
}

func (s *Store) watchKeys(collection string, fields []string) []string {
	keys := []string{s.docsKey(collection), s.orderKey(collection)}
	for _, field := range fields {
		keys = append(keys, s.uniqueKey(collection, field))
	}
	return keys
}

// transact runs fn under WATCH, retrying when a concurrent writer touched the keys
func (s *Store) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: %w", keys, redis.TxFailedErr)
}
