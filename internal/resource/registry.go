package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultConcurrency bounds the documents transformed in parallel per request
const defaultConcurrency = 8

// Registry owns the registered resources and the store they share
type Registry struct {
	store   store.Store
	schemas *schema.Registry

	mu     sync.RWMutex
	models map[string]*Model
	order  []*Model

	newID       func() string
	logger      *zap.Logger
	concurrency int
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the registry and its resources
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator replaces the primary key generator used on create
func WithIDGenerator(fn func() string) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithConcurrency bounds parallel document transforms. Zero or less means unbounded.
func WithConcurrency(n int) RegistryOption {
	return func(r *Registry) { r.concurrency = n }
}

// NewRegistry creates an empty registry over a store
func NewRegistry(s store.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:       s,
		schemas:     schema.NewRegistry(),
		models:      make(map[string]*Model),
		newID:       uuid.NewString,
		logger:      zap.NewNop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a resource and its sub-resources and prepares their
// collections in the store. Registering the same resource twice is a no-op.
func (r *Registry) Register(ctx context.Context, m *Model) error {
	r.mu.Lock()
	if existing, ok := r.models[m.Collection()]; ok {
		r.mu.Unlock()
		if existing == m {
			return nil
		}
		return fmt.Errorf("collection %s is already served by another resource", m.Collection())
	}
	if err := r.schemas.Register(m.schema); err != nil {
		r.mu.Unlock()
		return err
	}
	r.models[m.Collection()] = m
	r.order = append(r.order, m)
	m.registry = r
	r.mu.Unlock()

	if err := r.store.EnsureCollection(ctx, collectionSpec(m)); err != nil {
		return fmt.Errorf("prepare collection %s: %w", m.Collection(), err)
	}
	r.logger.Info("resource registered",
		zap.String("resource", m.Name()),
		zap.String("collection", m.Collection()),
		zap.String("identifier", m.identifier),
		zap.Int("sub_resources", len(m.submodels)),
	)

	for _, sub := range m.submodels {
		if err := r.Register(ctx, sub.Model); err != nil {
			return err
		}
	}
	return nil
}

// collectionSpec lists the schema's unique fields plus the identifier
func collectionSpec(m *Model) store.CollectionSpec {
	unique := m.schema.UniqueFields()
	if m.identifier != schema.PrimaryKey && !contains(unique, m.identifier) {
		unique = append(unique, m.identifier)
	}
	return store.CollectionSpec{Name: m.Collection(), Unique: unique}
}

// Model returns the resource serving a collection
func (r *Registry) Model(collection string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[collection]
	return m, ok
}

// Models returns every registered resource in registration order
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Model, len(r.order))
	copy(out, r.order)
	return out
}

// Store returns the backing store
func (r *Registry) Store() store.Store {
	return r.store
}

// Logger returns the registry logger
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// Validate checks that every reference field targets a registered collection.
// Call it once every resource is registered.
func (r *Registry) Validate() error {
	return r.schemas.ValidateRefs()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Reset detaches every registered resource. The store keeps its data.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.order {
		m.registry = nil
	}
	r.models = make(map[string]*Model)
	r.order = nil
	r.schemas = schema.NewRegistry()
}
