package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry manages all collection schemas in the application
type Registry struct {
	schemas map[string]*Schema
	mu      sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
	}
}

// Register registers a schema under its collection name
func (r *Registry) Register(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Collection == "" {
		return fmt.Errorf("schema %s has no collection", s.Name)
	}
	if _, exists := r.schemas[s.Collection]; exists {
		return fmt.Errorf("collection %s is already registered", s.Collection)
	}
	r.schemas[s.Collection] = s
	return nil
}

// Get retrieves a schema by collection name
func (r *Registry) Get(collection string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[collection]
	return s, ok
}

// List returns all collection names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRefs checks that every reference field targets a registered collection.
// References are validated after registration to allow forward references.
func (r *Registry) ValidateRefs() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	for _, collection := range sortedKeys(r.schemas) {
		s := r.schemas[collection]
		for _, f := range s.fields {
			if !f.IsRelation() {
				continue
			}
			if _, ok := r.schemas[f.Ref]; !ok {
				problems = append(problems, fmt.Sprintf("%s.%s references unknown collection %s", s.Name, f.Name, f.Ref))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("relationship validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys(m map[string]*Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
