// Package schema provides the static field-descriptor table for document collections.
// A Schema is declared once when a collection is registered; the query compiler and the
// stores consult it instead of inspecting live documents.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PrimaryKey is the native primary key carried by every document
const PrimaryKey = "_id"

// FieldType represents the declared type of a document field
type FieldType int

const (
	// TypeObjectID is the native primary key type
	TypeObjectID FieldType = iota
	TypeString
	TypeNumber
	TypeBool
	TypeDate
	// TypeRef holds the primary key of a document in another collection
	TypeRef
	// TypeMixed holds arbitrary JSON
	TypeMixed
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeObjectID:
		return "objectid"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	case TypeRef:
		return "ref"
	case TypeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "objectid":
		return TypeObjectID, nil
	case "string", "":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "date":
		return TypeDate, nil
	case "ref":
		return TypeRef, nil
	case "mixed":
		return TypeMixed, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// Field describes one field of a collection
type Field struct {
	Name string
	Type FieldType

	// Restricted fields are never exposed, queried, sorted or populated
	Restricted bool
	// ID marks the field as the resource identifier used in item routes
	ID bool
	// Unique fields are enforced by the stores
	Unique bool

	// Ref is the target collection for TypeRef fields
	Ref string
	// Many marks a TypeRef field holding a list of references
	Many bool
}

// Option configures a Field
type Option func(*Field)

// Restricted marks a field as restricted
func Restricted() Option {
	return func(f *Field) { f.Restricted = true }
}

// ID marks a field as the resource identifier. Identifier fields are unique.
func ID() Option {
	return func(f *Field) {
		f.ID = true
		f.Unique = true
	}
}

// Unique marks a field as unique within its collection
func Unique() Option {
	return func(f *Field) { f.Unique = true }
}

// NewField creates a field of the given type
func NewField(name string, typ FieldType, opts ...Option) *Field {
	f := &Field{Name: name, Type: typ}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// String declares a string field
func String(name string, opts ...Option) *Field { return NewField(name, TypeString, opts...) }

// Number declares a numeric field
func Number(name string, opts ...Option) *Field { return NewField(name, TypeNumber, opts...) }

// Bool declares a boolean field
func Bool(name string, opts ...Option) *Field { return NewField(name, TypeBool, opts...) }

// Date declares an RFC 3339 timestamp field
func Date(name string, opts ...Option) *Field { return NewField(name, TypeDate, opts...) }

// Mixed declares a field holding arbitrary JSON
func Mixed(name string, opts ...Option) *Field { return NewField(name, TypeMixed, opts...) }

// Ref declares a reference to a single document of the target collection
func Ref(name, target string, opts ...Option) *Field {
	f := NewField(name, TypeRef, opts...)
	f.Ref = target
	return f
}

// RefMany declares a list of references to documents of the target collection
func RefMany(name, target string, opts ...Option) *Field {
	f := Ref(name, target, opts...)
	f.Many = true
	return f
}

// IsRelation returns true if the field can be populated
func (f *Field) IsRelation() bool {
	return f.Type == TypeRef && f.Ref != ""
}

// Cast converts a raw query-string value to the field's type.
// A nil value is returned unchanged; it is a legal equality target.
// Dates are normalized to RFC 3339 in UTC so that equal instants compare equal.
func (f *Field) Cast(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	switch f.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a number", f.Name, s)
		}
		return n, nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a boolean", f.Name, s)
		}
		return b, nil
	case TypeDate:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not an RFC 3339 date", f.Name, s)
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		return s, nil
	}
}

// Schema is the field table of one collection
type Schema struct {
	// Name is the singular model name, e.g. "User"
	Name string
	// Collection is the backing collection name, e.g. "users"
	Collection string

	fields []*Field
	byName map[string]*Field
}

// New creates a schema for the named model. The collection name defaults to the
// lowercase plural of the model name. The native primary key is always declared.
func New(name string, fields ...*Field) *Schema {
	s := &Schema{
		Name:       name,
		Collection: Pluralize(strings.ToLower(name)),
		byName:     make(map[string]*Field),
	}
	s.fields = append(s.fields, NewField(PrimaryKey, TypeObjectID, Unique()))
	s.byName[PrimaryKey] = s.fields[0]

	for _, f := range fields {
		if err := s.Add(f); err != nil {
			panic(err)
		}
	}
	return s
}

// WithCollection overrides the collection name
func (s *Schema) WithCollection(collection string) *Schema {
	s.Collection = collection
	return s
}

// Add declares a field. Field names are unique within a schema.
func (s *Schema) Add(f *Field) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("schema %s: field name cannot be empty", s.Name)
	}
	if _, exists := s.byName[f.Name]; exists {
		return fmt.Errorf("schema %s: field %s is already declared", s.Name, f.Name)
	}
	if f.Type == TypeRef && f.Ref == "" {
		return fmt.Errorf("schema %s: reference field %s has no target collection", s.Name, f.Name)
	}
	s.fields = append(s.fields, f)
	s.byName[f.Name] = f
	return nil
}

// Field returns the named field
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// HasField returns true if the schema declares the named field
func (s *Schema) HasField(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Fields returns the fields in declaration order
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Restricted returns the names of all restricted fields in declaration order
func (s *Schema) Restricted() []string {
	var names []string
	for _, f := range s.fields {
		if f.Restricted {
			names = append(names, f.Name)
		}
	}
	return names
}

// Identifier returns the field flagged as identifier, or the primary key
func (s *Schema) Identifier() string {
	for _, f := range s.fields {
		if f.ID {
			return f.Name
		}
	}
	return PrimaryKey
}

// UniqueFields returns every unique field other than the primary key
func (s *Schema) UniqueFields() []string {
	var names []string
	for _, f := range s.fields {
		if f.Unique && f.Name != PrimaryKey {
			names = append(names, f.Name)
		}
	}
	return names
}

// Pluralize returns the plural form of a word (simple implementation)
func Pluralize(word string) string {
	if word == "" {
		return word
	}

	specialCases := map[string]string{
		"person": "people",
		"child":  "children",
		"man":    "men",
		"woman":  "women",
		"mouse":  "mice",
	}
	if plural, ok := specialCases[strings.ToLower(word)]; ok {
		return plural
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

func isVowel(b byte) bool {
	return strings.ContainsRune("aeiouAEIOU", rune(b))
}
