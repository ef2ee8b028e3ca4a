package app

import (
	"fmt"

	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/resource"
)

// BuildModels turns declared resources into models and nests the declared
// sub-resources. Only top-level models are returned; registering them
// registers their sub-resources too.
func BuildModels(resources []config.ResourceConfig) ([]*resource.Model, error) {
	byName := make(map[string]*resource.Model, len(resources))
	ordered := make([]*resource.Model, 0, len(resources))

	for _, rc := range resources {
		m, err := buildModel(rc)
		if err != nil {
			return nil, err
		}
		byName[rc.Name] = m
		ordered = append(ordered, m)
	}

	for _, rc := range resources {
		parent := byName[rc.Name]
		for _, sub := range rc.Submodels {
			child, ok := byName[sub.Resource]
			if !ok {
				return nil, fmt.Errorf("resource %s: sub-resource %s is not declared", rc.Name, sub.Resource)
			}
			if err := parent.Submodel(sub.Path, child, sub.CorrespondsTo); err != nil {
				return nil, err
			}
		}
	}

	top := make([]*resource.Model, 0, len(ordered))
	for _, m := range ordered {
		if m.Parent() == nil {
			top = append(top, m)
		}
	}
	return top, nil
}

func buildModel(rc config.ResourceConfig) (*resource.Model, error) {
	s := schema.New(rc.Name)
	if rc.Collection != "" {
		s.WithCollection(rc.Collection)
	}

	for _, fc := range rc.Fields {
		typ, err := schema.ParseFieldType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("resource %s: field %s: %w", rc.Name, fc.Name, err)
		}
		f := schema.NewField(fc.Name, typ, fieldOptions(fc)...)
		if typ == schema.TypeRef {
			f.Ref = fc.Ref
			f.Many = fc.Many
		}
		if err := s.Add(f); err != nil {
			return nil, err
		}
	}

	if rc.Identifier != "" && !s.HasField(rc.Identifier) {
		return nil, fmt.Errorf("resource %s: identifier %q is not a declared field", rc.Name, rc.Identifier)
	}

	m := resource.New(s)
	if rc.Identifier != "" {
		m.SetIdentifier(rc.Identifier)
	}
	if rc.Limit > 0 {
		m.Limit(rc.Limit)
	}
	return m, nil
}

func fieldOptions(fc config.FieldConfig) []schema.Option {
	var opts []schema.Option
	if fc.Restricted {
		opts = append(opts, schema.Restricted())
	}
	if fc.ID {
		opts = append(opts, schema.ID())
	}
	if fc.Unique {
		opts = append(opts, schema.Unique())
	}
	return opts
}
