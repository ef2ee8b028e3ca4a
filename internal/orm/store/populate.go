package store

import (
	"context"
	"fmt"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
)

// Populate replaces reference ids held in the requested fields with the referenced
// documents. A dangling single reference becomes null; dangling entries of a
// reference list are dropped.
func Populate(ctx context.Context, s Store, docs []Document, pops []query.Population) error {
	for _, p := range pops {
		ids := collectRefIDs(docs, p.Field)
		if len(ids) == 0 {
			continue
		}

		refs, err := s.Find(ctx, query.New(p.Collection).WhereIn(schema.PrimaryKey, ids...))
		if err != nil {
			return fmt.Errorf("populate %s from %s: %w", p.Field, p.Collection, err)
		}

		byID := make(map[string]Document, len(refs))
		for _, ref := range refs {
			byID[KeyOf(ref.ID())] = ref
		}

		for _, doc := range docs {
			switch v := doc[p.Field].(type) {
			case nil:
				continue
			case []interface{}:
				populated := make([]interface{}, 0, len(v))
				for _, id := range v {
					if ref, ok := byID[KeyOf(id)]; ok {
						populated = append(populated, map[string]interface{}(ref.Clone()))
					}
				}
				doc[p.Field] = populated
			case []string:
				populated := make([]interface{}, 0, len(v))
				for _, id := range v {
					if ref, ok := byID[id]; ok {
						populated = append(populated, map[string]interface{}(ref.Clone()))
					}
				}
				doc[p.Field] = populated
			default:
				if ref, ok := byID[KeyOf(v)]; ok {
					doc[p.Field] = map[string]interface{}(ref.Clone())
				} else {
					doc[p.Field] = nil
				}
			}
		}
	}
	return nil
}

func collectRefIDs(docs []Document, field string) []interface{} {
	seen := make(map[string]bool)
	var ids []interface{}
	add := func(id interface{}) {
		key := KeyOf(id)
		if id == nil || seen[key] {
			return
		}
		seen[key] = true
		ids = append(ids, id)
	}

	for _, doc := range docs {
		switch v := doc[field].(type) {
		case nil:
		case []interface{}:
			for _, id := range v {
				add(id)
			}
		case []string:
			for _, id := range v {
				add(id)
			}
		default:
			add(v)
		}
	}
	return ids
}
