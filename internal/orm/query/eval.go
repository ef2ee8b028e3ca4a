package query

import (
	"sort"
)

// Match reports whether a document satisfies every condition of the query
func (q *Query) Match(doc map[string]interface{}) bool {
	for _, cond := range q.conditions {
		if !cond.Matches(doc) {
			return false
		}
	}
	return true
}

// Apply filters, sorts, skips and limits the given documents. The input slice is
// not modified; the returned documents are the same values as the input.
func Apply[D ~map[string]interface{}](docs []D, q *Query) []D {
	matched := make([]D, 0, len(docs))
	for _, doc := range docs {
		if q.Match(map[string]interface{}(doc)) {
			matched = append(matched, doc)
		}
	}

	if len(q.sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, f := range q.sort {
				a, _ := Lookup(map[string]interface{}(matched[i]), f.Field)
				b, _ := Lookup(map[string]interface{}(matched[j]), f.Field)
				cmp := compareForSort(a, b)
				if cmp == 0 {
					continue
				}
				if f.Direction == Descending {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if skip, ok := q.SkipValue(); ok && skip > 0 {
		if skip >= len(matched) {
			return matched[:0]
		}
		matched = matched[skip:]
	}

	if limit, ok := q.LimitValue(); ok && limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched
}
