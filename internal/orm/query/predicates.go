package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
	OpRegex
	OpIsNull
	OpIsNotNull
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpRegex:
		return "REGEX"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// Condition represents a single constraint on a document field.
// Conditions of one query are combined with AND.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// String renders the condition for logs and error messages
func (c *Condition) String() string {
	switch c.Operator {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	default:
		return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
	}
}

// Matches reports whether the document satisfies the condition
func (c *Condition) Matches(doc map[string]interface{}) bool {
	actual, _ := Lookup(doc, c.Field)

	switch c.Operator {
	case OpEqual:
		return matchesEqual(actual, c.Value)
	case OpNotEqual:
		return !matchesEqual(actual, c.Value)
	case OpIsNull:
		return matchesEqual(actual, nil)
	case OpIsNotNull:
		return !matchesEqual(actual, nil)
	case OpIn:
		for _, v := range toList(c.Value) {
			if matchesEqual(actual, v) {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, v := range toList(c.Value) {
			if matchesEqual(actual, v) {
				return false
			}
		}
		return true
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return matchesAny(actual, func(v interface{}) bool {
			cmp, ok := Compare(v, c.Value)
			if !ok {
				return false
			}
			switch c.Operator {
			case OpGreaterThan:
				return cmp > 0
			case OpGreaterThanOrEqual:
				return cmp >= 0
			case OpLessThan:
				return cmp < 0
			default:
				return cmp <= 0
			}
		})
	case OpRegex:
		re, ok := c.Value.(*regexp.Regexp)
		if !ok {
			return false
		}
		return matchesAny(actual, func(v interface{}) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		})
	default:
		return false
	}
}

// Lookup resolves a dotted field path inside a document
func Lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := doc[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// matchesEqual follows document-store semantics: a nil target matches a missing
// or null field, and a scalar target matches any element of an array field.
func matchesEqual(actual, expected interface{}) bool {
	if expected == nil {
		return actual == nil
	}
	if list, ok := actual.([]interface{}); ok {
		if _, expectedList := expected.([]interface{}); !expectedList {
			for _, item := range list {
				if Equal(item, expected) {
					return true
				}
			}
			return false
		}
	}
	return Equal(actual, expected)
}

func matchesAny(actual interface{}, fn func(interface{}) bool) bool {
	if list, ok := actual.([]interface{}); ok {
		for _, item := range list {
			if fn(item) {
				return true
			}
		}
		return false
	}
	return fn(actual)
}

func toList(v interface{}) []interface{} {
	switch val := v.(type) {
	case []interface{}:
		return val
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []interface{}{val}
	}
}

// Equal compares two document values, treating all numeric kinds alike
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values of the same kind. The second result is false when
// the values are not comparable.
func Compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return compareFloat(fa, fb), true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

// sortRank orders values of different kinds: null, numbers, strings, objects,
// arrays, booleans, dates.
func sortRank(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case map[string]interface{}:
		return 3
	case []interface{}:
		return 4
	case bool:
		return 5
	case time.Time:
		return 6
	default:
		return 7
	}
}

// compareForSort gives a total order over document values
func compareForSort(a, b interface{}) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	cmp, _ := Compare(a, b)
	return cmp
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
