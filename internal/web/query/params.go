// Package query turns raw HTTP query strings into normalized parameter values.
package query

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	ormquery "github.com/conduit-lang/restifier/internal/orm/query"
)

// Reserved parameter names. Every other parameter is a field equality filter.
const (
	ParamLimit    = "limit"
	ParamSkip     = "skip"
	ParamSort     = "sort"
	ParamPopulate = "populate"
	ParamFilter   = "filter"
)

// IsReserved reports whether name is a control parameter rather than a field filter
func IsReserved(name string) bool {
	switch name {
	case ParamLimit, ParamSkip, ParamSort, ParamPopulate, ParamFilter:
		return true
	default:
		return false
	}
}

// Values holds normalized query parameters. A value is nil for an explicit null,
// a string for raw parameters, []string for populate and an orm Sort for sort.
// Modifiers may store values of any other type.
type Values map[string]interface{}

// FromURL copies the first value of every parameter
func FromURL(raw url.Values) Values {
	v := make(Values, len(raw))
	for key, values := range raw {
		if len(values) == 0 {
			v[key] = ""
			continue
		}
		v[key] = values[0]
	}
	return v
}

// Parse reads and normalizes the query string of a request
func Parse(r *http.Request) Values {
	return Normalize(FromURL(r.URL.Query()))
}

// Normalize converts empty strings to nil, splits populate into field names and
// parses sort into an ordered sort specification. It modifies and returns v and
// is idempotent.
func Normalize(v Values) Values {
	for key, val := range v {
		if s, ok := val.(string); ok && s == "" {
			v[key] = nil
		}
	}
	if raw, ok := v[ParamPopulate].(string); ok {
		v[ParamPopulate] = ParsePopulate(raw)
	}
	if raw, ok := v[ParamSort].(string); ok {
		v[ParamSort] = ParseSort(raw)
	}
	return v
}

// ParsePopulate splits a comma separated field list, dropping empty entries.
// Example: "comments, test  " returns ["comments", "test"]
func ParsePopulate(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseSort parses a comma separated sort list. A single leading "-" marks a
// descending key; a later duplicate overwrites the direction of an earlier one.
// Example: "name, -hobby" returns name ascending then hobby descending.
func ParseSort(raw string) ormquery.Sort {
	var result ormquery.Sort
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			result = result.Set(trimmed[1:], ormquery.Descending)
		} else {
			result = result.Set(trimmed, ormquery.Ascending)
		}
	}
	return result
}

// Has reports whether a parameter is present, including explicit nulls
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// String returns a parameter that is still a raw string
func (v Values) String(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

// Populate returns the requested population fields
func (v Values) Populate() []string {
	switch val := v[ParamPopulate].(type) {
	case []string:
		return val
	case string:
		return ParsePopulate(val)
	default:
		return nil
	}
}

// Sort returns the requested sort specification
func (v Values) Sort() ormquery.Sort {
	switch val := v[ParamSort].(type) {
	case ormquery.Sort:
		return val
	case string:
		return ParseSort(val)
	default:
		return nil
	}
}

// Keys returns parameter names in lexical order
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; sort and populate values are copied
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, val := range v {
		switch typed := val.(type) {
		case []string:
			out[key] = append([]string(nil), typed...)
		case ormquery.Sort:
			out[key] = append(ormquery.Sort(nil), typed...)
		default:
			out[key] = val
		}
	}
	return out
}
