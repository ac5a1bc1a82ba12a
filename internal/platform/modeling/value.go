package modeling

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Essential field names, always kept by subset schemas and projections.
const (
	FieldID           = "id"
	FieldResourceType = "resource_type"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
)

// EssentialFields lists the fields every subset keeps.
var EssentialFields = []string{FieldID, FieldResourceType, FieldCreatedAt, FieldUpdatedAt}

var (
	// ErrCyclic is returned when a value contains itself.
	ErrCyclic = errors.New("value is self-referential")
	// ErrInvalidPath is returned for empty or malformed dot-paths.
	ErrInvalidPath = errors.New("invalid path")
)

// Resource is a generic resource: field name to JSON-like value. Nested
// objects are map[string]interface{} and lists are []interface{}.
type Resource map[string]interface{}

// Type returns the resource_type field, or "" when absent.
func (r Resource) Type() string {
	s, _ := r[FieldResourceType].(string)
	return s
}

// ID returns the id field, or "" when absent or not a string.
func (r Resource) ID() string {
	s, _ := r[FieldID].(string)
	return s
}

// Clone returns a deep copy of the resource.
func (r Resource) Clone() (Resource, error) {
	if r == nil {
		return nil, nil
	}
	v, err := cloneValue(map[string]interface{}(r), map[uintptr]bool{})
	if err != nil {
		return nil, err
	}
	return Resource(v.(map[string]interface{})), nil
}

// asMap returns v as a plain map when it is any of the map shapes we accept.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Resource:
		return map[string]interface{}(m), true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// asSlice returns v as []interface{} when it is a list shape we accept.
func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

func identity(v interface{}) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

// cloneValue deep-copies maps and lists. ancestors holds the identities of
// containers on the current path; revisiting one means a cycle.
func cloneValue(v interface{}, ancestors map[uintptr]bool) (interface{}, error) {
	if m, ok := asMap(v); ok {
		id, tracked := identity(v)
		if tracked {
			if ancestors[id] {
				return nil, ErrCyclic
			}
			ancestors[id] = true
			defer delete(ancestors, id)
		}
		out := make(map[string]interface{}, len(m))
		for k, e := range m {
			c, err := cloneValue(e, ancestors)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	}
	if s, ok := asSlice(v); ok {
		id, tracked := identity(v)
		if tracked {
			if ancestors[id] {
				return nil, ErrCyclic
			}
			ancestors[id] = true
			defer delete(ancestors, id)
		}
		out := make([]interface{}, len(s))
		for i, e := range s {
			c, err := cloneValue(e, ancestors)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}

// checkRepresentable verifies that v is finite, acyclic JSON. It returns the
// dot-path of the first offending value.
func checkRepresentable(v interface{}, path string, ancestors map[uintptr]bool) (string, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return path, fmt.Errorf("non-finite number %v", n)
		}
		return "", nil
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return path, fmt.Errorf("non-finite number %v", n)
		}
		return "", nil
	}

	if m, ok := asMap(v); ok {
		id, tracked := identity(v)
		if tracked {
			if ancestors[id] {
				return path, ErrCyclic
			}
			ancestors[id] = true
			defer delete(ancestors, id)
		}
		for _, k := range sortedKeys(m) {
			if p, err := checkRepresentable(m[k], joinPath(path, k), ancestors); err != nil {
				return p, err
			}
		}
		return "", nil
	}
	if s, ok := asSlice(v); ok {
		id, tracked := identity(v)
		if tracked {
			if ancestors[id] {
				return path, ErrCyclic
			}
			ancestors[id] = true
			defer delete(ancestors, id)
		}
		for i, e := range s {
			if p, err := checkRepresentable(e, fmt.Sprintf("%s[%d]", path, i), ancestors); err != nil {
				return p, err
			}
		}
		return "", nil
	}

	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return "", nil
	}
	return path, fmt.Errorf("unsupported value of type %T", v)
}

// valuesEqual is deep equality that treats numerically equal numbers of
// different Go types as equal (1 == 1.0), as JSON does.
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ma, ok := asMap(a); ok {
		mb, ok := asMap(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !valuesEqual(va, vb) {
				return false
			}
		}
		return true
	}
	if sa, ok := asSlice(a); ok {
		sb, ok := asSlice(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !valuesEqual(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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
	}
	return 0, false
}

// splitPath splits a dot-path into components. Empty components are invalid.
func splitPath(dotPath string) ([]string, error) {
	if strings.TrimSpace(dotPath) == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	parts := strings.Split(dotPath, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: %q has an empty component", ErrInvalidPath, dotPath)
		}
	}
	return parts, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
