package modeling

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field type names understood by the coercion layer. Any other type string
// is treated as TypeAny.
const (
	TypeString    = "string"
	TypeInteger   = "integer"
	TypeNumber    = "number"
	TypeBoolean   = "boolean"
	TypeDate      = "date"
	TypeDateTime  = "datetime"
	TypeObject    = "object"
	TypeArray     = "array"
	TypeReference = "reference"
	TypeAny       = "any"
)

// ValidationResult is the outcome of validating one resource or bundle.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

func (vr *ValidationResult) addIssue(format string, args ...interface{}) {
	vr.Valid = false
	vr.Issues = append(vr.Issues, fmt.Sprintf(format, args...))
}

// Instantiation is the result of Instantiate: the coerced resource when valid,
// and the validation outcome either way.
type Instantiation struct {
	Resource   Resource         `json:"resource,omitempty"`
	Validation ValidationResult `json:"validation"`
}

// Clock returns the current time; overridable in tests.
var Clock = func() time.Time { return time.Now().UTC() }

// NewID generates identifiers for instantiated resources.
var NewID = func() string { return uuid.NewString() }

// Instantiate builds a resource of typeName from data. It fills
// resource_type, id and timestamps when absent, coerces every declared field,
// and reports all issues together. The only error is ErrUnknownType.
func Instantiate(reg *Registry, typeName string, data map[string]interface{}) (*Instantiation, error) {
	d, err := reg.Get(typeName)
	if err != nil {
		return nil, err
	}
	return instantiateWith(d, data, true), nil
}

// Validate checks data against typeName without applying defaults.
func Validate(reg *Registry, typeName string, data map[string]interface{}) (*ValidationResult, error) {
	d, err := reg.Get(typeName)
	if err != nil {
		return nil, err
	}
	inst := instantiateWith(d, data, false)
	return &inst.Validation, nil
}

// ValidateAgainst checks data against an explicit descriptor, such as a
// subset produced by Pick.
func ValidateAgainst(d SchemaDescriptor, data map[string]interface{}) *ValidationResult {
	inst := instantiateWith(d, data, false)
	return &inst.Validation
}

func instantiateWith(d SchemaDescriptor, data map[string]interface{}, applyDefaults bool) *Instantiation {
	vr := ValidationResult{Valid: true, Issues: []string{}}

	if p, err := checkRepresentable(map[string]interface{}(data), "", map[uintptr]bool{}); err != nil {
		if p == "" {
			p = "<root>"
		}
		vr.addIssue("%s: resource is not representable as JSON: %v", p, err)
		return &Instantiation{Validation: vr}
	}

	out := make(Resource, len(data)+4)
	for k, v := range data {
		c, _ := cloneValue(v, map[uintptr]bool{})
		out[k] = c
	}

	if rt, ok := out[FieldResourceType]; ok {
		if s, isStr := rt.(string); !isStr || s != d.ResourceType {
			vr.addIssue("%s: expected %q, got %v", FieldResourceType, d.ResourceType, rt)
		}
	} else if applyDefaults {
		out[FieldResourceType] = d.ResourceType
	}

	if applyDefaults {
		if _, ok := out[FieldID]; !ok {
			out[FieldID] = NewID()
		}
		now := Clock().Format(time.RFC3339Nano)
		if _, ok := out[FieldCreatedAt]; !ok {
			out[FieldCreatedAt] = now
		}
		if _, ok := out[FieldUpdatedAt]; !ok {
			out[FieldUpdatedAt] = now
		}
	}

	if idVal, ok := out[FieldID]; ok {
		if s, isStr := idVal.(string); !isStr || strings.TrimSpace(s) == "" {
			vr.addIssue("%s: must be a non-empty string", FieldID)
		}
	}

	for _, name := range d.FieldNames() {
		info := d.Fields[name]
		v, present := out[name]
		if !present || v == nil {
			if info.Required {
				vr.addIssue("%s: field required", name)
			}
			continue
		}
		if name == FieldResourceType || name == FieldID {
			continue
		}
		coerced, err := coerce(info.Type, v)
		if err != nil {
			vr.addIssue("%s: %v", name, err)
			continue
		}
		out[name] = coerced
	}

	inst := &Instantiation{Validation: vr}
	if vr.Valid {
		inst.Resource = out
	}
	return inst
}

// coerce converts v to fieldType, returning an error describing the mismatch.
func coerce(fieldType string, v interface{}) (interface{}, error) {
	ft := strings.ToLower(strings.TrimSpace(fieldType))
	if strings.HasPrefix(ft, "list[") && strings.HasSuffix(ft, "]") {
		return coerceList(ft[len("list["):len(ft)-1], v)
	}

	switch ft {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)

	case TypeInteger:
		return coerceInteger(v)

	case TypeNumber:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f, nil
			}
		}
		return nil, fmt.Errorf("expected number, got %v", v)

	case TypeBoolean:
		return coerceBoolean(v)

	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string, got %T", v)
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return nil, fmt.Errorf("invalid date %q", s)
			}
		}
		return s, nil

	case TypeDateTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected datetime string, got %T", v)
		}
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			if _, err := time.Parse("2006-01-02", s); err != nil {
				return nil, fmt.Errorf("invalid datetime %q", s)
			}
		}
		return s, nil

	case TypeObject:
		if m, ok := asMap(v); ok {
			return m, nil
		}
		return nil, fmt.Errorf("expected object, got %T", v)

	case TypeArray:
		if s, ok := asSlice(v); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected array, got %T", v)

	case TypeReference:
		if s, ok := v.(string); ok {
			if _, _, err := ParseReference(s); err != nil {
				return nil, err
			}
			return s, nil
		}
		if m, ok := asMap(v); ok {
			ref, isStr := m["reference"].(string)
			if !isStr {
				return nil, fmt.Errorf("reference object has no string 'reference' key")
			}
			if _, _, err := ParseReference(ref); err != nil {
				return nil, err
			}
			return m, nil
		}
		return nil, fmt.Errorf("expected reference, got %T", v)
	}

	return v, nil
}

func coerceList(elemType string, v interface{}) (interface{}, error) {
	s, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]interface{}, len(s))
	var bad []string
	for i, e := range s {
		c, err := coerce(elemType, e)
		if err != nil {
			bad = append(bad, fmt.Sprintf("[%d] %v", i, err))
			continue
		}
		out[i] = c
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid list items: %s", strings.Join(bad, "; "))
	}
	return out, nil
}

func coerceInteger(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected integer, got fractional number %v", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("integer %v out of int64 range", f)
	}
	return int64(f), nil
}

func uintToInt64(n uint64) (interface{}, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d out of int64 range", n)
	}
	return int64(n), nil
}

func coerceBoolean(v interface{}) (interface{}, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}
		return nil, fmt.Errorf("expected boolean, got %q", b)
	}
	if f, ok := toFloat(v); ok {
		switch f {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return nil, fmt.Errorf("expected boolean, got %v", v)
}
