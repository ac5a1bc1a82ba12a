package modeling

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidReference is returned when a reference cannot be built or parsed.
var ErrInvalidReference = errors.New("invalid reference")

// MakeReference builds the canonical "Type/id" reference string.
func MakeReference(resourceType, id string) (string, error) {
	resourceType = strings.TrimSpace(resourceType)
	id = strings.TrimSpace(id)
	if resourceType == "" {
		return "", fmt.Errorf("%w: resource type is required", ErrInvalidReference)
	}
	if id == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidReference)
	}
	return resourceType + "/" + id, nil
}

// ReferenceOf builds the reference for a resource from its resource_type and
// id fields.
func ReferenceOf(r map[string]interface{}) (string, error) {
	rt, _ := r[FieldResourceType].(string)
	id, _ := r[FieldID].(string)
	return MakeReference(rt, id)
}

// ParseReference splits a "Type/id" reference into its parts.
func ParseReference(ref string) (string, string, error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q is not of the form Type/id", ErrInvalidReference, ref)
	}
	return parts[0], parts[1], nil
}

// referenceType returns the type prefix of ref, or "" when ref has no "/".
func referenceType(ref string) string {
	i := strings.Index(ref, "/")
	if i <= 0 {
		return ""
	}
	return ref[:i]
}

// SetReference returns a copy of resource with reference written at dotPath.
// Missing intermediate objects are created. Numeric components index into
// existing lists; lists are never grown. The input is never modified.
func SetReference(resource map[string]interface{}, dotPath, reference string) (Resource, error) {
	parts, err := splitPath(dotPath)
	if err != nil {
		return nil, err
	}
	if _, _, err := ParseReference(reference); err != nil {
		return nil, err
	}

	cloned, err := Resource(resource).Clone()
	if err != nil {
		return nil, err
	}
	if cloned == nil {
		cloned = Resource{}
	}

	var cur interface{} = map[string]interface{}(cloned)
	for i, part := range parts {
		last := i == len(parts)-1
		switch c := cur.(type) {
		case map[string]interface{}:
			if last {
				c[part] = reference
				return cloned, nil
			}
			if c[part] == nil {
				m := map[string]interface{}{}
				c[part] = m
				cur = m
				continue
			}
			cur = c[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, fmt.Errorf("%w: %s has no element %q", ErrInvalidPath, strings.Join(parts[:i], "."), part)
			}
			if last {
				c[idx] = reference
				return cloned, nil
			}
			if c[idx] == nil {
				m := map[string]interface{}{}
				c[idx] = m
				cur = m
				continue
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidPath, strings.Join(parts[:i], "."))
		}
	}
	return cloned, nil
}

// ExtractReferences returns the references found at dotPath. A string value
// yields itself; a list yields its strings and the "reference" key of its
// objects; an object yields its "reference" key. Missing or null path
// components yield an empty list, as do malformed paths.
func ExtractReferences(resource map[string]interface{}, dotPath string) []string {
	refs := []string{}
	parts, err := splitPath(dotPath)
	if err != nil {
		return refs
	}

	var cur interface{} = resource
	for _, part := range parts {
		if cur == nil {
			return refs
		}
		if m, ok := asMap(cur); ok {
			cur = m[part]
			continue
		}
		if s, ok := asSlice(cur); ok {
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(s) {
				return refs
			}
			cur = s[idx]
			continue
		}
		return refs
	}

	if str, ok := cur.(string); ok {
		if str != "" {
			refs = append(refs, str)
		}
		return refs
	}
	if s, ok := asSlice(cur); ok {
		for _, item := range s {
			if str, isStr := item.(string); isStr {
				if str != "" {
					refs = append(refs, str)
				}
				continue
			}
			if m, isMap := asMap(item); isMap {
				if ref, _ := m["reference"].(string); ref != "" {
					refs = append(refs, ref)
				}
			}
		}
		return refs
	}
	if m, ok := asMap(cur); ok {
		if ref, _ := m["reference"].(string); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Relation is one reference found somewhere inside a resource.
type Relation struct {
	Path      string `json:"path"`
	Reference string `json:"reference"`
}

// ListRelations walks the whole resource and returns every reference found:
// string values under a "reference" key, and Type/id strings in fields the
// descriptor declares as references. d may be nil. Results are sorted by path.
func ListRelations(resource map[string]interface{}, d *SchemaDescriptor) []Relation {
	rels := []Relation{}
	refFields := map[string]bool{}
	if d != nil {
		for name, info := range d.Fields {
			ft := strings.ToLower(info.Type)
			if ft == TypeReference || ft == "list[reference]" {
				refFields[name] = true
			}
		}
	}
	walkRelations(resource, "", refFields, &rels, map[uintptr]bool{})
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Path < rels[j].Path })
	return rels
}

func walkRelations(v interface{}, path string, refFields map[string]bool, rels *[]Relation, ancestors map[uintptr]bool) {
	if id, tracked := identity(v); tracked {
		if ancestors[id] {
			return
		}
		ancestors[id] = true
		defer delete(ancestors, id)
	}

	if m, ok := asMap(v); ok {
		for _, k := range sortedKeys(m) {
			child := joinPath(path, k)
			switch val := m[k].(type) {
			case string:
				if k == "reference" || (path == "" && refFields[k]) {
					if _, _, err := ParseReference(val); err == nil {
						*rels = append(*rels, Relation{Path: child, Reference: val})
					}
				}
			default:
				if path == "" && refFields[k] {
					if s, isSlice := asSlice(val); isSlice {
						for i, e := range s {
							if str, isStr := e.(string); isStr {
								if _, _, err := ParseReference(str); err == nil {
									*rels = append(*rels, Relation{Path: fmt.Sprintf("%s.%d", child, i), Reference: str})
								}
							}
						}
					}
				}
				walkRelations(val, child, refFields, rels, ancestors)
			}
		}
		return
	}
	if s, ok := asSlice(v); ok {
		for i, e := range s {
			walkRelations(e, fmt.Sprintf("%s.%d", path, i), refFields, rels, ancestors)
		}
	}
}
