package modeling

import "sort"

// PickResult is a reduced descriptor plus the requested field names that the
// full descriptor does not know about.
type PickResult struct {
	Descriptor SchemaDescriptor `json:"descriptor"`
	Dropped    []string         `json:"dropped,omitempty"`
}

// Pick derives a subset descriptor containing the requested fields plus the
// essential fields, intersected with the fields typeName declares. Unknown
// requested names are dropped and listed in Dropped.
func Pick(reg *Registry, typeName string, fields []string) (*PickResult, error) {
	full, err := reg.Get(typeName)
	if err != nil {
		return nil, err
	}
	return PickFrom(full, fields), nil
}

// PickFrom is Pick against an already resolved descriptor.
func PickFrom(full SchemaDescriptor, fields []string) *PickResult {
	sub := SchemaDescriptor{
		ResourceType: full.ResourceType,
		Fields:       make(map[string]FieldInfo),
	}
	for _, name := range EssentialFields {
		if info, ok := full.Fields[name]; ok {
			sub.Fields[name] = info
		} else {
			sub.Fields[name] = essentialFieldInfo(name)
		}
	}

	var dropped []string
	seen := map[string]bool{}
	for _, name := range fields {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := sub.Fields[name]; ok {
			continue
		}
		info, ok := full.Fields[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		sub.Fields[name] = info
	}
	sort.Strings(dropped)
	return &PickResult{Descriptor: sub, Dropped: dropped}
}

// essentialFieldInfo is used when a descriptor does not declare one of the
// essential fields itself.
func essentialFieldInfo(name string) FieldInfo {
	switch name {
	case FieldCreatedAt, FieldUpdatedAt:
		return FieldInfo{Type: TypeDateTime}
	}
	return FieldInfo{Type: TypeString}
}

// Project returns a copy of resource that keeps only the essential fields and
// the requested ones. The input is not modified.
func Project(resource Resource, fields []string) (Resource, error) {
	allowed := make(map[string]bool, len(fields)+len(EssentialFields))
	for _, f := range EssentialFields {
		allowed[f] = true
	}
	for _, f := range fields {
		allowed[f] = true
	}

	out := make(Resource)
	for k, v := range resource {
		if !allowed[k] {
			continue
		}
		c, err := cloneValue(v, map[uintptr]bool{})
		if err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

// ValidateSubset builds the subset schema for fields and validates data
// against it.
func ValidateSubset(reg *Registry, typeName string, data map[string]interface{}, fields []string) (*ValidationResult, error) {
	picked, err := Pick(reg, typeName, fields)
	if err != nil {
		return nil, err
	}
	return ValidateAgainst(picked.Descriptor, data), nil
}
