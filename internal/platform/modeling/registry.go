// Package modeling is a registry-driven engine for generic resources:
// instantiation and validation against registered descriptors, subset
// schemas, structural diffs, bundles, references and bounded graph walks.
package modeling

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned whenever a resource type is not registered.
var ErrUnknownType = errors.New("unknown resource type")

// FieldInfo describes a single field of a registered resource type.
type FieldInfo struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// SchemaDescriptor is the registered shape of one resource type.
type SchemaDescriptor struct {
	ResourceType string               `json:"resource_type" yaml:"resource_type"`
	Fields       map[string]FieldInfo `json:"fields" yaml:"fields"`
}

// Clone returns a deep copy of the descriptor.
func (d SchemaDescriptor) Clone() SchemaDescriptor {
	out := SchemaDescriptor{
		ResourceType: d.ResourceType,
		Fields:       make(map[string]FieldInfo, len(d.Fields)),
	}
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return out
}

// FieldNames returns the descriptor's field names in sorted order.
func (d SchemaDescriptor) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HasField reports whether the descriptor declares the named field.
func (d SchemaDescriptor) HasField(name string) bool {
	_, ok := d.Fields[name]
	return ok
}

// Registry maps resource type names to their descriptors. Reads take a shared
// lock; registration is single-writer.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]SchemaDescriptor
	generation  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]SchemaDescriptor)}
}

// Register stores a descriptor under typeName. A later registration of the
// same type overwrites the earlier one.
func (r *Registry) Register(typeName string, d SchemaDescriptor) error {
	if typeName == "" {
		return fmt.Errorf("register: type name is required")
	}
	d = d.Clone()
	d.ResourceType = typeName

	r.mu.Lock()
	r.descriptors[typeName] = d
	r.generation++
	r.mu.Unlock()
	return nil
}

// RegisterAll registers every descriptor under its own ResourceType while
// holding the write lock once.
func (r *Registry) RegisterAll(ds []SchemaDescriptor) error {
	for i, d := range ds {
		if d.ResourceType == "" {
			return fmt.Errorf("register: descriptor[%d] has no resource_type", i)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range ds {
		r.descriptors[d.ResourceType] = d.Clone()
	}
	r.generation++
	return nil
}

// Get returns the descriptor for typeName. Lookups are case-sensitive.
func (r *Registry) Get(typeName string) (SchemaDescriptor, error) {
	r.mu.RLock()
	d, ok := r.descriptors[typeName]
	r.mu.RUnlock()
	if !ok {
		return SchemaDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return d.Clone(), nil
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	_, ok := r.descriptors[typeName]
	r.mu.RUnlock()
	return ok
}

// List returns all registered type names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.descriptors))
	for k := range r.descriptors {
		names = append(names, k)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Generation increases on every registration. Caches of derived schemas key
// on it so that re-registration invalidates them.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Fields returns the sorted field names declared by typeName.
func (r *Registry) Fields(typeName string) ([]string, error) {
	d, err := r.Get(typeName)
	if err != nil {
		return nil, err
	}
	return d.FieldNames(), nil
}
