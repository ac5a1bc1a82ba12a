package modeling

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrComposition is returned when a bundle cannot be composed.
var ErrComposition = errors.New("bundle composition failed")

// Bundle types.
const (
	BundleDocument    = "document"
	BundleMessage     = "message"
	BundleTransaction = "transaction"
	BundleBatch       = "batch"
	BundleSearchset   = "searchset"
	BundleCollection  = "collection"
)

var validBundleTypes = map[string]bool{
	BundleDocument:    true,
	BundleMessage:     true,
	BundleTransaction: true,
	BundleBatch:       true,
	BundleSearchset:   true,
	BundleCollection:  true,
}

// Entry priority bounds.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// BundleEntry is one resource in a bundle with its metadata.
type BundleEntry struct {
	Resource Resource `json:"resource"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags"`
	Priority int      `json:"priority"`
}

// Bundle is an ordered collection of resources.
type Bundle struct {
	ID          string        `json:"id"`
	BundleType  string        `json:"bundle_type"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Entries     []BundleEntry `json:"entries"`
}

// EntryInput is one entry handed to Compose. When Resource is set it is used
// as-is; otherwise Data is instantiated as ResourceType (or Data's own
// resource_type). A zero Priority means DefaultPriority.
type EntryInput struct {
	Resource     Resource               `json:"resource,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	Priority     int                    `json:"priority,omitempty"`
}

// ComposeOptions carries bundle-level attributes.
type ComposeOptions struct {
	BundleType  string
	Title       string
	Description string
}

// Compose assembles entries into a bundle. Raw entries are instantiated
// first; any entry that fails aborts the whole composition.
func Compose(reg *Registry, entries []EntryInput, opts ComposeOptions) (*Bundle, error) {
	bt := opts.BundleType
	if bt == "" {
		bt = BundleCollection
	}
	if !validBundleTypes[bt] {
		return nil, fmt.Errorf("%w: unsupported bundle type %q", ErrComposition, bt)
	}

	b := &Bundle{
		ID:          NewID(),
		BundleType:  bt,
		Title:       opts.Title,
		Description: opts.Description,
		CreatedAt:   Clock(),
		Entries:     make([]BundleEntry, 0, len(entries)),
	}

	for i, in := range entries {
		entry, err := composeEntry(reg, in)
		if err != nil {
			return nil, fmt.Errorf("%w: entry[%d]: %w", ErrComposition, i, err)
		}
		b.Entries = append(b.Entries, entry)
	}
	return b, nil
}

func composeEntry(reg *Registry, in EntryInput) (BundleEntry, error) {
	priority := in.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < MinPriority || priority > MaxPriority {
		return BundleEntry{}, fmt.Errorf("priority %d outside %d..%d", priority, MinPriority, MaxPriority)
	}

	tags := append([]string{}, in.Tags...)
	entry := BundleEntry{Title: in.Title, Tags: tags, Priority: priority}

	if in.Resource != nil {
		r, err := in.Resource.Clone()
		if err != nil {
			return BundleEntry{}, err
		}
		entry.Resource = r
		return entry, nil
	}

	typeName := in.ResourceType
	if typeName == "" {
		typeName, _ = in.Data[FieldResourceType].(string)
	}
	if typeName == "" {
		return BundleEntry{}, fmt.Errorf("no resource and no resource_type given")
	}
	inst, err := Instantiate(reg, typeName, in.Data)
	if err != nil {
		return BundleEntry{}, err
	}
	if !inst.Validation.Valid {
		return BundleEntry{}, fmt.Errorf("%s is invalid: %s", typeName, strings.Join(inst.Validation.Issues, "; "))
	}
	entry.Resource = inst.Resource
	return entry, nil
}

// ValidateBundle checks every entry's resource, title uniqueness, id
// uniqueness and priority range. All checks always run.
func ValidateBundle(reg *Registry, b *Bundle) *ValidationResult {
	vr := &ValidationResult{Valid: true, Issues: []string{}}
	if b == nil {
		vr.addIssue("bundle is nil")
		return vr
	}
	if b.BundleType != "" && !validBundleTypes[b.BundleType] {
		vr.addIssue("bundle_type: unsupported value %q", b.BundleType)
	}

	for i, e := range b.Entries {
		if e.Resource == nil {
			vr.addIssue("entries[%d]: resource is missing", i)
			continue
		}
		rt := e.Resource.Type()
		if rt == "" {
			vr.addIssue("entries[%d]: resource has no resource_type", i)
			continue
		}
		res, err := Validate(reg, rt, e.Resource)
		if err != nil {
			vr.addIssue("entries[%d]: %v", i, err)
			continue
		}
		for _, issue := range res.Issues {
			vr.addIssue("entries[%d] (%s): %s", i, rt, issue)
		}
	}

	titles := map[string][]int{}
	for i, e := range b.Entries {
		if e.Title != "" {
			titles[e.Title] = append(titles[e.Title], i)
		}
	}
	for _, t := range sortedGroupKeys(titles) {
		if idx := titles[t]; len(idx) > 1 {
			vr.addIssue("duplicate title %q in entries %v", t, idx)
		}
	}

	ids := map[string][]int{}
	for i, e := range b.Entries {
		if id := e.Resource.ID(); id != "" {
			ids[id] = append(ids[id], i)
		}
	}
	for _, id := range sortedGroupKeys(ids) {
		if idx := ids[id]; len(idx) > 1 {
			vr.addIssue("duplicate resource id %q in entries %v", id, idx)
		}
	}

	for i, e := range b.Entries {
		if e.Priority < MinPriority || e.Priority > MaxPriority {
			vr.addIssue("entries[%d]: priority %d outside %d..%d", i, e.Priority, MinPriority, MaxPriority)
		}
	}
	return vr
}

func sortedGroupKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EntriesByTag returns the entries carrying tag, in bundle order.
func (b *Bundle) EntriesByTag(tag string) []BundleEntry {
	var out []BundleEntry
	for _, e := range b.Entries {
		for _, t := range e.Tags {
			if t == tag {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ResourcesByType returns the resources of the given type, in bundle order.
func (b *Bundle) ResourcesByType(resourceType string) []Resource {
	var out []Resource
	for _, e := range b.Entries {
		if e.Resource.Type() == resourceType {
			out = append(out, e.Resource)
		}
	}
	return out
}

// SortedByPriority returns the entries ordered by descending priority. Equal
// priorities keep bundle order.
func (b *Bundle) SortedByPriority() []BundleEntry {
	out := append([]BundleEntry{}, b.Entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// ToFHIR renders the bundle as a FHIR Bundle resource map.
func (b *Bundle) ToFHIR() map[string]interface{} {
	entries := make([]interface{}, 0, len(b.Entries))
	for _, e := range b.Entries {
		entry := map[string]interface{}{
			"resource": map[string]interface{}(e.Resource),
		}
		if ref, err := ReferenceOf(e.Resource); err == nil {
			entry["fullUrl"] = ref
		}
		entries = append(entries, entry)
	}
	total := len(entries)
	result := map[string]interface{}{
		"resourceType": "Bundle",
		"id":           b.ID,
		"type":         b.BundleType,
		"timestamp":    b.CreatedAt.UTC().Format(time.RFC3339),
		"total":        total,
		"entry":        entries,
	}
	if b.Title != "" {
		result["meta"] = map[string]interface{}{
			"tag": []interface{}{map[string]interface{}{"display": b.Title}},
		}
	}
	return result
}
