package modeling

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// Diff entry types.
const (
	DiffAdded    = "added"
	DiffRemoved  = "removed"
	DiffModified = "modified"
)

// DiffEntry represents a single difference between two resource snapshots.
type DiffEntry struct {
	Type   string      `json:"type"`
	Path   string      `json:"path"`
	Value  interface{} `json:"value"`
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// MarshalJSON writes only the keys that belong to the entry type. A null
// value stays in the output as an explicit null.
func (d DiffEntry) MarshalJSON() ([]byte, error) {
	if d.Type == DiffModified {
		return json.Marshal(struct {
			Type   string      `json:"type"`
			Path   string      `json:"path"`
			Before interface{} `json:"before"`
			After  interface{} `json:"after"`
		}{d.Type, d.Path, d.Before, d.After})
	}
	return json.Marshal(struct {
		Type  string      `json:"type"`
		Path  string      `json:"path"`
		Value interface{} `json:"value"`
	}{d.Type, d.Path, d.Value})
}

// Diff compares two resources recursively. Nested maps are walked key by key;
// any other pair of values is compared with deep equality. Keys are visited in
// sorted order so the output is reproducible. Neither input is modified.
func Diff(before, after map[string]interface{}) []DiffEntry {
	diffs := []DiffEntry{}
	diffMaps("", before, after, &diffs, map[[2]uintptr]bool{})
	return diffs
}

// diffMaps appends the differences between two maps. stack holds the map
// pairs currently being compared so self-referential inputs terminate.
func diffMaps(prefix string, before, after map[string]interface{}, diffs *[]DiffEntry, stack map[[2]uintptr]bool) {
	pb, okB := identity(before)
	pa, okA := identity(after)
	if okB && okA {
		if pb == pa {
			return
		}
		pair := [2]uintptr{pb, pa}
		if stack[pair] {
			return
		}
		stack[pair] = true
		defer delete(stack, pair)
	}

	keys := make(map[string]bool, len(before)+len(after))
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		path := joinPath(prefix, key)

		oldVal, inOld := before[key]
		newVal, inNew := after[key]

		if !inOld {
			*diffs = append(*diffs, DiffEntry{Type: DiffAdded, Path: path, Value: newVal})
			continue
		}
		if !inNew {
			*diffs = append(*diffs, DiffEntry{Type: DiffRemoved, Path: path, Value: oldVal})
			continue
		}

		oldMap, oldIsMap := asMap(oldVal)
		newMap, newIsMap := asMap(newVal)
		if oldIsMap && newIsMap {
			diffMaps(path, oldMap, newMap, diffs, stack)
			continue
		}

		if !valuesEqual(oldVal, newVal) {
			*diffs = append(*diffs, DiffEntry{Type: DiffModified, Path: path, Before: oldVal, After: newVal})
		}
	}
}

// DiffSummary counts diff entries by type.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Summarize counts the entries of each type.
func Summarize(diffs []DiffEntry) DiffSummary {
	var s DiffSummary
	for _, d := range diffs {
		switch d.Type {
		case DiffAdded:
			s.Added++
		case DiffRemoved:
			s.Removed++
		case DiffModified:
			s.Modified++
		}
	}
	return s
}

// DiffToParameters converts diff entries to a FHIR Parameters resource, one
// "diff" parameter per entry.
func DiffToParameters(diffs []DiffEntry) map[string]interface{} {
	params := make([]interface{}, 0, len(diffs))
	for _, d := range diffs {
		parts := []interface{}{
			map[string]interface{}{"name": "type", "valueString": d.Type},
			map[string]interface{}{"name": "path", "valueString": d.Path},
		}
		if d.Value != nil {
			parts = append(parts, map[string]interface{}{"name": "value", "valueString": fmt.Sprintf("%v", d.Value)})
		}
		if d.Before != nil {
			parts = append(parts, map[string]interface{}{"name": "before", "valueString": fmt.Sprintf("%v", d.Before)})
		}
		if d.After != nil {
			parts = append(parts, map[string]interface{}{"name": "after", "valueString": fmt.Sprintf("%v", d.After)})
		}
		params = append(params, map[string]interface{}{
			"name": "diff",
			"part": parts,
		})
	}
	return map[string]interface{}{
		"resourceType": "Parameters",
		"parameter":    params,
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
