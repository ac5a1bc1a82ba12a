package modeling

import (
	engine "github.com/hacs/hacs/internal/platform/modeling"
)

// ModelDescription is the describe_model payload.
type ModelDescription struct {
	ResourceType    string                      `json:"resource_type"`
	Fields          map[string]engine.FieldInfo `json:"fields"`
	FieldNames      []string                    `json:"field_names"`
	RequiredFields  []string                    `json:"required_fields"`
	ReferenceFields []string                    `json:"reference_fields"`
}

func describe(d engine.SchemaDescriptor) *ModelDescription {
	md := &ModelDescription{
		ResourceType:    d.ResourceType,
		Fields:          d.Fields,
		FieldNames:      d.FieldNames(),
		RequiredFields:  []string{},
		ReferenceFields: []string{},
	}
	for _, name := range md.FieldNames {
		info := d.Fields[name]
		if info.Required {
			md.RequiredFields = append(md.RequiredFields, name)
		}
		if info.Type == engine.TypeReference || info.Type == "list[reference]" {
			md.ReferenceFields = append(md.ReferenceFields, name)
		}
	}
	return md
}

// -- Requests --

type DescribeModelsRequest struct {
	ResourceTypes []string `json:"resource_types"`
}

type ResourceRequest struct {
	ResourceType string                 `json:"resource_type"`
	Data         map[string]interface{} `json:"data"`
}

type ResourceBatchRequest struct {
	Items []ResourceRequest `json:"items"`
}

type DiffRequest struct {
	Before map[string]interface{} `json:"before"`
	After  map[string]interface{} `json:"after"`
}

type DiffBatchRequest struct {
	Pairs []DiffRequest `json:"pairs"`
}

type PickRequest struct {
	ResourceType string   `json:"resource_type"`
	Fields       []string `json:"fields"`
}

type PickBatchRequest struct {
	Items []PickRequest `json:"items"`
}

type SubsetRequest struct {
	ResourceType string                 `json:"resource_type"`
	Data         map[string]interface{} `json:"data"`
	Fields       []string               `json:"fields"`
}

type SubsetBatchRequest struct {
	Items []SubsetRequest `json:"items"`
}

type ProjectRequest struct {
	Resource map[string]interface{} `json:"resource"`
	Fields   []string               `json:"fields"`
}

type ProjectBatchRequest struct {
	Items []ProjectRequest `json:"items"`
}

type PlanRequest struct {
	Types map[string][]string `json:"types"`
}

type RelationsRequest struct {
	Resource map[string]interface{} `json:"resource"`
}

type RelationsBatchRequest struct {
	Resources []map[string]interface{} `json:"resources"`
}

// MakeReferenceRequest takes either a resource or an explicit type and id.
type MakeReferenceRequest struct {
	Resource     map[string]interface{} `json:"resource,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ID           string                 `json:"id,omitempty"`
}

type MakeReferenceBatchRequest struct {
	Items []MakeReferenceRequest `json:"items"`
}

type SetReferenceRequest struct {
	Resource  map[string]interface{} `json:"resource"`
	Path      string                 `json:"path"`
	Reference string                 `json:"reference"`
}

type SetReferenceBatchRequest struct {
	Items []SetReferenceRequest `json:"items"`
}

type ExtractReferencesRequest struct {
	Resource map[string]interface{} `json:"resource"`
	Path     string                 `json:"path"`
}

type ExtractReferencesBatchRequest struct {
	Items []ExtractReferencesRequest `json:"items"`
}

// FollowGraphRequest leaves MaxDepth nil to use the configured limit.
type FollowGraphRequest struct {
	Start    map[string]interface{}   `json:"start"`
	Links    []engine.GraphLink       `json:"links"`
	Pool     []map[string]interface{} `json:"pool"`
	MaxDepth *int                     `json:"max_depth,omitempty"`
}

type FollowGraphBatchRequest struct {
	Items []FollowGraphRequest `json:"items"`
}

type ComposeRequest struct {
	BundleType  string              `json:"bundle_type"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Entries     []engine.EntryInput `json:"entries"`
}

type ComposeBatchRequest struct {
	Items []ComposeRequest `json:"items"`
}

type ValidateBundlesRequest struct {
	Bundles []engine.Bundle `json:"bundles"`
}

// -- Responses --

type ValidationData struct {
	ResourceType string   `json:"resource_type"`
	Valid        bool     `json:"valid"`
	Issues       []string `json:"issues"`
}

type InstantiateData struct {
	ResourceType string          `json:"resource_type"`
	Valid        bool            `json:"valid"`
	Issues       []string        `json:"issues"`
	Resource     engine.Resource `json:"resource,omitempty"`
}

type DiffData struct {
	Changes []engine.DiffEntry `json:"changes"`
	Summary engine.DiffSummary `json:"summary"`
}

type PlanData struct {
	Schemas map[string]engine.SchemaDescriptor `json:"schemas"`
	Dropped map[string][]string                `json:"dropped,omitempty"`
}

func issuesOrEmpty(issues []string) []string {
	if issues == nil {
		return []string{}
	}
	return issues
}
