package openapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hacs/hacs/internal/platform/modeling"
)

// Generator builds an OpenAPI 3.0 document from the model registry. Schemas
// are rebuilt on every request so runtime registrations show up.
type Generator struct {
	reg     *modeling.Registry
	version string
	baseURL string
}

// NewGenerator creates a new OpenAPI spec generator.
func NewGenerator(reg *modeling.Registry, version, baseURL string) *Generator {
	return &Generator{reg: reg, version: version, baseURL: baseURL}
}

type operation struct {
	method  string
	path    string
	id      string
	summary string
	tag     string
	batch   bool
}

var operations = []operation{
	{http.MethodGet, "/models", "listModels", "List registered resource types", "models", false},
	{http.MethodPost, "/models", "registerModel", "Register or replace a resource type (admin)", "models", false},
	{http.MethodGet, "/models/{type}", "describeModel", "Describe a resource type", "models", false},
	{http.MethodGet, "/models/{type}/fields", "listModelFields", "List the fields of a resource type", "models", false},
	{http.MethodPost, "/models/describe", "describeModels", "Describe several resource types", "models", true},
	{http.MethodPost, "/resources/instantiate", "instantiate", "Instantiate a resource", "resources", false},
	{http.MethodPost, "/resources/instantiate/batch", "instantiateBatch", "Instantiate several resources", "resources", true},
	{http.MethodPost, "/resources/validate", "validate", "Validate a resource", "resources", false},
	{http.MethodPost, "/resources/validate/batch", "validateBatch", "Validate several resources", "resources", true},
	{http.MethodPost, "/resources/diff", "diff", "Diff two resources", "resources", false},
	{http.MethodPost, "/resources/diff/batch", "diffBatch", "Diff several resource pairs", "resources", true},
	{http.MethodPost, "/resources/project", "project", "Project a resource onto a field subset", "resources", false},
	{http.MethodPost, "/resources/project/batch", "projectBatch", "Project several resources", "resources", true},
	{http.MethodPost, "/resources/relations", "relations", "List every reference inside a resource", "resources", false},
	{http.MethodPost, "/resources/relations/batch", "relationsBatch", "List references inside several resources", "resources", true},
	{http.MethodPost, "/schemas/pick", "pick", "Derive a subset schema", "schemas", false},
	{http.MethodPost, "/schemas/pick/batch", "pickBatch", "Derive several subset schemas", "schemas", true},
	{http.MethodPost, "/schemas/validate-subset", "validateSubset", "Validate against a subset schema", "schemas", false},
	{http.MethodPost, "/schemas/validate-subset/batch", "validateSubsetBatch", "Validate several resources against subsets", "schemas", true},
	{http.MethodPost, "/schemas/plan", "planBundleSchema", "Plan subset schemas for several types", "schemas", false},
	{http.MethodPost, "/references/make", "makeReference", "Build a Type/id reference", "references", false},
	{http.MethodPost, "/references/make/batch", "makeReferenceBatch", "Build several references", "references", true},
	{http.MethodPost, "/references/set", "setReference", "Write a reference at a path", "references", false},
	{http.MethodPost, "/references/set/batch", "setReferenceBatch", "Write references into several resources", "references", true},
	{http.MethodPost, "/references/extract", "extractReferences", "Read references at a path", "references", false},
	{http.MethodPost, "/references/extract/batch", "extractReferencesBatch", "Read references from several resources", "references", true},
	{http.MethodPost, "/graph/follow", "followGraph", "Traverse references from a start resource", "graph", false},
	{http.MethodPost, "/graph/follow/batch", "followGraphBatch", "Run several traversals", "graph", true},
	{http.MethodPost, "/bundles/compose", "composeBundle", "Compose a bundle", "bundles", false},
	{http.MethodPost, "/bundles/compose/batch", "composeBundleBatch", "Compose several bundles", "bundles", true},
	{http.MethodPost, "/bundles/validate", "validateBundle", "Validate a bundle", "bundles", false},
	{http.MethodPost, "/bundles/validate/batch", "validateBundleBatch", "Validate several bundles", "bundles", true},
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	for _, op := range operations {
		p := "/api/v1" + op.path
		item, _ := paths[p].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[p] = item
		}
		item[strings.ToLower(op.method)] = buildOperation(op)
	}

	spec := map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "HACS Modeling API",
			"version":     g.version,
			"description": "Resource modeling, validation and reference-graph operations",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": g.buildComponentSchemas(),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
	return spec
}

func buildOperation(op operation) map[string]interface{} {
	out := map[string]interface{}{
		"summary":     op.summary,
		"operationId": op.id,
		"tags":        []string{op.tag},
	}
	if strings.Contains(op.path, "{type}") {
		out["parameters"] = []map[string]interface{}{
			{"name": "type", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
		}
	}
	if op.method == http.MethodPost {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"type": "object"},
				},
			},
		}
	}
	responses := map[string]interface{}{
		"200": buildResponseWithSchema("Envelope", "#/components/schemas/Envelope"),
		"400": buildResponseWithSchema("Malformed request body", "#/components/schemas/Envelope"),
	}
	if !op.batch {
		responses["404"] = buildResponseWithSchema("Unknown resource type", "#/components/schemas/Envelope")
		responses["422"] = buildResponseWithSchema("Operation failed", "#/components/schemas/Envelope")
	}
	out["responses"] = responses
	return out
}

func buildResponseWithSchema(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": schemaRef},
			},
		},
	}
}

func (g *Generator) buildComponentSchemas() map[string]interface{} {
	schemas := map[string]interface{}{
		"Envelope":  buildEnvelopeSchema(),
		"Reference": buildReferenceSchema(),
	}
	for _, name := range g.reg.List() {
		d, err := g.reg.Get(name)
		if err != nil {
			continue
		}
		schemas[name] = buildResourceSchema(d)
	}
	return schemas
}

func buildEnvelopeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"success", "message"},
		"properties": map[string]interface{}{
			"success": map[string]string{"type": "boolean"},
			"message": map[string]string{"type": "string"},
			"data":    map[string]interface{}{},
			"error":   map[string]string{"type": "string"},
		},
	}
}

func buildReferenceSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"reference"},
		"properties": map[string]interface{}{
			"reference": map[string]interface{}{"type": "string", "pattern": "^[^/]+/.+$"},
			"display":   map[string]string{"type": "string"},
		},
	}
}

// buildResourceSchema converts a descriptor into an object schema.
func buildResourceSchema(d modeling.SchemaDescriptor) map[string]interface{} {
	props := make(map[string]interface{}, len(d.Fields))
	var required []string
	for _, name := range d.FieldNames() {
		info := d.Fields[name]
		prop := fieldSchema(info.Type)
		if info.Description != "" {
			prop["description"] = info.Description
		}
		props[name] = prop
		if info.Required {
			required = append(required, name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldSchema(fieldType string) map[string]interface{} {
	ft := strings.ToLower(strings.TrimSpace(fieldType))
	if strings.HasPrefix(ft, "list[") && strings.HasSuffix(ft, "]") {
		return map[string]interface{}{
			"type":  "array",
			"items": fieldSchema(ft[len("list[") : len(ft)-1]),
		}
	}
	switch ft {
	case modeling.TypeString, modeling.TypeInteger, modeling.TypeNumber, modeling.TypeBoolean, modeling.TypeObject:
		return map[string]interface{}{"type": ft}
	case modeling.TypeDate:
		return map[string]interface{}{"type": "string", "format": "date"}
	case modeling.TypeDateTime:
		return map[string]interface{}{"type": "string", "format": "date-time"}
	case modeling.TypeArray:
		return map[string]interface{}{"type": "array", "items": map[string]interface{}{}}
	case modeling.TypeReference:
		return map[string]interface{}{
			"oneOf": []map[string]interface{}{
				{"type": "string", "pattern": "^[^/]+/.+$"},
				{"$ref": "#/components/schemas/Reference"},
			},
		}
	}
	return map[string]interface{}{}
}

// RegisterRoutes registers the OpenAPI endpoint.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
