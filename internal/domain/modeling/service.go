package modeling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/hacs/hacs/internal/platform/metrics"
	engine "github.com/hacs/hacs/internal/platform/modeling"
	"github.com/hacs/hacs/pkg/pagination"
)

// DefaultMaxGraphDepth caps follow_graph when no limit is configured.
const DefaultMaxGraphDepth = 10

// Service exposes every modeling operation as a uniform envelope. Operation
// failures come back as Success=false; invalid inputs as Success=true with
// data.valid=false.
type Service struct {
	reg      *engine.Registry
	picks    *lru.Cache[string, *engine.PickResult]
	metrics  *metrics.Metrics
	store    SchemaStore
	logger   zerolog.Logger
	maxDepth int
}

func NewService(reg *engine.Registry, logger zerolog.Logger, pickCacheSize int) (*Service, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if pickCacheSize <= 0 {
		pickCacheSize = 256
	}
	cache, err := lru.New[string, *engine.PickResult](pickCacheSize)
	if err != nil {
		return nil, fmt.Errorf("pick cache: %w", err)
	}
	return &Service{
		reg:      reg,
		picks:    cache,
		logger:   logger.With().Str("component", "modeling").Logger(),
		maxDepth: DefaultMaxGraphDepth,
	}, nil
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
	m.SetRegisteredTypes(s.reg.Len())
}

// SetSchemaStore makes RegisterModel persist descriptors.
func (s *Service) SetSchemaStore(store SchemaStore) { s.store = store }

// SetMaxGraphDepth caps the depth of every traversal. Negative means no cap.
func (s *Service) SetMaxGraphDepth(n int) { s.maxDepth = n }

func (s *Service) Registry() *engine.Registry { return s.reg }

func (s *Service) observe(op, resourceType string, started time.Time, r engine.Result) engine.Result {
	s.metrics.ObserveOperation(op, started, r.Success)
	ev := s.logger.Debug()
	if !r.Success {
		ev = s.logger.Warn().Str("error", r.Error)
	}
	ev.Str("operation", op).
		Str("resource_type", resourceType).
		Dur("elapsed", time.Since(started)).
		Msg(r.Message)
	return r
}

func failure(op string, err error) engine.Result {
	return engine.Fail(fmt.Sprintf("%s failed: %v", op, err), err)
}

// -- Models --

func (s *Service) ListModels(p pagination.Params) engine.Result {
	started := time.Now()
	names := s.reg.List()
	start, end := p.Window(len(names))
	page := pagination.NewResponse(names[start:end], len(names), p)
	return s.observe("list_models", "", started, engine.OK(fmt.Sprintf("%d registered models", len(names)), page))
}

func (s *Service) describeModel(resourceType string) engine.Result {
	d, err := s.reg.Get(resourceType)
	if err != nil {
		return failure("describe_model", err)
	}
	return engine.OK("Described "+resourceType, describe(d))
}

func (s *Service) DescribeModel(resourceType string) engine.Result {
	started := time.Now()
	return s.observe("describe_model", resourceType, started, s.describeModel(resourceType))
}

func (s *Service) DescribeModels(resourceTypes []string) engine.Result {
	started := time.Now()
	br := engine.RunBatch(resourceTypes, func(_ int, rt string) engine.Result {
		return s.describeModel(rt)
	})
	return s.observe("describe_models", "", started, br.Envelope("describe_models"))
}

func (s *Service) ListModelFields(resourceType string) engine.Result {
	started := time.Now()
	names, err := s.reg.Fields(resourceType)
	if err != nil {
		return s.observe("list_model_fields", resourceType, started, failure("list_model_fields", err))
	}
	return s.observe("list_model_fields", resourceType, started,
		engine.OK(fmt.Sprintf("%s declares %d fields", resourceType, len(names)), names))
}

// RegisterModel adds or replaces a descriptor at runtime.
func (s *Service) RegisterModel(ctx context.Context, d engine.SchemaDescriptor) engine.Result {
	started := time.Now()
	if strings.TrimSpace(d.ResourceType) == "" {
		return s.observe("register_model", "", started,
			engine.Failf("register_model failed: resource_type is required"))
	}
	d = d.Clone()
	for name, info := range d.Fields {
		if strings.TrimSpace(name) == "" {
			return s.observe("register_model", d.ResourceType, started,
				engine.Failf("register_model failed: empty field name"))
		}
		if info.Type == "" {
			info.Type = engine.TypeAny
			d.Fields[name] = info
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, d); err != nil {
			return s.observe("register_model", d.ResourceType, started, failure("register_model", err))
		}
	}
	if err := s.reg.Register(d.ResourceType, d); err != nil {
		return s.observe("register_model", d.ResourceType, started, failure("register_model", err))
	}
	s.metrics.SetRegisteredTypes(s.reg.Len())
	stored, _ := s.reg.Get(d.ResourceType)
	return s.observe("register_model", d.ResourceType, started,
		engine.OK("Registered "+d.ResourceType, describe(stored)))
}

// -- Instantiate / validate --

func (s *Service) instantiate(req ResourceRequest) engine.Result {
	inst, err := engine.Instantiate(s.reg, req.ResourceType, req.Data)
	if err != nil {
		return failure("instantiate", err)
	}
	data := &InstantiateData{
		ResourceType: req.ResourceType,
		Valid:        inst.Validation.Valid,
		Issues:       issuesOrEmpty(inst.Validation.Issues),
		Resource:     inst.Resource,
	}
	if !data.Valid {
		return engine.OK(fmt.Sprintf("%s has %d validation issues", req.ResourceType, len(data.Issues)), data)
	}
	return engine.OK(fmt.Sprintf("Instantiated %s/%s", req.ResourceType, inst.Resource.ID()), data)
}

func (s *Service) InstantiateResource(resourceType string, data map[string]interface{}) engine.Result {
	started := time.Now()
	return s.observe("instantiate", resourceType, started, s.instantiate(ResourceRequest{ResourceType: resourceType, Data: data}))
}

func (s *Service) InstantiateResources(items []ResourceRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req ResourceRequest) engine.Result {
		return s.instantiate(req)
	})
	return s.observe("instantiate_resources", "", started, br.Envelope("instantiate_resources"))
}

func (s *Service) validate(req ResourceRequest) engine.Result {
	vr, err := engine.Validate(s.reg, req.ResourceType, req.Data)
	if err != nil {
		return failure("validate", err)
	}
	return validationResult(req.ResourceType, vr)
}

func validationResult(resourceType string, vr *engine.ValidationResult) engine.Result {
	data := &ValidationData{ResourceType: resourceType, Valid: vr.Valid, Issues: issuesOrEmpty(vr.Issues)}
	if vr.Valid {
		return engine.OK(resourceType+" is valid", data)
	}
	return engine.OK(fmt.Sprintf("%s is invalid: %d issues", resourceType, len(data.Issues)), data)
}

func (s *Service) ValidateResource(resourceType string, data map[string]interface{}) engine.Result {
	started := time.Now()
	return s.observe("validate", resourceType, started, s.validate(ResourceRequest{ResourceType: resourceType, Data: data}))
}

func (s *Service) ValidateResources(items []ResourceRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req ResourceRequest) engine.Result {
		return s.validate(req)
	})
	return s.observe("validate_resources", "", started, br.Envelope("validate_resources"))
}

// -- Subsets --

func pickKey(gen uint64, resourceType string, fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return strconv.FormatUint(gen, 10) + "|" + resourceType + "|" + strings.Join(sorted, ",")
}

// pick returns a private copy of the cached subset descriptor.
func (s *Service) pick(resourceType string, fields []string) (*engine.PickResult, error) {
	key := pickKey(s.reg.Generation(), resourceType, fields)
	if cached, ok := s.picks.Get(key); ok {
		return clonePick(cached), nil
	}
	pr, err := engine.Pick(s.reg, resourceType, fields)
	if err != nil {
		return nil, err
	}
	s.picks.Add(key, pr)
	return clonePick(pr), nil
}

func clonePick(pr *engine.PickResult) *engine.PickResult {
	return &engine.PickResult{
		Descriptor: pr.Descriptor.Clone(),
		Dropped:    append([]string(nil), pr.Dropped...),
	}
}

func (s *Service) pickFields(req PickRequest) engine.Result {
	pr, err := s.pick(req.ResourceType, req.Fields)
	if err != nil {
		return failure("pick", err)
	}
	msg := fmt.Sprintf("Picked %d fields of %s", len(pr.Descriptor.Fields), req.ResourceType)
	if len(pr.Dropped) > 0 {
		msg += fmt.Sprintf(" (dropped unknown: %s)", strings.Join(pr.Dropped, ", "))
	}
	return engine.OK(msg, pr)
}

func (s *Service) PickFields(resourceType string, fields []string) engine.Result {
	started := time.Now()
	return s.observe("pick", resourceType, started,
		s.pickFields(PickRequest{ResourceType: resourceType, Fields: fields}))
}

func (s *Service) PickFieldsBatch(items []PickRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req PickRequest) engine.Result {
		return s.pickFields(req)
	})
	return s.observe("pick_batch", "", started, br.Envelope("pick_batch"))
}

func (s *Service) validateSubset(req SubsetRequest) engine.Result {
	pr, err := s.pick(req.ResourceType, req.Fields)
	if err != nil {
		return failure("validate_subset", err)
	}
	return validationResult(req.ResourceType, engine.ValidateAgainst(pr.Descriptor, req.Data))
}

func (s *Service) ValidateSubset(resourceType string, data map[string]interface{}, fields []string) engine.Result {
	started := time.Now()
	return s.observe("validate_subset", resourceType, started,
		s.validateSubset(SubsetRequest{ResourceType: resourceType, Data: data, Fields: fields}))
}

func (s *Service) ValidateSubsets(items []SubsetRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req SubsetRequest) engine.Result {
		return s.validateSubset(req)
	})
	return s.observe("validate_subsets", "", started, br.Envelope("validate_subsets"))
}

func project(req ProjectRequest) engine.Result {
	out, err := engine.Project(req.Resource, req.Fields)
	if err != nil {
		return failure("project", err)
	}
	return engine.OK(fmt.Sprintf("Projected %d fields", len(out)), out)
}

func (s *Service) ProjectResource(resource map[string]interface{}, fields []string) engine.Result {
	started := time.Now()
	return s.observe("project", engine.Resource(resource).Type(), started, project(ProjectRequest{Resource: resource, Fields: fields}))
}

func (s *Service) ProjectResources(items []ProjectRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req ProjectRequest) engine.Result {
		return project(req)
	})
	return s.observe("project_resources", "", started, br.Envelope("project_resources"))
}

// PlanBundleSchema picks a subset descriptor per type. An unknown type fails
// the plan; unknown fields are reported in Dropped.
func (s *Service) PlanBundleSchema(types map[string][]string) engine.Result {
	started := time.Now()
	plan := &PlanData{
		Schemas: make(map[string]engine.SchemaDescriptor, len(types)),
		Dropped: map[string][]string{},
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pr, err := s.pick(name, types[name])
		if err != nil {
			return s.observe("plan_bundle_schema", name, started, failure("plan_bundle_schema", err))
		}
		plan.Schemas[name] = pr.Descriptor
		if len(pr.Dropped) > 0 {
			plan.Dropped[name] = pr.Dropped
		}
	}
	return s.observe("plan_bundle_schema", "", started,
		engine.OK(fmt.Sprintf("Planned %d resource schemas", len(plan.Schemas)), plan))
}

// -- Diff --

func (s *Service) diff(req DiffRequest) engine.Result {
	changes := engine.Diff(req.Before, req.After)
	s.metrics.ObserveDiff(len(changes))
	return engine.OK(fmt.Sprintf("%d changes", len(changes)), &DiffData{
		Changes: changes,
		Summary: engine.Summarize(changes),
	})
}

func (s *Service) DiffResources(before, after map[string]interface{}) engine.Result {
	started := time.Now()
	return s.observe("diff", engine.Resource(after).Type(), started, s.diff(DiffRequest{Before: before, After: after}))
}

func (s *Service) DiffPairs(pairs []DiffRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(pairs, func(_ int, req DiffRequest) engine.Result {
		return s.diff(req)
	})
	return s.observe("diff_pairs", "", started, br.Envelope("diff_pairs"))
}

// -- References --

// ListRelations returns every reference inside resource. Reference-typed
// fields are recognised when the resource's type is registered. A nil
// resource is a failure.
func (s *Service) ListRelations(resource map[string]interface{}) engine.Result {
	started := time.Now()
	return s.observe("list_relations", engine.Resource(resource).Type(), started, s.listRelations(resource))
}

func (s *Service) ListRelationsBatch(resources []map[string]interface{}) engine.Result {
	started := time.Now()
	br := engine.RunBatch(resources, func(_ int, r map[string]interface{}) engine.Result {
		return s.listRelations(r)
	})
	return s.observe("list_relations_batch", "", started, br.Envelope("list_relations_batch"))
}

func (s *Service) listRelations(resource map[string]interface{}) engine.Result {
	if resource == nil {
		return engine.Failf("list_relations failed: resource is required")
	}
	var d *engine.SchemaDescriptor
	if desc, err := s.reg.Get(engine.Resource(resource).Type()); err == nil {
		d = &desc
	}
	rels := engine.ListRelations(resource, d)
	return engine.OK(fmt.Sprintf("%d relations", len(rels)), rels)
}

func makeReference(req MakeReferenceRequest) engine.Result {
	var (
		ref string
		err error
	)
	if req.Resource != nil {
		ref, err = engine.ReferenceOf(req.Resource)
	} else {
		ref, err = engine.MakeReference(req.ResourceType, req.ID)
	}
	if err != nil {
		return failure("make_reference", err)
	}
	return engine.OK("Reference "+ref, ref)
}

func (s *Service) MakeReference(req MakeReferenceRequest) engine.Result {
	started := time.Now()
	rt := req.ResourceType
	if req.Resource != nil {
		rt = engine.Resource(req.Resource).Type()
	}
	return s.observe("make_reference", rt, started, makeReference(req))
}

func (s *Service) MakeReferences(items []MakeReferenceRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req MakeReferenceRequest) engine.Result {
		return makeReference(req)
	})
	return s.observe("make_references", "", started, br.Envelope("make_references"))
}

func setReference(req SetReferenceRequest) engine.Result {
	out, err := engine.SetReference(req.Resource, req.Path, req.Reference)
	if err != nil {
		return failure("set_reference", err)
	}
	return engine.OK(fmt.Sprintf("Set %s = %s", req.Path, req.Reference), out)
}

func (s *Service) SetReference(resource map[string]interface{}, path, reference string) engine.Result {
	started := time.Now()
	return s.observe("set_reference", engine.Resource(resource).Type(), started,
		setReference(SetReferenceRequest{Resource: resource, Path: path, Reference: reference}))
}

func (s *Service) SetReferences(items []SetReferenceRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req SetReferenceRequest) engine.Result {
		return setReference(req)
	})
	return s.observe("set_references", "", started, br.Envelope("set_references"))
}

func extractReferences(req ExtractReferencesRequest) engine.Result {
	refs := engine.ExtractReferences(req.Resource, req.Path)
	return engine.OK(fmt.Sprintf("%d references at %s", len(refs), req.Path), refs)
}

func (s *Service) ExtractReferences(resource map[string]interface{}, path string) engine.Result {
	started := time.Now()
	return s.observe("extract_references", engine.Resource(resource).Type(), started,
		extractReferences(ExtractReferencesRequest{Resource: resource, Path: path}))
}

func (s *Service) ExtractReferencesBatch(items []ExtractReferencesRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req ExtractReferencesRequest) engine.Result {
		return extractReferences(req)
	})
	return s.observe("extract_references_batch", "", started, br.Envelope("extract_references_batch"))
}

// -- Graph --

func (s *Service) effectiveDepth(requested *int) int {
	depth := s.maxDepth
	if requested != nil {
		depth = *requested
		if s.maxDepth >= 0 && depth > s.maxDepth {
			depth = s.maxDepth
		}
	}
	if depth < 0 {
		depth = 0
	}
	return depth
}

func (s *Service) followGraph(req FollowGraphRequest) engine.Result {
	res, err := engine.FollowGraph(req.Start, req.Links, req.Pool, s.effectiveDepth(req.MaxDepth))
	if err != nil {
		return failure("follow_graph", err)
	}
	s.metrics.ObserveGraph(len(res.Edges))
	return engine.OK(fmt.Sprintf("Traversed %s: %d edges, %d unresolved", res.Start, len(res.Edges), len(res.Unresolved)), res)
}

func (s *Service) FollowGraph(req FollowGraphRequest) engine.Result {
	started := time.Now()
	return s.observe("follow_graph", engine.Resource(req.Start).Type(), started, s.followGraph(req))
}

func (s *Service) FollowGraphs(items []FollowGraphRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req FollowGraphRequest) engine.Result {
		return s.followGraph(req)
	})
	return s.observe("follow_graphs", "", started, br.Envelope("follow_graphs"))
}

// -- Bundles --

func (s *Service) composeBundle(req ComposeRequest) engine.Result {
	b, err := engine.Compose(s.reg, req.Entries, engine.ComposeOptions{
		BundleType:  req.BundleType,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return failure("compose_bundle", err)
	}
	return engine.OK(fmt.Sprintf("Composed %s bundle with %d entries", b.BundleType, len(b.Entries)), b)
}

func (s *Service) ComposeBundle(req ComposeRequest) engine.Result {
	started := time.Now()
	return s.observe("compose_bundle", "", started, s.composeBundle(req))
}

// ComposeBundles composes each request independently. A failed bundle does
// not stop the rest.
func (s *Service) ComposeBundles(items []ComposeRequest) engine.Result {
	started := time.Now()
	br := engine.RunBatch(items, func(_ int, req ComposeRequest) engine.Result {
		return s.composeBundle(req)
	})
	return s.observe("compose_bundles", "", started, br.Envelope("compose_bundles"))
}

func (s *Service) validateBundle(b *engine.Bundle) engine.Result {
	vr := engine.ValidateBundle(s.reg, b)
	return validationResult("Bundle", vr)
}

func (s *Service) ValidateBundle(b *engine.Bundle) engine.Result {
	started := time.Now()
	if b == nil {
		return s.observe("validate_bundle", "Bundle", started,
			failure("validate_bundle", errors.New("bundle is required")))
	}
	return s.observe("validate_bundle", "Bundle", started, s.validateBundle(b))
}

func (s *Service) ValidateBundles(bundles []engine.Bundle) engine.Result {
	started := time.Now()
	br := engine.RunBatch(bundles, func(i int, _ engine.Bundle) engine.Result {
		return s.validateBundle(&bundles[i])
	})
	return s.observe("validate_bundles", "", started, br.Envelope("validate_bundles"))
}
