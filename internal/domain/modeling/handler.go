package modeling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hacs/hacs/internal/platform/auth"
	engine "github.com/hacs/hacs/internal/platform/modeling"
	"github.com/hacs/hacs/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/models", h.ListModels)
	api.GET("/models/:type", h.DescribeModel)
	api.GET("/models/:type/fields", h.ListModelFields)
	api.POST("/models/describe", h.DescribeModels)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/models", h.RegisterModel)

	api.POST("/resources/instantiate", h.Instantiate)
	api.POST("/resources/instantiate/batch", h.InstantiateBatch)
	api.POST("/resources/validate", h.Validate)
	api.POST("/resources/validate/batch", h.ValidateBatch)
	api.POST("/resources/diff", h.Diff)
	api.POST("/resources/diff/batch", h.DiffBatch)
	api.POST("/resources/project", h.Project)
	api.POST("/resources/project/batch", h.ProjectBatch)
	api.POST("/resources/relations", h.Relations)
	api.POST("/resources/relations/batch", h.RelationsBatch)

	api.POST("/schemas/pick", h.Pick)
	api.POST("/schemas/pick/batch", h.PickBatch)
	api.POST("/schemas/validate-subset", h.ValidateSubset)
	api.POST("/schemas/validate-subset/batch", h.ValidateSubsetBatch)
	api.POST("/schemas/plan", h.PlanBundleSchema)

	api.POST("/references/make", h.MakeReference)
	api.POST("/references/make/batch", h.MakeReferenceBatch)
	api.POST("/references/set", h.SetReference)
	api.POST("/references/set/batch", h.SetReferenceBatch)
	api.POST("/references/extract", h.ExtractReferences)
	api.POST("/references/extract/batch", h.ExtractReferencesBatch)

	api.POST("/graph/follow", h.FollowGraph)
	api.POST("/graph/follow/batch", h.FollowGraphBatch)

	api.POST("/bundles/compose", h.ComposeBundle)
	api.POST("/bundles/compose/batch", h.ComposeBundleBatch)
	api.POST("/bundles/validate", h.ValidateBundle)
	api.POST("/bundles/validate/batch", h.ValidateBundleBatch)
}

// respond maps an envelope to a status: unknown types are 404, other
// operation failures 422. Batch envelopes always succeed.
func respond(c echo.Context, r engine.Result) error {
	status := http.StatusOK
	if !r.Success {
		status = http.StatusUnprocessableEntity
		if errors.Is(r.Err(), engine.ErrUnknownType) {
			status = http.StatusNotFound
		}
	}
	return c.JSON(status, r)
}

// Renderings selectable with ?format= on the endpoints that support them.
const (
	FormatOutcome    = "outcome"
	FormatParameters = "parameters"
	FormatFHIR       = "fhir"
)

// render swaps a successful envelope's data for its FHIR form when the
// request asks for one.
func render(c echo.Context, r engine.Result) engine.Result {
	if !r.Success {
		return r
	}
	switch data := r.Data.(type) {
	case *ValidationData:
		if c.QueryParam("format") == FormatOutcome {
			vr := engine.ValidationResult{Valid: data.Valid, Issues: data.Issues}
			r.Data = vr.ToOperationOutcome()
		}
	case *DiffData:
		if c.QueryParam("format") == FormatParameters {
			r.Data = engine.DiffToParameters(data.Changes)
		}
	case *engine.Bundle:
		if c.QueryParam("format") == FormatFHIR {
			r.Data = data.ToFHIR()
		}
	}
	return r
}

func bindAndRun[T any](c echo.Context, run func(T) engine.Result) error {
	var req T
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, engine.Fail("invalid request body", err))
	}
	return respond(c, run(req))
}

// -- Models --

func (h *Handler) ListModels(c echo.Context) error {
	return respond(c, h.svc.ListModels(pagination.FromContext(c)))
}

func (h *Handler) DescribeModel(c echo.Context) error {
	return respond(c, h.svc.DescribeModel(c.Param("type")))
}

func (h *Handler) ListModelFields(c echo.Context) error {
	return respond(c, h.svc.ListModelFields(c.Param("type")))
}

func (h *Handler) DescribeModels(c echo.Context) error {
	return bindAndRun(c, func(req DescribeModelsRequest) engine.Result {
		return h.svc.DescribeModels(req.ResourceTypes)
	})
}

func (h *Handler) RegisterModel(c echo.Context) error {
	return bindAndRun(c, func(d engine.SchemaDescriptor) engine.Result {
		return h.svc.RegisterModel(c.Request().Context(), d)
	})
}

// -- Resources --

func (h *Handler) Instantiate(c echo.Context) error {
	return bindAndRun(c, func(req ResourceRequest) engine.Result {
		return h.svc.InstantiateResource(req.ResourceType, req.Data)
	})
}

func (h *Handler) InstantiateBatch(c echo.Context) error {
	return bindAndRun(c, func(req ResourceBatchRequest) engine.Result {
		return h.svc.InstantiateResources(req.Items)
	})
}

func (h *Handler) Validate(c echo.Context) error {
	return bindAndRun(c, func(req ResourceRequest) engine.Result {
		return render(c, h.svc.ValidateResource(req.ResourceType, req.Data))
	})
}

func (h *Handler) ValidateBatch(c echo.Context) error {
	return bindAndRun(c, func(req ResourceBatchRequest) engine.Result {
		return h.svc.ValidateResources(req.Items)
	})
}

func (h *Handler) Diff(c echo.Context) error {
	return bindAndRun(c, func(req DiffRequest) engine.Result {
		return render(c, h.svc.DiffResources(req.Before, req.After))
	})
}

func (h *Handler) DiffBatch(c echo.Context) error {
	return bindAndRun(c, func(req DiffBatchRequest) engine.Result {
		return h.svc.DiffPairs(req.Pairs)
	})
}

func (h *Handler) Project(c echo.Context) error {
	return bindAndRun(c, func(req ProjectRequest) engine.Result {
		return h.svc.ProjectResource(req.Resource, req.Fields)
	})
}

func (h *Handler) ProjectBatch(c echo.Context) error {
	return bindAndRun(c, func(req ProjectBatchRequest) engine.Result {
		return h.svc.ProjectResources(req.Items)
	})
}

func (h *Handler) Relations(c echo.Context) error {
	return bindAndRun(c, func(req RelationsRequest) engine.Result {
		return h.svc.ListRelations(req.Resource)
	})
}

func (h *Handler) RelationsBatch(c echo.Context) error {
	return bindAndRun(c, func(req RelationsBatchRequest) engine.Result {
		return h.svc.ListRelationsBatch(req.Resources)
	})
}

// -- Schemas --

func (h *Handler) Pick(c echo.Context) error {
	return bindAndRun(c, func(req PickRequest) engine.Result {
		return h.svc.PickFields(req.ResourceType, req.Fields)
	})
}

func (h *Handler) PickBatch(c echo.Context) error {
	return bindAndRun(c, func(req PickBatchRequest) engine.Result {
		return h.svc.PickFieldsBatch(req.Items)
	})
}

func (h *Handler) ValidateSubset(c echo.Context) error {
	return bindAndRun(c, func(req SubsetRequest) engine.Result {
		return render(c, h.svc.ValidateSubset(req.ResourceType, req.Data, req.Fields))
	})
}

func (h *Handler) ValidateSubsetBatch(c echo.Context) error {
	return bindAndRun(c, func(req SubsetBatchRequest) engine.Result {
		return h.svc.ValidateSubsets(req.Items)
	})
}

func (h *Handler) PlanBundleSchema(c echo.Context) error {
	return bindAndRun(c, func(req PlanRequest) engine.Result {
		return h.svc.PlanBundleSchema(req.Types)
	})
}

// -- References --

func (h *Handler) MakeReference(c echo.Context) error {
	return bindAndRun(c, h.svc.MakeReference)
}

func (h *Handler) MakeReferenceBatch(c echo.Context) error {
	return bindAndRun(c, func(req MakeReferenceBatchRequest) engine.Result {
		return h.svc.MakeReferences(req.Items)
	})
}

func (h *Handler) SetReference(c echo.Context) error {
	return bindAndRun(c, func(req SetReferenceRequest) engine.Result {
		return h.svc.SetReference(req.Resource, req.Path, req.Reference)
	})
}

func (h *Handler) SetReferenceBatch(c echo.Context) error {
	return bindAndRun(c, func(req SetReferenceBatchRequest) engine.Result {
		return h.svc.SetReferences(req.Items)
	})
}

func (h *Handler) ExtractReferences(c echo.Context) error {
	return bindAndRun(c, func(req ExtractReferencesRequest) engine.Result {
		return h.svc.ExtractReferences(req.Resource, req.Path)
	})
}

func (h *Handler) ExtractReferencesBatch(c echo.Context) error {
	return bindAndRun(c, func(req ExtractReferencesBatchRequest) engine.Result {
		return h.svc.ExtractReferencesBatch(req.Items)
	})
}

// -- Graph --

func (h *Handler) FollowGraph(c echo.Context) error {
	return bindAndRun(c, h.svc.FollowGraph)
}

func (h *Handler) FollowGraphBatch(c echo.Context) error {
	return bindAndRun(c, func(req FollowGraphBatchRequest) engine.Result {
		return h.svc.FollowGraphs(req.Items)
	})
}

// -- Bundles --

func (h *Handler) ComposeBundle(c echo.Context) error {
	return bindAndRun(c, func(req ComposeRequest) engine.Result {
		return render(c, h.svc.ComposeBundle(req))
	})
}

func (h *Handler) ComposeBundleBatch(c echo.Context) error {
	return bindAndRun(c, func(req ComposeBatchRequest) engine.Result {
		return h.svc.ComposeBundles(req.Items)
	})
}

func (h *Handler) ValidateBundle(c echo.Context) error {
	return bindAndRun(c, func(b engine.Bundle) engine.Result {
		return render(c, h.svc.ValidateBundle(&b))
	})
}

func (h *Handler) ValidateBundleBatch(c echo.Context) error {
	return bindAndRun(c, func(req ValidateBundlesRequest) engine.Result {
		return h.svc.ValidateBundles(req.Bundles)
	})
}
