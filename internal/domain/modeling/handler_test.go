package modeling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacs/hacs/internal/platform/auth"
	"github.com/hacs/hacs/internal/platform/jsoncodec"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

// newTestServer mounts the handler under /api/v1. Roles come from the
// X-Test-Roles header.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.JSONSerializer = jsoncodec.Serializer{}
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if roles := c.Request().Header.Get("X-Test-Roles"); roles != "" {
				ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, strings.Split(roles, ","))
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	})
	NewHandler(newTestService(t)).RegisterRoutes(api)
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Code < 500 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestHandler_ListModels(t *testing.T) {
	e := newTestServer(t)
	rec, env := doRequest(t, e, http.MethodGet, "/api/v1/models?limit=2&offset=1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Len(t, env.Data["data"], 2)
	assert.EqualValues(t, 1, env.Data["offset"])
}

func TestHandler_DescribeModel(t *testing.T) {
	e := newTestServer(t)

	rec, env := doRequest(t, e, http.MethodGet, "/api/v1/models/Patient", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Patient", env.Data["resource_type"])

	rec, env = doRequest(t, e, http.MethodGet, "/api/v1/models/NotARealType", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "NotARealType")
}

func TestHandler_InstantiateStatuses(t *testing.T) {
	e := newTestServer(t)

	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/resources/instantiate",
		`{"resource_type":"Patient","data":{"full_name":"Ada"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, env.Data["valid"])
	resource := env.Data["resource"].(map[string]interface{})
	assert.NotEmpty(t, resource["id"])

	rec, env = doRequest(t, e, http.MethodPost, "/api/v1/resources/instantiate",
		`{"resource_type":"Patient","data":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code, "invalid data is a successful operation")
	assert.Equal(t, false, env.Data["valid"])

	rec, _ = doRequest(t, e, http.MethodPost, "/api/v1/resources/instantiate", `{"resource_type":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_OperationFailureIs422(t *testing.T) {
	e := newTestServer(t)
	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/references/set",
		`{"resource":{},"path":"subject","reference":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestHandler_BatchAlwaysOK(t *testing.T) {
	e := newTestServer(t)
	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/resources/validate/batch",
		`{"items":[{"resource_type":"Patient","data":{"full_name":"Ada"}},{"resource_type":"Nope","data":{}}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.EqualValues(t, 1, env.Data["failed"])
	assert.EqualValues(t, 1, env.Data["succeeded"])
}

func TestHandler_BatchRoutes(t *testing.T) {
	e := newTestServer(t)
	cases := []struct {
		path string
		body string
	}{
		{"/api/v1/schemas/pick/batch", `{"items":[{"resource_type":"Patient","fields":["gender"]},{"resource_type":"Nope","fields":[]}]}`},
		{"/api/v1/references/set/batch", `{"items":[{"resource":{},"path":"subject","reference":"Patient/p1"},{"resource":{},"path":"subject","reference":"nope"}]}`},
		{"/api/v1/resources/relations/batch", `{"resources":[{"subject":{"reference":"Patient/p1"}},null]}`},
		{"/api/v1/bundles/compose/batch", `{"items":[{"entries":[{"resource_type":"Organization","data":{"name":"Acme"}}]},{"entries":[{"resource_type":"Nope","data":{}}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec, env := doRequest(t, e, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, env.Success)
			assert.EqualValues(t, 2, env.Data["total"])
			assert.EqualValues(t, 1, env.Data["succeeded"])
			assert.EqualValues(t, 1, env.Data["failed"])
		})
	}
}

func TestHandler_FollowGraph(t *testing.T) {
	e := newTestServer(t)
	body := `{
		"start": {"resource_type":"Encounter","id":"e1","subject":"Patient/p1"},
		"links": [{"path":"subject"}],
		"pool": [],
		"max_depth": 1
	}`
	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/graph/follow", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"Patient/p1"}, env.Data["unresolved"])
}

func TestHandler_RegisterModelRequiresAdmin(t *testing.T) {
	e := newTestServer(t)
	body := `{"resource_type":"Widget","fields":{"label":{"type":"string","required":true}}}`

	rec, _ := doRequest(t, e, http.MethodPost, "/api/v1/models", body, "X-Test-Roles", "viewer")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/models", body, "X-Test-Roles", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"label"}, env.Data["required_fields"])

	rec, _ = doRequest(t, e, http.MethodGet, "/api/v1/models/Widget/fields", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_FormatRenderings(t *testing.T) {
	e := newTestServer(t)

	rec, env := doRequest(t, e, http.MethodPost, "/api/v1/resources/validate?format=outcome",
		`{"resource_type":"Patient","data":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OperationOutcome", env.Data["resourceType"])
	issues := env.Data["issue"].([]interface{})
	require.Len(t, issues, 1)
	assert.Equal(t, "invalid", issues[0].(map[string]interface{})["code"])

	_, env = doRequest(t, e, http.MethodPost, "/api/v1/resources/diff?format=parameters",
		`{"before":{"gender":"female"},"after":{"gender":"other"}}`)
	assert.Equal(t, "Parameters", env.Data["resourceType"])
	assert.Len(t, env.Data["parameter"], 1)

	_, env = doRequest(t, e, http.MethodPost, "/api/v1/bundles/compose?format=fhir",
		`{"bundle_type":"document","entries":[{"resource_type":"Patient","data":{"id":"p1","full_name":"Ada"}}]}`)
	assert.Equal(t, "Bundle", env.Data["resourceType"])
	entry := env.Data["entry"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Patient/p1", entry["fullUrl"])

	_, env = doRequest(t, e, http.MethodPost, "/api/v1/resources/diff",
		`{"before":{"gender":"female"},"after":{"gender":"other"}}`)
	assert.Contains(t, env.Data, "summary")
}
