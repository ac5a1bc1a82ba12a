package jsoncodec

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSerializer_RoundTrip(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = Serializer{}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resource_type":"Patient","id":"p1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		t.Fatalf("unexpected bind error: %v", err)
	}
	if body["id"] != "p1" {
		t.Errorf("expected id p1, got %v", body["id"])
	}

	if err := c.JSON(http.StatusOK, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"resource_type":"Patient"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSerializer_SyntaxError(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = Serializer{}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body map[string]interface{}
	err := c.Bind(&body)
	if err == nil {
		t.Fatal("expected bind error for truncated JSON")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestUnmarshalAndMarshalIndent(t *testing.T) {
	var v map[string]interface{}
	if err := Unmarshal([]byte(`{"a":1}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := MarshalIndent(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "\n  \"a\": 1") {
		t.Errorf("unexpected output: %s", out)
	}
}
