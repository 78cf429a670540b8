package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestGenerator(history bool) *Generator {
	return NewGenerator("1.0.0", "http://localhost:8000", []string{"ROUND", "TRIM"}, history)
}

func TestGenerateSpec_Structure(t *testing.T) {
	spec := newTestGenerator(true).GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}

	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info object")
	}
	if info["title"] != "sqlconv API" {
		t.Errorf("expected title 'sqlconv API', got %v", info["title"])
	}
	if info["version"] != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %v", info["version"])
	}

	servers, ok := spec["servers"].([]map[string]string)
	if !ok || len(servers) != 1 || servers[0]["url"] != "http://localhost:8000" {
		t.Errorf("unexpected servers: %v", spec["servers"])
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	tests := []struct {
		history bool
		want    []string
		absent  []string
	}{
		{
			history: true,
			want:    []string{"/", "/health", "/api/sql_expr_to_json_convertor", "/api/v1/convert", "/api/v1/functions", "/api/v1/conversions", "/api/v1/conversions/{id}"},
		},
		{
			history: false,
			want:    []string{"/api/sql_expr_to_json_convertor", "/api/v1/convert"},
			absent:  []string{"/api/v1/conversions", "/api/v1/conversions/{id}"},
		},
	}
	for _, tt := range tests {
		paths := newTestGenerator(tt.history).GenerateSpec()["paths"].(map[string]interface{})
		for _, p := range tt.want {
			if _, ok := paths[p]; !ok {
				t.Errorf("history=%v: missing path %s", tt.history, p)
			}
		}
		for _, p := range tt.absent {
			if _, ok := paths[p]; ok {
				t.Errorf("history=%v: unexpected path %s", tt.history, p)
			}
		}
	}
}

func TestGenerateSpec_ConvertParameter(t *testing.T) {
	paths := newTestGenerator(false).GenerateSpec()["paths"].(map[string]interface{})
	get := paths["/api/sql_expr_to_json_convertor"].(map[string]interface{})["get"].(map[string]interface{})

	params := get["parameters"].([]map[string]interface{})
	if len(params) != 1 || params[0]["name"] != "sql_expression" || params[0]["required"] != true {
		t.Fatalf("unexpected parameters: %v", params)
	}
	desc, _ := params[0]["description"].(string)
	if !strings.Contains(desc, "ROUND, TRIM") {
		t.Errorf("description should list functions, got %q", desc)
	}

	responses := get["responses"].(map[string]interface{})
	for _, code := range []string{"200", "400", "422"} {
		if _, ok := responses[code]; !ok {
			t.Errorf("missing %s response", code)
		}
	}
}

func TestGenerateSpec_Schemas(t *testing.T) {
	components := newTestGenerator(true).GenerateSpec()["components"].(map[string]interface{})
	schemas := components["schemas"].(map[string]interface{})
	for _, name := range []string{"Group", "Condition", "Transformation", "ConvertRequest", "Function", "ErrorPayload", "ConversionRecord", "ConversionPage"} {
		if _, ok := schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}

	group := schemas["Group"].(map[string]interface{})
	props := group["properties"].(map[string]interface{})
	op := props["logical_operator"].(map[string]interface{})
	enum := op["enum"].([]string)
	if len(enum) != 2 || enum[0] != "AND" || enum[1] != "OR" {
		t.Errorf("logical_operator enum = %v", enum)
	}
}

func TestGenerateSpec_JSONSerialization(t *testing.T) {
	data, err := json.Marshal(newTestGenerator(true).GenerateSpec())
	if err != nil {
		t.Fatalf("failed to marshal spec: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal spec: %v", err)
	}
	if decoded["openapi"] != "3.0.3" {
		t.Errorf("round-tripped openapi = %v", decoded["openapi"])
	}
}

func TestGenerator_OpenAPIEndpoint(t *testing.T) {
	e := echo.New()
	newTestGenerator(true).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if _, ok := body["paths"]; !ok {
		t.Error("expected paths in response")
	}
}

func TestGenerator_Docs(t *testing.T) {
	e := echo.New()
	newTestGenerator(false).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Error("expected Swagger UI page")
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
		t.Errorf("content type = %q", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestGenerator_DocsPolicy(t *testing.T) {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Content-Security-Policy", "default-src 'none'")
			return next(c)
		}
	})
	newTestGenerator(false).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Security-Policy"); got != docsCSP {
		t.Errorf("CSP = %q, want docs policy", got)
	}
}
