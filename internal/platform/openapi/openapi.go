package openapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI 3.0 document for the converter API.
type Generator struct {
	version   string
	baseURL   string
	functions []string
	history   bool
}

// NewGenerator creates a generator. functions names the supported SQL
// functions; history adds the conversion history paths.
func NewGenerator(version, baseURL string, functions []string, history bool) *Generator {
	return &Generator{version: version, baseURL: baseURL, functions: functions, history: history}
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := map[string]interface{}{
		"/": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Welcome message",
				"operationId": "root",
				"tags":        []string{"service"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "JSON object with a welcome message"},
				},
			},
		},
		"/health": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Service health",
				"operationId": "health",
				"tags":        []string{"service"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Healthy"},
					"503": map[string]interface{}{"description": "History store unreachable"},
				},
			},
		},
		"/api/sql_expr_to_json_convertor": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Convert a SQL WHERE fragment",
				"operationId": "convertQuery",
				"tags":        []string{"conversion"},
				"parameters": []map[string]interface{}{
					{
						"name":        "sql_expression",
						"in":          "query",
						"required":    true,
						"description": g.expressionDescription(),
						"schema":      map[string]string{"type": "string"},
					},
				},
				"responses": g.convertResponses(),
			},
		},
		"/api/v1/convert": map[string]interface{}{
			"post": map[string]interface{}{
				"summary":     "Convert a SQL WHERE fragment sent in the body",
				"operationId": "convertBody",
				"tags":        []string{"conversion"},
				"requestBody": map[string]interface{}{
					"required": true,
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": ref("ConvertRequest"),
						},
					},
				},
				"responses": g.convertResponses(),
			},
		},
		"/api/v1/functions": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List supported SQL functions",
				"operationId": "listFunctions",
				"tags":        []string{"conversion"},
				"responses": map[string]interface{}{
					"200": jsonResponse("Function table", map[string]interface{}{
						"type":  "array",
						"items": ref("Function"),
					}),
				},
			},
		},
	}

	if g.history {
		paths["/api/v1/conversions"] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List recorded conversions, newest first",
				"operationId": "listConversions",
				"tags":        []string{"history"},
				"parameters": []map[string]interface{}{
					queryParam("limit", "integer", "Page size, at most 100"),
					queryParam("offset", "integer", "Number of records to skip"),
					enumParam("outcome", []string{"succeeded", "failed"}),
					queryParam("code", "string", "Only records that failed with this error code"),
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Page of conversion records", ref("ConversionPage")),
					"400": jsonResponse("Invalid filter", ref("ErrorPayload")),
				},
			},
		}
		paths["/api/v1/conversions/{id}"] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Read one recorded conversion",
				"operationId": "getConversion",
				"tags":        []string{"history"},
				"parameters": []map[string]interface{}{
					{"name": "id", "in": "path", "required": true, "schema": map[string]string{"type": "string", "format": "uuid"}},
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Conversion record", ref("ConversionRecord")),
					"400": jsonResponse("Malformed id", ref("ErrorPayload")),
					"404": jsonResponse("Not found", ref("ErrorPayload")),
				},
			},
		}
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "sqlconv API",
			"version":     g.version,
			"description": "Converts SQL WHERE fragments into nested JSON condition trees",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": buildComponentSchemas(),
		},
	}
}

func (g *Generator) expressionDescription() string {
	if len(g.functions) == 0 {
		return "SQL WHERE fragment"
	}
	return "SQL WHERE fragment. Supported functions: " + strings.Join(g.functions, ", ")
}

func (g *Generator) convertResponses() map[string]interface{} {
	return map[string]interface{}{
		"200": jsonResponse("Condition tree, or null for an empty expression", ref("Group")),
		"400": jsonResponse("Expression rejected", ref("ErrorPayload")),
		"422": jsonResponse("sql_expression missing", ref("ErrorPayload")),
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func queryParam(name, typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"schema":      map[string]string{"type": typ},
	}
}

func enumParam(name string, values []string) map[string]interface{} {
	return map[string]interface{}{
		"name":   name,
		"in":     "query",
		"schema": map[string]interface{}{"type": "string", "enum": values},
	}
}

// buildComponentSchemas describes the condition tree and the service's
// envelopes.
func buildComponentSchemas() map[string]interface{} {
	return map[string]interface{}{
		"Group": map[string]interface{}{
			"type":     "object",
			"nullable": true,
			"required": []string{"conditions"},
			"properties": map[string]interface{}{
				"logical_operator": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"AND", "OR"},
					"description": "Omitted when the group holds a single child",
				},
				"conditions": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"oneOf": []interface{}{ref("Group"), ref("Condition")},
					},
				},
			},
		},
		"Condition": map[string]interface{}{
			"type":     "object",
			"required": []string{"field", "transformations"},
			"properties": map[string]interface{}{
				"field": map[string]string{"type": "string"},
				"operator": map[string]interface{}{
					"type": "string",
					"enum": []string{"=", "!=", "<>", "<", ">", "<=", ">=", "IN", "NOT IN", "IS NULL", "IS NOT NULL"},
				},
				"value": map[string]interface{}{
					"description": "A scalar, or an array of strings for IN lists",
				},
				"valueType": map[string]interface{}{
					"type": "string",
					"enum": []string{"string"},
				},
				"transformations": map[string]interface{}{
					"type":  "array",
					"items": ref("Transformation"),
				},
			},
		},
		"Transformation": map[string]interface{}{
			"type":     "object",
			"required": []string{"name", "params", "sequence"},
			"properties": map[string]interface{}{
				"name":     map[string]string{"type": "string"},
				"params":   map[string]interface{}{"type": "array", "items": map[string]interface{}{}},
				"sequence": map[string]interface{}{"type": "integer", "minimum": 1},
			},
		},
		"ConvertRequest": map[string]interface{}{
			"type":     "object",
			"required": []string{"sql_expression"},
			"properties": map[string]interface{}{
				"sql_expression": map[string]string{"type": "string"},
			},
		},
		"Function": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":  map[string]string{"type": "string"},
				"arity": map[string]string{"type": "integer"},
			},
		},
		"ErrorPayload": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"endpoint":   map[string]string{"type": "string"},
				"timestamp":  map[string]string{"type": "string"},
				"status":     map[string]string{"type": "integer"},
				"statusCode": map[string]string{"type": "string"},
				"message":    map[string]string{"type": "string"},
			},
		},
		"ConversionRecord": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":            map[string]string{"type": "string", "format": "uuid"},
				"expression":    map[string]string{"type": "string"},
				"result":        ref("Group"),
				"error_code":    map[string]string{"type": "string"},
				"error_message": map[string]string{"type": "string"},
				"leaf_count":    map[string]string{"type": "integer"},
				"user_id":       map[string]string{"type": "string"},
				"created_at":    map[string]string{"type": "string", "format": "date-time"},
			},
		},
		"ConversionPage": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"data":     map[string]interface{}{"type": "array", "items": ref("ConversionRecord")},
				"total":    map[string]string{"type": "integer"},
				"limit":    map[string]string{"type": "integer"},
				"offset":   map[string]string{"type": "integer"},
				"has_more": map[string]string{"type": "boolean"},
				"links": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"next":     map[string]string{"type": "string"},
						"previous": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

// ── Swagger UI ──────────────────────────────────────────────────────────

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>sqlconv API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

const docsCSP = "default-src 'none'; script-src 'unsafe-inline' https://unpkg.com; " +
	"style-src https://unpkg.com; img-src data: https://unpkg.com; connect-src 'self'; frame-ancestors 'none'"

// RegisterRoutes registers the OpenAPI endpoints under apiGroup.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		// The UI is fetched from unpkg and runs inline.
		c.Response().Header().Set("Content-Security-Policy", docsCSP)
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
