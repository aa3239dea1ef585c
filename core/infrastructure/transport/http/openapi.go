package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pb33f/libopenapi"

	"github.com/graphquill/graphquill/core/application/services"
	"github.com/graphquill/graphquill/core/domain"
)

// generateOpenAPISpec builds an OpenAPI 3.0 document covering the management
// endpoints plus one execute operation per stored template, validated with
// libopenapi before serving.
func generateOpenAPISpec(templates []*domain.Template, baseURL string) ([]byte, error) {
	spec := map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       "Graphquill Template Engine API",
			"version":     "1.0.0",
			"description": "REST API for managing and executing parameterized query templates and their compositions.",
		},
		"servers": []map[string]any{
			{
				"url":         baseURL,
				"description": "Graphquill Server",
			},
		},
		"paths": make(map[string]any),
	}

	paths := spec["paths"].(map[string]any)

	paths["/api/v1/templates"] = map[string]any{
		"post": map[string]any{
			"summary":     "Create a template",
			"operationId": "createTemplate",
			"requestBody": map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type":     "object",
							"required": []string{"name", "description", "query"},
							"properties": map[string]any{
								"name":        map[string]any{"type": "string"},
								"description": map[string]any{"type": "string"},
								"purpose":     map[string]any{"type": "string"},
								"query":       map[string]any{"type": "string"},
								"version":     map[string]any{"type": "string"},
								"parameters":  map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
								"returns":     map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
							},
						},
					},
				},
			},
			"responses": map[string]any{
				"201": map[string]any{"description": "Template created"},
				"400": map[string]any{"description": "Validation failed"},
			},
		},
		"get": map[string]any{
			"summary":     "Search templates",
			"operationId": "searchTemplates",
			"parameters": []map[string]any{
				{
					"name":     "search",
					"in":       "query",
					"required": false,
					"schema":   map[string]any{"type": "string"},
				},
			},
			"responses": map[string]any{
				"200": map[string]any{"description": "Matching templates"},
			},
		},
	}

	paths["/api/v1/templates/compose"] = map[string]any{
		"post": map[string]any{
			"summary":     "Compose templates",
			"operationId": "composeTemplates",
			"requestBody": map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type":     "object",
							"required": []string{"name", "composition_type", "components"},
							"properties": map[string]any{
								"name":        map[string]any{"type": "string"},
								"description": map[string]any{"type": "string"},
								"composition_type": map[string]any{
									"type": "string",
									"enum": []string{"SEQUENCE", "PARALLEL"},
								},
								"components": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "string"},
								},
							},
						},
					},
				},
			},
			"responses": map[string]any{
				"201": map[string]any{"description": "Composition created"},
				"400": map[string]any{"description": "Validation failed or unknown component"},
			},
		},
	}

	paths["/heartbeat"] = map[string]any{
		"get": map[string]any{
			"summary":     "Health check",
			"operationId": "heartbeat",
			"responses": map[string]any{
				"200": map[string]any{"description": "Service and backends healthy"},
				"503": map[string]any{"description": "A backend is unreachable"},
			},
		},
	}

	for _, tpl := range templates {
		endpointPath := "/api/v1/templates/" + tpl.Name + "/execute"

		properties := make(map[string]any)
		var required []string
		for _, p := range tpl.Parameters {
			properties[p.Name] = map[string]any{
				"type":        mapParameterType(p.Type),
				"description": p.Description,
			}
			if p.Required && p.EffectiveSource() == domain.SourceInput {
				required = append(required, p.Name)
			}
		}

		paramsSchema := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			paramsSchema["required"] = required
		}

		paths[endpointPath] = map[string]any{
			"post": map[string]any{
				"summary":     tpl.Description,
				"description": fmt.Sprintf("Execute the '%s' template. %s", tpl.Name, tpl.Description),
				"operationId": "execute" + toPascalCase(tpl.Name),
				"requestBody": map[string]any{
					"required": false,
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"parameters": paramsSchema,
								},
							},
						},
					},
				},
				"responses": map[string]any{
					"200": map[string]any{"description": "Execution results"},
					"400": map[string]any{"description": "Missing parameter or rendering rejected"},
					"404": map[string]any{"description": "Template not found"},
					"500": map[string]any{"description": "Execution failed"},
				},
			},
		}
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}

	document, err := libopenapi.NewDocument(specJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create libopenapi document: %w", err)
	}
	if _, err := document.BuildV3Model(); err != nil {
		return nil, fmt.Errorf("failed to build v3 model (validation error): %w", err)
	}

	return specJSON, nil
}

// handleOpenAPISpec serves the generated OpenAPI document
func handleOpenAPISpec(svc *services.TemplateService, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := svc.Search(r.Context(), "")
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to load templates: %v", err), http.StatusInternalServerError)
			return
		}

		specJSON, err := generateOpenAPISpec(templates, baseURL)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to generate OpenAPI spec: %v", err), http.StatusInternalServerError)
			return
		}

		var spec map[string]any
		if err := json.Unmarshal(specJSON, &spec); err != nil {
			http.Error(w, "Failed to format spec", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(spec)
	}
}

// mapParameterType converts a template parameter type to an OpenAPI type
func mapParameterType(typ string) string {
	switch typ {
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	default:
		return "string"
	}
}

// toPascalCase converts a string to PascalCase
func toPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(part[1:])
		}
	}
	return result.String()
}
