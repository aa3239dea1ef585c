package dto

// ExecuteRequest carries the caller's input map for a template execution.
// Parameter-level validation happens in the engine against the template
// definition, not here.
type ExecuteRequest struct {
	Parameters map[string]any `json:"parameters"`
}

// ExecuteResponse is the response for a simple template execution. Message
// is informational only and set exactly when the result set is empty; an
// empty result is a success, not an error.
type ExecuteResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
	Results []map[string]any `json:"results"`
}

// ComponentResultDTO is the per-component outcome of a composed execution.
type ComponentResultDTO struct {
	TemplateName string           `json:"template_name"`
	Results      []map[string]any `json:"results"`
	Error        string           `json:"error,omitempty"`
}

// ComposedExecuteResponse is the response for a composed template execution.
// Components appear in declared order; per-component errors live inside the
// component entries, never at the top level.
type ComposedExecuteResponse struct {
	Success    bool                 `json:"success"`
	Error      string               `json:"error,omitempty"`
	Components []ComponentResultDTO `json:"components"`
}

// ParameterDTO declares one template parameter.
type ParameterDTO struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Source      string `json:"source" validate:"omitempty,oneof=input previous_result"`
}

// ReturnDTO declares one template output field.
type ReturnDTO struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ExampleDTO is a documented input/output pair.
type ExampleDTO struct {
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
}

// CreateTemplateRequest creates a new simple template.
type CreateTemplateRequest struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description" validate:"required"`
	Purpose     string         `json:"purpose"`
	Query       string         `json:"query" validate:"required"`
	Version     string         `json:"version"`
	Parameters  []ParameterDTO `json:"parameters" validate:"dive"`
	Returns     []ReturnDTO    `json:"returns" validate:"dive"`
	Examples    []ExampleDTO   `json:"examples"`
}

// ComposeRequest creates a composed template over existing templates.
type ComposeRequest struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description"`
	CompositionType string   `json:"composition_type" validate:"required,oneof=SEQUENCE PARALLEL"`
	Components      []string `json:"components" validate:"required,min=1,dive,required"`
}

// TemplateResponse describes one template definition.
type TemplateResponse struct {
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Purpose         string         `json:"purpose,omitempty"`
	Query           string         `json:"query,omitempty"`
	Version         string         `json:"version,omitempty"`
	CompositionKind string         `json:"composition_kind,omitempty"`
	Parameters      []ParameterDTO `json:"parameters,omitempty"`
	Returns         []ReturnDTO    `json:"returns,omitempty"`
	UpdatedAt       string         `json:"updated_at,omitempty"`
}

// SearchResponse is the response for a template search.
type SearchResponse struct {
	Success   bool               `json:"success"`
	Templates []TemplateResponse `json:"templates"`
}
