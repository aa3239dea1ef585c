package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/graphquill/graphquill/core/application/services"
	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/infrastructure/transport/http/dto"
	"github.com/graphquill/graphquill/core/shared/errors"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusOf(err), dto.ErrorResponse{
		Success: false,
		Error:   errors.MessageOf(err),
		Code:    string(errors.CodeOf(err)),
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var details []dto.ErrorDetail
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range validationErrs {
			details = append(details, dto.ErrorDetail{
				Field:   ve.Field(),
				Message: ve.Error(),
				Tag:     ve.Tag(),
			})
		}
	}
	writeJSON(w, http.StatusBadRequest, dto.ValidationErrorResponse{
		Success: false,
		Error:   "Validation failed",
		Details: details,
	})
}

// handleExecute executes a template by name. Simple templates answer with a
// flat result list; composed templates answer with one entry per component,
// carrying each component's records or isolated error.
func handleExecute(svc *services.TemplateService) http.HandlerFunc {
	log := logging.New("handler:execute")

	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		log.Debugf("Executing template '%s'", name)

		var req dto.ExecuteRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, errors.InvalidInput("invalid JSON body"))
				return
			}
		}
		if req.Parameters == nil {
			req.Parameters = map[string]any{}
		}

		outcome, err := svc.Execute(r.Context(), name, req.Parameters)
		if err != nil {
			log.Warnf("Execution of '%s' failed: %v", name, err)
			writeError(w, err)
			return
		}

		if outcome.Composed {
			resp := dto.ComposedExecuteResponse{
				Success:    true,
				Components: make([]dto.ComponentResultDTO, 0, len(outcome.Components)),
			}
			for _, c := range outcome.Components {
				resp.Components = append(resp.Components, dto.ComponentResultDTO{
					TemplateName: c.TemplateName,
					Results:      recordsToMaps(c.Records),
					Error:        c.Error,
				})
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		resp := dto.ExecuteResponse{
			Success: true,
			Results: recordsToMaps(outcome.Records),
		}
		if len(outcome.Records) == 0 {
			resp.Message = "Query returned no results"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleCreate creates a new simple template
func handleCreate(svc *services.TemplateService) http.HandlerFunc {
	log := logging.New("handler:create")

	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.InvalidInput("invalid JSON body"))
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeValidationError(w, err)
			return
		}

		tpl := &domain.Template{
			Name:        req.Name,
			Description: req.Description,
			Purpose:     req.Purpose,
			QueryBody:   req.Query,
			Version:     req.Version,
		}
		for _, p := range req.Parameters {
			tpl.Parameters = append(tpl.Parameters, domain.ParameterSpec{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Required:    p.Required,
				Source:      domain.ParameterSource(p.Source),
			})
		}
		for _, ret := range req.Returns {
			tpl.Returns = append(tpl.Returns, domain.ReturnSpec{
				Name:        ret.Name,
				Type:        ret.Type,
				Description: ret.Description,
			})
		}
		for _, ex := range req.Examples {
			tpl.Examples = append(tpl.Examples, domain.Example{
				Input:  ex.Input,
				Output: ex.Output,
			})
		}

		if err := svc.Create(r.Context(), tpl); err != nil {
			log.Warnf("Create of '%s' failed: %v", req.Name, err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"template": templateToDTO(tpl),
		})
	}
}

// handleCompose creates a composed template over existing templates
func handleCompose(svc *services.TemplateService) http.HandlerFunc {
	log := logging.New("handler:compose")

	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ComposeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.InvalidInput("invalid JSON body"))
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeValidationError(w, err)
			return
		}

		composed, err := svc.Compose(r.Context(), req.Name, req.Description,
			domain.CompositionKind(req.CompositionType), req.Components)
		if err != nil {
			log.Warnf("Compose of '%s' failed: %v", req.Name, err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"template": templateToDTO(composed),
		})
	}
}

// handleGet returns one template definition by name
func handleGet(svc *services.TemplateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		tpl, err := svc.Lookup(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"template": templateToDTO(tpl),
		})
	}
}

// handleSearch returns templates matching the search query parameter
func handleSearch(svc *services.TemplateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("search")

		templates, err := svc.Search(r.Context(), term)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := dto.SearchResponse{
			Success:   true,
			Templates: make([]dto.TemplateResponse, 0, len(templates)),
		}
		for _, tpl := range templates {
			resp.Templates = append(resp.Templates, templateToDTO(tpl))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleDelete removes a template definition
func handleDelete(svc *services.TemplateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := svc.Delete(r.Context(), name); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// handleHeartbeat reports liveness and backend connectivity
func handleHeartbeat(svc *services.TemplateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Heartbeat(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, dto.HealthResponse{Success: true})
	}
}

// handleInitialize installs the definition store schema
func handleInitialize(svc *services.TemplateService) http.HandlerFunc {
	log := logging.New("handler:initialize")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Initialize(r.Context()); err != nil {
			log.Errorf("Initialization failed: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func recordsToMaps(records []domain.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any(rec))
	}
	return out
}

func templateToDTO(tpl *domain.Template) dto.TemplateResponse {
	resp := dto.TemplateResponse{
		Name:            tpl.Name,
		Description:     tpl.Description,
		Purpose:         tpl.Purpose,
		Query:           tpl.QueryBody,
		Version:         tpl.Version,
		CompositionKind: string(tpl.CompositionKind),
	}
	if !tpl.UpdatedAt.IsZero() {
		resp.UpdatedAt = tpl.UpdatedAt.Format(time.RFC3339)
	}
	for _, p := range tpl.Parameters {
		resp.Parameters = append(resp.Parameters, dto.ParameterDTO{
			Name:        p.Name,
			Type:        p.Type,
			Description: p.Description,
			Required:    p.Required,
			Source:      string(p.EffectiveSource()),
		})
	}
	for _, ret := range tpl.Returns {
		resp.Returns = append(resp.Returns, dto.ReturnDTO{
			Name:        ret.Name,
			Type:        ret.Type,
			Description: ret.Description,
		})
	}
	return resp
}
