package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphquill/graphquill/core/application/services"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// RegisterRoutes registers all HTTP routes
func RegisterRoutes(r *chi.Mux, svc *services.TemplateService, port string) {
	log := logging.New("routes")
	log.Infof("Registering HTTP routes")

	var routes []string
	register := func(method, pattern string, handler http.Handler) {
		r.Method(method, pattern, handler)
		routes = append(routes, fmt.Sprintf("%s %s", method, pattern))
	}

	register(http.MethodPost, "/api/v1/templates", handleCreate(svc))
	register(http.MethodGet, "/api/v1/templates", handleSearch(svc))
	register(http.MethodPost, "/api/v1/templates/compose", handleCompose(svc))
	register(http.MethodGet, "/api/v1/templates/{name}", handleGet(svc))
	register(http.MethodDelete, "/api/v1/templates/{name}", handleDelete(svc))
	register(http.MethodPost, "/api/v1/templates/{name}/execute", handleExecute(svc))

	register(http.MethodGet, "/heartbeat", handleHeartbeat(svc))
	register(http.MethodPost, "/initialize", handleInitialize(svc))
	register(http.MethodGet, "/docs", handleOpenAPISpec(svc, fmt.Sprintf("http://localhost:%s", port)))

	register(http.MethodGet, "/metrics", promhttp.Handler())

	log.Infof("Routes registered: %d", len(routes))
	for _, route := range routes {
		log.Debugf("  %s", route)
	}
}
