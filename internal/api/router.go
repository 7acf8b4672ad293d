// Package api serves the wizard's HTTP endpoints.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	h.route(mux, "/api/ai-validate", h.AIValidate)
	h.route(mux, "/api/configurations", h.Configurations)
	h.route(mux, "/api/configurations/schema", h.ConfigurationSchema)
	h.route(mux, "/api/configurations/{id}", h.Configuration)
	h.route(mux, "/api/events", h.Events)
	h.route(mux, "/api/analytics", h.Analytics)
	h.route(mux, "/api/feedback", h.Feedback)
	h.route(mux, "/api/card-program", h.CardProgram)
	h.route(mux, "/api/questions", h.Questions)

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ready", h.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	return h.recoverPanics(mux)
}

func (h *Handler) route(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.instrument(pattern, h.cors(fn)))
}
