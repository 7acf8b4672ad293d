package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"card-program-wizard/internal/analytics"
	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/observability"
	"card-program-wizard/internal/configurations"
	"card-program-wizard/internal/feedback"
	"card-program-wizard/internal/program"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/pkg/registry"
)

// Check reports whether a backend can serve requests.
type Check func(ctx context.Context) error

type Dependencies struct {
	Assistant      *assistant.Service
	Configurations *configurations.Service
	Analytics      *analytics.Recorder
	Feedback       *feedback.Service
	Programs       *program.Service
	Catalog        *registry.QuestionCatalog
	Observability  *observability.Observability

	// ReadinessChecks are run by /ready, keyed by backend name.
	ReadinessChecks map[string]Check
}

type Handler struct {
	deps           Dependencies
	obs            *observability.Observability
	allowedOrigins []string
	logger         logger.Logger
}

func NewHandler(deps Dependencies, cfg config.ServerConfig, log logger.Logger) *Handler {
	if deps.Catalog == nil {
		deps.Catalog = registry.Default()
	}
	return &Handler{
		deps:           deps,
		obs:            deps.Observability,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger.ForComponent(log, "api"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps.ReadinessChecks))
	for name := range h.deps.ReadinessChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	backends := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.deps.ReadinessChecks[name](ctx); err != nil {
			backends[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		backends[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "backends": backends})
}

func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.deps.Catalog,
	})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
