package api

import (
	"net/http"
	"strings"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/configurations"
)

func (h *Handler) Configurations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		result, err := h.deps.Configurations.List(r.Context(), configurations.ListParams{
			ClientID:    q.Get("client_id"),
			Status:      q.Get("status"),
			ProgramType: q.Get("program_type"),
			Search:      q.Get("search"),
			Sort:        q.Get("sort"),
			Order:       q.Get("order"),
			Limit:       queryInt(r, "limit"),
			Offset:      queryInt(r, "offset"),
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*configurations.ListResult
		}{true, result})

	case http.MethodPost:
		if !h.deps.Configurations.Enabled() {
			h.writeError(w, r, errors.NewDatabaseNotConfiguredError())
			return
		}
		var req configurations.CreateRequest
		if err := decodeBody(w, r, &req, false); err != nil {
			h.writeError(w, r, err)
			return
		}
		cfg, err := h.deps.Configurations.Create(r.Context(), req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    cfg,
			"message": "Configuration created successfully",
		})

	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) ConfigurationSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*configurations.SchemaDocument
	}{true, h.deps.Configurations.Schema(r.Context())})
}

func (h *Handler) Configuration(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeError(w, r, errors.NewInvalidRequestError("Missing configuration ID"))
		return
	}
	if !h.deps.Configurations.Enabled() {
		switch r.Method {
		case http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete:
			h.writeError(w, r, errors.NewDatabaseNotConfiguredError())
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		cfg, err := h.deps.Configurations.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": cfg})

	case http.MethodPut, http.MethodPatch:
		var updates map[string]interface{}
		if err := decodeBody(w, r, &updates, false); err != nil {
			h.writeError(w, r, err)
			return
		}
		cfg, err := h.deps.Configurations.Update(r.Context(), id, updates)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    cfg,
			"message": "Configuration updated successfully",
		})

	case http.MethodDelete:
		var body struct {
			DeletedBy string `json:"deleted_by"`
		}
		if err := decodeBody(w, r, &body, true); err != nil {
			h.writeError(w, r, err)
			return
		}
		soft := r.URL.Query().Get("soft_delete") == "true"
		result, err := h.deps.Configurations.Delete(r.Context(), id, soft, body.DeletedBy)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if result.Archived {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    result.Data,
				"message": "Configuration archived successfully",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"message":    "Configuration deleted successfully",
			"deleted_id": result.DeletedID,
		})

	default:
		methodNotAllowed(w)
	}
}
