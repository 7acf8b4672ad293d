package api

import (
	stderrors "errors"
	"net/http"

	"card-program-wizard/internal/analytics"
	"card-program-wizard/internal/common/auth"
	"card-program-wizard/internal/feedback"
	"card-program-wizard/internal/program"
	"card-program-wizard/internal/wizard/assistant"
)

func (h *Handler) AIValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req assistant.Request
	if err := decodeBody(w, r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.deps.Assistant.Handle(r.Context(), req)
	if err != nil {
		if stderrors.Is(err, assistant.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "Missing required fields: action, context, user_input",
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var event analytics.Event
	if err := decodeBody(w, r, &event, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Analytics.Record(r.Context(), event))
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Analytics.Report(r.Context()))
}

func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var sub feedback.Submission
	if err := decodeBody(w, r, &sub, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.deps.Feedback.Submit(r.Context(), auth.BearerToken(r.Header.Get("Authorization")), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Feedback submitted successfully",
		"feedbackId": id,
	})
}

func (h *Handler) CardProgram(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req program.Request
		if err := decodeBody(w, r, &req, false); err != nil {
			h.writeError(w, r, err)
			return
		}
		p, err := h.deps.Programs.Create(r.Context(), req)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"message": "Card program created successfully",
			"data":    p,
		})

	case http.MethodGet:
		p, err := h.deps.Programs.Get(r.Context(), r.URL.Query().Get("programId"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": p})

	default:
		methodNotAllowed(w)
	}
}
