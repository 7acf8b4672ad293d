package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"card-program-wizard/internal/common/errors"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "Method not allowed",
	})
}

// writeError renders err with the status its code maps to. Errors that are
// not StandardErrors are reported as internal errors without their text.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := map[string]interface{}{"success": false}

	if se, ok := errors.As(err); ok {
		body["error"] = se.Message
		body["code"] = string(se.Code)
		if se.Details != "" {
			body["message"] = se.Details
		}
		for k, v := range se.Metadata {
			body[k] = v
		}
	} else {
		body["error"] = "Internal server error"
	}

	fields := map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Debug("request rejected", fields)
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON body into v. An empty body is an error unless
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, io.EOF):
		if optional {
			return nil
		}
		return errors.NewInvalidRequestError("Request body is required")
	default:
		return errors.NewInvalidRequestError(fmt.Sprintf("Invalid JSON body: %v", err))
	}
}
