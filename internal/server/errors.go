package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ceptracker "github.com/eugener/ceptracker/internal"
)

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// errorResponse builds an error body. The type is derived from status so
// clients can branch without parsing the message.
func errorResponse(status int, msg string) apiError {
	var e apiError
	e.Error.Message = msg
	switch {
	case status == http.StatusNotFound:
		e.Error.Type = "not_found_error"
	case status >= 500:
		e.Error.Type = "server_error"
	default:
		e.Error.Type = "invalid_request_error"
	}
	return e
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ceptracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ceptracker.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures in full and sends clients a
// sanitized message only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusNotFound:
		writeJSON(w, status, errorResponse(status, "not found"))
	case http.StatusBadRequest:
		writeJSON(w, status, errorResponse(status, err.Error()))
	default:
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, status, errorResponse(status, "internal server error"))
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
