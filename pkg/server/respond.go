package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/entrhq/estate/pkg/recordings"
	"github.com/entrhq/estate/pkg/types"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Internal errors are reported
// without their message.
func writeError(w http.ResponseWriter, err error) {
	status := types.HTTPStatus(err)
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, recordings.ErrNoProvider) {
		status = http.StatusServiceUnavailable
	}
	writeErrorStatus(w, status, err.Error())
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	resp := errorResponse{Error: errorCode(status)}
	if status != http.StatusInternalServerError {
		resp.Description = msg
	}
	writeJSON(w, status, resp)
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "corrupt_record"
	case http.StatusBadGateway:
		return "transcription_failed"
	case http.StatusServiceUnavailable:
		return "not_configured"
	default:
		return "internal_error"
	}
}
