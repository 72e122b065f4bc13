package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/outliner/internal/engine"
	"github.com/roach88/outliner/internal/ops"
	"github.com/roach88/outliner/internal/syncer"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code of a failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// badRequest marks a malformed request body or parameter.
type badRequest struct {
	err error
}

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and an ErrorBody.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", detail.Code)
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}

func classify(err error) (int, ErrorDetail) {
	var (
		ve *ops.ValidationError
		ee *engine.EngineError
		br badRequest
	)
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, ErrorDetail{Code: "BAD_REQUEST", Message: br.Error()}
	case errors.As(err, &ve):
		status := http.StatusUnprocessableEntity
		if ve.Code == ops.ErrCodeNodeNotFound || ve.Code == ops.ErrCodeNoSuchInstance {
			status = http.StatusNotFound
		}
		return status, ErrorDetail{Code: string(ve.Code), Message: ve.Message, Node: string(ve.Node), Ref: ve.Ref}
	case errors.As(err, &ee):
		return engineStatus(ee.Code), ErrorDetail{Code: string(ee.Code), Message: ee.Message}
	case errors.Is(err, syncer.ErrNoConflict):
		return http.StatusConflict, ErrorDetail{Code: "NO_CONFLICT", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorDetail{Code: "INTERNAL", Message: err.Error()}
	}
}

func engineStatus(code engine.EngineErrorCode) int {
	switch code {
	case engine.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case engine.ErrCodeNothingToUndo, engine.ErrCodeNothingToRedo,
		engine.ErrCodeClipboardEmpty, engine.ErrCodeSyncConflict:
		return http.StatusConflict
	case engine.ErrCodeSessionClosed:
		return http.StatusGone
	case engine.ErrCodePersistenceFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest{err: err}
	}
	return nil
}
