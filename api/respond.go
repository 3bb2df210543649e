package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jeethualex/harness"
)

// Error codes carried in the error envelope.
const (
	codeBadRequest       = "BAD_REQUEST"
	codeNotFound         = "NOT_FOUND"
	codeConflict         = "ALREADY_EXISTS"
	codeBusy             = "TRAINING_BUSY"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeUnavailable      = "UNAVAILABLE"
	codeInternal         = "INTERNAL"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxBodyBytes caps request bodies. Event properties and engine params
// are small JSON documents; anything near this size is malformed input.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// respondError maps an error from the component layer onto an HTTP
// response using the root sentinel chain.
func (a *API) respondError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, harness.ErrEngineExists) || errors.Is(err, harness.ErrJobAlreadyExists):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, harness.ErrTrainingBusy):
		writeError(w, http.StatusTooManyRequests, codeBusy, err.Error())
	case errors.Is(err, harness.ErrUnknownFactory):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		a.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, harness.ErrJobNotFound) ||
		errors.Is(err, harness.ErrEngineNotFound) ||
		errors.Is(err, harness.ErrEventNotFound)
}

// decodeJSON decodes the request body into v, rejecting malformed or
// oversized payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// readBody reads a raw JSON request body for passthrough handlers.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}
