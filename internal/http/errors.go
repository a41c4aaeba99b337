package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/log"
	"invoicer/internal/session"
	"invoicer/internal/submission"
)

var errRecordsUnavailable = errors.New("invoice records and profiles are not configured")

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// badRequestError marks a request body that could not be decoded.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// classify maps domain errors to a status and a stable code.
func classify(err error) (int, string) {
	var bre *badRequestError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &bre):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrUnknownField),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, invoice.ErrDuplicateColumn):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrRecordNotFound),
		errors.Is(err, core.ErrProfileNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrLastItem):
		return http.StatusConflict, "last_item"
	case errors.Is(err, submission.ErrNotifierUnavailable),
		errors.Is(err, amqp.ErrCircuitOpen),
		errors.Is(err, errRecordsUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError logs err and writes its JSON form. Internal errors are not
// echoed to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err,
			log.FieldRequestID, middleware.GetReqID(r.Context()))
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
