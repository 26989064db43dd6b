package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/adapters/sheet"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/internal/domain/ingest"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// importErrorDetails locates a rejected spreadsheet value.
type importErrorDetails struct {
	Kind    string   `json:"kind"`
	Row     int      `json:"row,omitempty"`
	Field   string   `json:"field,omitempty"`
	Value   string   `json:"value,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status code and writes the error envelope. Errors
// without a known kind become a 500 with a generic message and are logged.
func fail(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	var (
		verr   *ingest.ValidationError
		fields validator.ValidationErrors
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: verr.Error(),
			Details: importErrorDetails{Kind: verr.Code(), Row: verr.Row, Field: verr.Field, Value: verr.Value, Missing: verr.Missing},
		})
	case errors.As(err, &fields):
		out := make([]fieldError, len(fields))
		for i, fe := range fields {
			out[i] = fieldError{Field: fe.Field(), Message: fieldMessage(fe)}
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "invalid_request",
			Message: "request failed validation",
			Details: out,
		})
	case errors.Is(err, repository.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, "invalid", err)
	case errors.As(err, &tooBig), errors.Is(err, ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", ErrPayloadTooLarge)
	case errors.Is(err, ErrBadRequest), errors.Is(err, analytics.ErrInvalidQuery),
		errors.Is(err, sheet.ErrUnsupportedFormat), errors.Is(err, sheet.ErrUnreadable), errors.Is(err, sheet.ErrNoSheet):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", auth.ErrInvalidCredentials)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, access.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", access.ErrForbidden)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrPreviewNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, service.ErrPreviewConfirmed):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
	default:
		l.Error(ctx, "request failed", logger.Error(err))
		metrics.RecordErrorByComponent("api", "internal")
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	// Untyped cells keep their literal text, so long numeric IDs survive.
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return validate.Struct(v)
}
