// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/remote"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	// Encoding failures after the header is written cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Int("status", status).Str("path", r.URL.Path).Msg(message)

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError maps an error returned by a service to an HTTP response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		logger.Warn().Interface("fields", validation.Fields).Str("path", r.URL.Path).Msg("validation failed")
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{
			Error:         model.ErrCodeValidation,
			Message:       "Please correct the highlighted fields",
			CorrelationID: chimw.GetReqID(r.Context()),
			Fields:        validation.Fields,
		})
		return
	}

	var domain *model.DomainError
	if errors.As(err, &domain) {
		writeError(w, r, statusForCode(domain.Code), domain.Code, domain.Message, logger)
		return
	}

	switch {
	case isUpstreamFailure(err):
		logger.Error().Err(err).Msg("upstream call failed")
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamFailure, "The catalogue service is unavailable, please try again", logger)
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
	}
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeUserNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeOutOfStock, model.ErrCodeOrderNotDeletable, model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeEmptyCart, model.ErrCodeInvalidQuantity, model.ErrCodeInvalidStatus, model.ErrCodeMissingSession:
		return http.StatusBadRequest
	case model.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func isUpstreamFailure(err error) bool {
	var statusErr *remote.StatusError
	return errors.As(err, &statusErr) ||
		errors.Is(err, remote.ErrNotFound) ||
		errors.Is(err, remote.ErrInvalidPayload) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, context.DeadlineExceeded)
}

// decodeJSON reads a JSON body into dst, writing a 400 response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		message := "invalid request body"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, message, logger)
		return false
	}
	return true
}
