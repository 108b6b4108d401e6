package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies read by decodeJSON.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// writeError writes err as a model.ErrorResponse. Domain errors keep their
// code, message and field; anything else is reported as an internal error
// without exposing its text.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		}, logger)
		return
	}

	writeDomainError(w, statusFor(domainErr.Code), domainErr, logger)
}

func writeDomainError(w http.ResponseWriter, status int, domainErr *model.DomainError, logger zerolog.Logger) {
	logger.Warn().
		Str("code", domainErr.Code).
		Str("field", domainErr.Field).
		Int("status", status).
		Msg(domainErr.Message)

	writeJSON(w, status, model.ErrorResponse{
		Error:   domainErr.Code,
		Message: domainErr.Message,
		Field:   domainErr.Field,
	}, logger)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeOrderNotFound, model.ErrCodeReturnNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeDuplicateIdentifier:
		return http.StatusConflict
	case model.ErrCodeOwnershipMismatch:
		return http.StatusForbidden
	case model.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads the request body into dst. A malformed body is reported
// as INVALID_JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body: "+err.Error())
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.DomainError{
			Code:    model.ErrCodeInvalidParameter,
			Message: "invalid " + name + " parameter",
			Field:   name,
		}
	}
	return v, nil
}
