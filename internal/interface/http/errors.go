package http

import (
	"errors"
	"net/http"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// statusFor maps a ledger error kind to an HTTP status. Missing entities are
// cross-reference errors on the ledger side but read as 404 here.
func statusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.ErrUnauthorized:
		return http.StatusForbidden
	case shared.ErrValidation:
		return http.StatusBadRequest
	case shared.ErrStateConflict:
		return http.StatusConflict
	case shared.ErrArithmetic:
		return http.StatusUnprocessableEntity
	case shared.ErrRateLimited:
		return http.StatusTooManyRequests
	case shared.ErrCrossReference:
		if shared.IsNotFound(err) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders err. Ledger rejections carry their stable code and
// message; anything else is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())

	var de *shared.DomainError
	if status == http.StatusInternalServerError || !errors.As(err, &de) {
		if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			log.Warn("request aborted", logger.Err(err))
			writeJSONError(w, r, http.StatusServiceUnavailable, "request_aborted", "The request was cancelled or timed out")
			return
		}
		log.Error("request failed", logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
		return
	}

	log.Debug("request rejected", "code", de.Code, logger.Err(err))
	apiErr := &APIError{
		Code:    de.Code,
		Message: de.Message,
		Kind:    shared.KindOf(err).Error(),
	}
	if de.Err != nil && !isKind(de.Err) {
		apiErr.Details = de.Err.Error()
	}
	writeAPIError(w, r, status, apiErr)
}

func isKind(err error) bool {
	for _, k := range shared.Kinds {
		if err == k {
			return true
		}
	}
	return false
}
