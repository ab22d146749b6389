package http

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorBody struct {
	Error *domain.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidDateRange, domain.KindReasonRequired, domain.KindInvalidDeduction, domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindNoActiveItems:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateActiveRequest, domain.KindConflictingRequest, domain.KindNotEditable, domain.KindStaleRequest:
		return http.StatusConflict
	case domain.KindPaymentCaptureFailed:
		return http.StatusPaymentRequired
	case domain.KindRefundFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders domain errors with their structure; anything else is
// logged and reported as an opaque internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeJSON(w, statusFor(de.Kind), errorBody{Error: de})
		return
	}
	logger.ErrorContext(r.Context(), "Unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: &domain.Error{Kind: "INTERNAL", Message: "internal error"}})
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: &domain.Error{Kind: domain.KindUnauthorized, Message: msg}})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewInvalidArgument("body", "", "malformed JSON body: "+err.Error())
	}
	return nil
}
