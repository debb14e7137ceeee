package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"workguard360/core/alerts"
	"workguard360/core/rbac"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// writeServiceError translates the lifecycle error taxonomy into HTTP. The
// mapping is the API contract; handlers never improvise status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrInvalidPrincipal):
		writeError(w, http.StatusUnauthorized, "INVALID_PRINCIPAL", "principal could not be resolved")
	case errors.Is(err, rbac.ErrPrincipalInactive):
		writeError(w, http.StatusForbidden, "PRINCIPAL_INACTIVE", "account is deactivated")
	case errors.Is(err, rbac.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
	case errors.Is(err, alerts.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "alert not found")
	case errors.Is(err, alerts.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", "alert is not in a state that allows this transition")
	case errors.Is(err, alerts.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, alerts.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage backend unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
