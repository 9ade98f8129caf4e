package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleServiceError maps typed domain failures to HTTP statuses. Lifecycle
// conflicts keep their exact message so a UI can render it; the concurrency
// limit additionally carries the live count.
func handleServiceError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var limitErr *domain.ConcurrencyLimitError
	if errors.As(err, &limitErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   limitErr.Error(),
			"current": limitErr.Current,
			"cap":     limitErr.Cap,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotAuthorized), errors.Is(err, domain.ErrNotAssigned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyWorking),
		errors.Is(err, domain.ErrNotWorking),
		errors.Is(err, domain.ErrNotPaused),
		errors.Is(err, domain.ErrAlreadyFinished),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
