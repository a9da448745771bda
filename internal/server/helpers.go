package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mfitchett/tally/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// handleServiceError maps pipeline errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case common.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInsufficientTrainingData),
		errors.Is(err, common.ErrNoCategories),
		errors.Is(err, common.ErrModelNotTrained):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, common.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
