package httpapi

import (
	"errors"
	"net/http"

	"fieldops/internal/service"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrInvalidParent, http.StatusBadRequest},
	{service.ErrUnitCycle, http.StatusBadRequest},
	{service.ErrInvalidUnit, http.StatusBadRequest},
	{service.ErrAuth, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrProtectedRole, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrDuplicateName, http.StatusConflict},
	{service.ErrDuplicateUsername, http.StatusConflict},
	{service.ErrDuplicateNameInUnit, http.StatusConflict},
	{service.ErrHasPersonnel, http.StatusConflict},
}

// writeError maps service errors to status codes. Anything unknown is a 500
// and its text is not exposed.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrValidation.Error(), Details: ve.Details})
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorResponse{Error: e.err.Error()})
			return
		}
	}
	logger.Error("Request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeBadBody(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: err.Error()})
}
