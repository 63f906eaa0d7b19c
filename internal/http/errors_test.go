package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldops/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation details", &service.ValidationError{Details: "name is required"}, http.StatusBadRequest, "validation failed"},
		{"invalid parent", service.ErrInvalidParent, http.StatusBadRequest, service.ErrInvalidParent.Error()},
		{"cycle", service.ErrUnitCycle, http.StatusBadRequest, service.ErrUnitCycle.Error()},
		{"invalid unit", service.ErrInvalidUnit, http.StatusBadRequest, service.ErrInvalidUnit.Error()},
		{"auth", service.ErrAuth, http.StatusUnauthorized, "invalid credentials"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"protected", service.ErrProtectedRole, http.StatusForbidden, service.ErrProtectedRole.Error()},
		{"wrapped not found", fmt.Errorf("get job: %w", service.ErrNotFound), http.StatusNotFound, "not found"},
		{"duplicate name", service.ErrDuplicateName, http.StatusConflict, service.ErrDuplicateName.Error()},
		{"duplicate username", service.ErrDuplicateUsername, http.StatusConflict, service.ErrDuplicateUsername.Error()},
		{"duplicate in unit", service.ErrDuplicateNameInUnit, http.StatusConflict, service.ErrDuplicateNameInUnit.Error()},
		{"has personnel", service.ErrHasPersonnel, http.StatusConflict, service.ErrHasPersonnel.Error()},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	assert.Empty(t, sessionToken(req))

	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", sessionToken(req))

	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", sessionToken(req))
}
