package httpapi

import (
	"net/http"

	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UserHandler personnel directory endpoints.
type UserHandler struct {
	userService service.UserService
	authService service.AuthService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, authService service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, authService: authService, logger: logger}
}

// ListUsers GET /api/users?unit_id=&role=&search=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.userService.ListUsers(r.Context(), service.ListUsersRequest{
		UnitID: q.Get("unit_id"),
		Role:   q.Get("role"),
		Search: q.Get("search"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	u, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser a new password or deactivation ends the user's open sessions.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.UserID = mux.Vars(r)["id"]
	u, err := h.userService.UpdateUser(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Password != nil || !u.IsActive {
		h.revokeSessions(r, u.UserID)
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.revokeSessions(r, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *UserHandler) revokeSessions(r *http.Request, userID string) {
	if err := h.authService.RevokeUserSessions(r.Context(), userID); err != nil {
		h.logger.Warn("Session revoke failed", zap.String("user_id", userID), zap.Error(err))
	}
}
