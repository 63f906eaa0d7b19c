package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"fieldops/internal/service"

	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

const sessionCookie = "sid"

// AuthHandler login, logout and the current principal.
type AuthHandler struct {
	authService  service.AuthService
	limiter      *limiter.Limiter
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(authService service.AuthService, lim *limiter.Limiter, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		limiter:      lim,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// rateLimit throttles per client IP. A store failure lets the request through.
func (h *AuthHandler) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next(w, r)
			return
		}
		lc, err := h.limiter.Get(r.Context(), h.limiter.GetIPKey(r))
		if err != nil {
			h.logger.Warn("Login rate limiter unavailable", zap.Error(err))
			next(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		if lc.Reached {
			loginAttempts.WithLabelValues("throttled").Inc()
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many login attempts"})
			return
		}
		next(w, r)
	}
}

// Login POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuth) {
			loginAttempts.WithLabelValues("rejected").Inc()
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   service.ErrAuth.Error(),
			})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	loginAttempts.WithLabelValues("ok").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    resp.User,
		"token":   resp.Token,
	})
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), sessionToken(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
