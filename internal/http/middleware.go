package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fieldops/internal/domain"
	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ctxKey int

const userCtxKey ctxKey = iota

func withUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// currentUser the principal resolved by authenticate, or nil.
func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userCtxKey).(*domain.User)
	return u
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// instrument logs every request and records its latency under the route template.
func instrument(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			route := "unmatched"
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			elapsed := time.Since(start)
			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpLatency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

// authenticate resolves the session token to a freshly loaded user.
func authenticate(auth service.AuthService, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), sessionToken(r))
			if err != nil {
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// guard wraps h with a role policy check for (resource, action).
func guard(az service.Authorizer, resource, action string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: service.ErrAuth.Error()})
			return
		}
		if !az.Allow(u.Role, resource, action) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: service.ErrForbidden.Error()})
			return
		}
		h(w, r)
	}
}
