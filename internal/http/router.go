package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"fieldops/internal/authz"
	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// Services everything the API delegates to.
type Services struct {
	Auth       service.AuthService
	Units      service.UnitService
	Users      service.UserService
	Forms      service.FormService
	Jobs       service.JobService
	Authorizer service.Authorizer
}

type Options struct {
	// CORSOrigins empty disables CORS handling.
	CORSOrigins []string
	// LoginRate limiter format, e.g. "20-M". Empty disables throttling.
	LoginRate    string
	SecureCookie bool
	// Ping backs /healthz when set.
	Ping func(ctx context.Context) error
}

// Router the HTTP surface: /api routes plus /healthz and /metrics.
type Router struct {
	mux     *mux.Router
	handler http.Handler
	logger  *zap.Logger
}

func NewRouter(svc Services, opts Options, logger *zap.Logger) (*Router, error) {
	var lim *limiter.Limiter
	if opts.LoginRate != "" {
		rate, err := limiter.NewRateFromFormatted(opts.LoginRate)
		if err != nil {
			return nil, fmt.Errorf("parse login rate %q: %w", opts.LoginRate, err)
		}
		lim = limiter.New(memory.NewStore(), rate)
	}

	r := &Router{mux: mux.NewRouter(), logger: logger}
	r.mux.Use(instrument(logger))
	r.mux.HandleFunc("/healthz", healthz(opts.Ping)).Methods(http.MethodGet)
	r.mux.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authHandler := NewAuthHandler(svc.Auth, lim, opts.SecureCookie, logger)
	api := r.mux.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", authHandler.rateLimit(authHandler.Login)).Methods(http.MethodPost)
	api.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)

	priv := api.NewRoute().Subrouter()
	priv.Use(authenticate(svc.Auth, logger))
	priv.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)
	r.registerUnitRoutes(priv, svc.Authorizer, NewUnitHandler(svc.Units, logger))
	r.registerUserRoutes(priv, svc.Authorizer, NewUserHandler(svc.Users, svc.Auth, logger))
	r.registerFormRoutes(priv, svc.Authorizer, NewFormHandler(svc.Forms, logger))
	r.registerJobRoutes(priv, svc.Authorizer, NewJobHandler(svc.Jobs, svc.Users, svc.Units, logger))

	r.handler = r.mux
	if len(opts.CORSOrigins) > 0 {
		r.handler = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
		}).Handler(r.mux)
	}
	return r, nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerUnitRoutes(api *mux.Router, az service.Authorizer, h *UnitHandler) {
	api.HandleFunc("/units", guard(az, authz.ResUnits, authz.ActRead, h.ListUnits)).Methods(http.MethodGet)
	api.HandleFunc("/units", guard(az, authz.ResUnits, authz.ActCreate, h.CreateUnit)).Methods(http.MethodPost)
	api.HandleFunc("/units/tree", guard(az, authz.ResUnits, authz.ActRead, h.Tree)).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}", guard(az, authz.ResUnits, authz.ActRead, h.GetUnit)).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}", guard(az, authz.ResUnits, authz.ActUpdate, h.UpdateUnit)).Methods(http.MethodPut)
	api.HandleFunc("/units/{id}", guard(az, authz.ResUnits, authz.ActDelete, h.DeleteUnit)).Methods(http.MethodDelete)
}

func (r *Router) registerUserRoutes(api *mux.Router, az service.Authorizer, h *UserHandler) {
	api.HandleFunc("/users", guard(az, authz.ResUsers, authz.ActRead, h.ListUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users", guard(az, authz.ResUsers, authz.ActCreate, h.CreateUser)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", guard(az, authz.ResUsers, authz.ActRead, h.GetUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", guard(az, authz.ResUsers, authz.ActUpdate, h.UpdateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", guard(az, authz.ResUsers, authz.ActDelete, h.DeleteUser)).Methods(http.MethodDelete)
}

func (r *Router) registerFormRoutes(api *mux.Router, az service.Authorizer, h *FormHandler) {
	api.HandleFunc("/forms", guard(az, authz.ResForms, authz.ActRead, h.ListForms)).Methods(http.MethodGet)
	api.HandleFunc("/forms", guard(az, authz.ResForms, authz.ActCreate, h.CreateForm)).Methods(http.MethodPost)
	api.HandleFunc("/forms/{id}", guard(az, authz.ResForms, authz.ActRead, h.GetForm)).Methods(http.MethodGet)
	api.HandleFunc("/forms/{id}", guard(az, authz.ResForms, authz.ActUpdate, h.UpdateForm)).Methods(http.MethodPut)
	api.HandleFunc("/forms/{id}", guard(az, authz.ResForms, authz.ActDelete, h.DeleteForm)).Methods(http.MethodDelete)
}

func (r *Router) registerJobRoutes(api *mux.Router, az service.Authorizer, h *JobHandler) {
	api.HandleFunc("/jobs", guard(az, authz.ResJobs, authz.ActRead, h.ListJobs)).Methods(http.MethodGet)
	api.HandleFunc("/jobs", guard(az, authz.ResJobs, authz.ActCreate, h.CreateJob)).Methods(http.MethodPost)
	api.HandleFunc("/jobs/export", guard(az, authz.ResJobs, authz.ActExport, h.Export)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", guard(az, authz.ResJobs, authz.ActRead, h.GetJob)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", guard(az, authz.ResJobs, authz.ActUpdate, h.UpdateJob)).Methods(http.MethodPut)
	api.HandleFunc("/jobs/{id}/delegate", guard(az, authz.ResJobs, authz.ActDelegate, h.DelegateJob)).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}/delegation-targets", guard(az, authz.ResJobs, authz.ActDelegate, h.DelegationTargets)).Methods(http.MethodGet)
	api.HandleFunc("/job-history/{jobId}", guard(az, authz.ResHistory, authz.ActRead, h.History)).Methods(http.MethodGet)
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
