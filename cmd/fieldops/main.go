package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops/internal/authz"
	"fieldops/internal/config"
	httpapi "fieldops/internal/http"
	"fieldops/internal/migrations"
	"fieldops/internal/repository"
	"fieldops/internal/service"
	"fieldops/internal/store"
	"fieldops/pkg/database"
	"fieldops/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type repositories struct {
	units repository.UnitsRepository
	users repository.UsersRepository
	forms repository.FormsRepository
	jobs  repository.JobsRepository
}

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "fieldops")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			if err := migrations.Up(d); err != nil {
				log.Fatal("Schema migration failed", zap.Error(err))
			}
			db = d
			log.Info("DB enabled", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory repositories", zap.Error(err))
		}
	}

	var repos repositories
	if db != nil {
		repos = repositories{
			units: repository.NewPostgresUnitsRepository(db),
			users: repository.NewPostgresUsersRepository(db),
			forms: repository.NewPostgresFormsRepository(db),
			jobs:  repository.NewPostgresJobsRepository(db),
		}
	} else {
		mdb := repository.NewMemoryDB()
		repos = repositories{
			units: repository.NewMemoryUnitsRepo(mdb),
			users: repository.NewMemoryUsersRepo(mdb),
			forms: repository.NewMemoryFormsRepo(mdb),
			jobs:  repository.NewMemoryJobsRepo(mdb),
		}
	}

	var kv store.KV = store.NewMemoryKV()
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unavailable, sessions kept in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
		}
		cancel()
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		log.Fatal("Role policy failed to load", zap.Error(err))
	}

	var geocoder service.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = service.NewNominatimGeocoder(cfg.GeocoderURL, log)
	}

	units := service.NewUnitService(repos.units, cfg.CollationLang, log)
	users := service.NewUserService(repos.users, repos.units, service.NewBcryptHasher(cfg.Auth.BcryptCost), log)
	auth := service.NewAuthService(users, kv, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour, log)
	forms := service.NewFormService(repos.forms, log)
	jobs := service.NewJobService(repos.jobs, repos.forms, repos.users, repos.units, enforcer, geocoder, log)

	if cfg.Seed.Enabled {
		if err := seedAdmin(context.Background(), cfg, units, users, log); err != nil {
			log.Error("Admin seed failed", zap.Error(err))
		}
	}

	opts := httpapi.Options{
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		LoginRate:    cfg.Auth.LoginRate,
		SecureCookie: cfg.HTTP.CookieSecure,
	}
	if db != nil {
		opts.Ping = db.PingContext
	}
	router, err := httpapi.NewRouter(httpapi.Services{
		Auth:       auth,
		Units:      units,
		Users:      users,
		Forms:      forms,
		Jobs:       jobs,
		Authorizer: enforcer,
	}, opts, log)
	if err != nil {
		log.Fatal("Router setup failed", zap.Error(err))
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
