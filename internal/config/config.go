package config

import (
	"os"
	"strconv"
	"strings"

	commoncfg "fieldops/pkg/config"

	"github.com/joho/godotenv"
)

// Config fieldops HTTP API configuration.
type Config struct {
	HTTP struct {
		Addr         string
		CORSOrigins  []string
		CookieSecure bool
	}
	DBEnabled    bool
	Database     commoncfg.DatabaseConfig
	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	Log          struct {
		Level  string
		Format string
	}
	Auth struct {
		BcryptCost      int
		SessionTTLHours int
		LoginRate       string
	}
	CollationLang string
	GeocoderURL   string
	Seed          struct {
		Enabled       bool
		AdminUsername string
		AdminPassword string
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars take precedence.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ORIGINS", ""))
	cfg.HTTP.CookieSecure = getEnv("COOKIE_SECURE", "false") == "true"

	// Default to true; main falls back to in-memory repositories when the DB is unreachable.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "fieldops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = cfg.Database.MaxConns / 2

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.BcryptCost = parseInt(getEnv("BCRYPT_COST", "10"), 10)
	cfg.Auth.SessionTTLHours = parseInt(getEnv("SESSION_TTL_HOURS", "336"), 336)
	cfg.Auth.LoginRate = getEnv("LOGIN_RATE", "20-M")

	cfg.CollationLang = getEnv("COLLATION_LANG", "tr")
	cfg.GeocoderURL = getEnv("GEOCODER_URL", "")

	cfg.Seed.Enabled = getEnv("SEED_ADMIN", "true") != "false"
	cfg.Seed.AdminUsername = getEnv("ADMIN_USERNAME", "admin")
	cfg.Seed.AdminPassword = getEnv("ADMIN_PASSWORD", "ChangeMe123!")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
