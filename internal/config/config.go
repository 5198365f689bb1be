package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"Strata/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DatabaseURL string
	StoreDriver string
	SQLitePath  string

	TokenKey   string
	ListenAddr string
	TLSCert    string
	TLSKey     string

	Log logger.Config

	WatchDir      string
	WatchPatterns []string
	WatchProject  string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DatabaseURL: getenv("DATABASE_URL"),
		StoreDriver: strings.ToLower(get("STORE_DRIVER", DriverSQLite)),
		SQLitePath:  get("SQLITE_PATH", "strata_project.db"),
		TokenKey:    getenv("TOKEN_KEY"),
		ListenAddr:  get("LISTEN_ADDR", ":443"),
		TLSCert:     get("TLS_CERT", "server.crt"),
		TLSKey:      get("TLS_KEY", "server.key"),
		Log:         logger.DefaultConfig(),

		WatchDir:      getenv("WATCH_DIR"),
		WatchPatterns: splitList(get("WATCH_PATTERNS", "**/*.xlsx,**/*.csv")),
		WatchProject:  getenv("WATCH_PROJECT"),
	}
	cfg.Log.Level = logger.ParseLevel(getenv("LOG_LEVEL"))
	cfg.Log.Format = strings.ToLower(get("LOG_FORMAT", "text"))

	if cfg.TokenKey == "" {
		return Config{}, errors.New("TOKEN_KEY environment variable is not set")
	}
	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.StoreDriver)
	}
	if cfg.WatchDir != "" && cfg.WatchProject == "" {
		return Config{}, errors.New("WATCH_PROJECT is required when WATCH_DIR is set")
	}
	return cfg, nil
}

// TLS reports whether both certificate and key files exist.
func (c Config) TLS() bool {
	for _, f := range []string{c.TLSCert, c.TLSKey} {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
