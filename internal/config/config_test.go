package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"TOKEN_KEY": "secret"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "strata_project.db" || cfg.ListenAddr != ":443" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.WatchPatterns) != 2 || cfg.WatchPatterns[0] != "**/*.xlsx" {
		t.Errorf("unexpected watch patterns %v", cfg.WatchPatterns)
	}
	if cfg.Log.Level != slog.LevelInfo || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"TOKEN_KEY":      "secret",
		"STORE_DRIVER":   "Postgres",
		"DATABASE_URL":   "postgres://db/strata",
		"LOG_LEVEL":      "debug",
		"LOG_FORMAT":     "JSON",
		"WATCH_DIR":      "/srv/drop",
		"WATCH_PROJECT":  "abc",
		"WATCH_PATTERNS": " lab/*.csv , ,*.xlsx",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.DatabaseURL != "postgres://db/strata" {
		t.Errorf("unexpected store config %+v", cfg)
	}
	if cfg.Log.Level != slog.LevelDebug || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if len(cfg.WatchPatterns) != 2 || cfg.WatchPatterns[0] != "lab/*.csv" {
		t.Errorf("unexpected watch patterns %v", cfg.WatchPatterns)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"bad driver", map[string]string{"TOKEN_KEY": "k", "STORE_DRIVER": "mysql"}},
		{"watch without project", map[string]string{"TOKEN_KEY": "k", "WATCH_DIR": "/tmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEnv(env(tt.env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTLS(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{TLSCert: filepath.Join(dir, "server.crt"), TLSKey: filepath.Join(dir, "server.key")}
	if cfg.TLS() {
		t.Fatal("missing files should disable TLS")
	}
	for _, f := range []string{cfg.TLSCert, cfg.TLSKey} {
		if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if !cfg.TLS() {
		t.Fatal("expected TLS with both files present")
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"TOKEN_KEY":   "secret",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "site.db"),
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	store, err := cfg.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	if _, err := store.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
}
