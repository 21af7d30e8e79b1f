package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.ServePort != DefaultServePort {
		t.Fatalf("expected default port, got %d", cfg.ServePort)
	}
	if len(cfg.AllowedOrigins) != 6 {
		t.Fatalf("expected 6 default origins, got %d", len(cfg.AllowedOrigins))
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.APIURL = "http://tasks.internal/api"
	cfg.DBPath = "/tmp/tasks.db"
	cfg.CacheTTL = "1m"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.APIURL != cfg.APIURL || loaded.DBPath != cfg.DBPath || loaded.CacheTTL != cfg.CacheTTL {
		t.Fatalf("unexpected config after round trip: %+v", loaded)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvAPIURL:   "http://remote:9000/api",
		EnvRedisURL: "redis://cache:6379/0",
		EnvDebug:    "1",
	}
	cfg := ApplyEnv(Default(), func(key string) string { return env[key] })

	if cfg.APIURL != "http://remote:9000/api" {
		t.Fatalf("expected api url override, got %q", cfg.APIURL)
	}
	if cfg.RedisURL != "redis://cache:6379/0" {
		t.Fatalf("expected redis override, got %q", cfg.RedisURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
}

func TestApplyEnvIgnoresBlankValues(t *testing.T) {
	cfg := ApplyEnv(Default(), func(string) string { return "  " })
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %q", cfg.LogLevel)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	timeout, err := cfg.Timeout()
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if timeout != DefaultRequestTimeout {
		t.Fatalf("expected default timeout, got %v", timeout)
	}

	cfg.RequestTimeout = "0s"
	if timeout, err = cfg.Timeout(); err != nil || timeout != 0 {
		t.Fatalf("expected zero timeout, got %v (%v)", timeout, err)
	}

	cfg.CacheTTL = "2m"
	ttl, err := cfg.CacheExpiry()
	if err != nil || ttl != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %v (%v)", ttl, err)
	}

	cfg.CacheTTL = "-1s"
	if _, err := cfg.CacheExpiry(); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
	cfg.RequestTimeout = "soon"
	if _, err := cfg.Timeout(); err == nil {
		t.Fatalf("expected error for invalid timeout")
	}
}

func TestLocalAPIURL(t *testing.T) {
	cfg := Default()
	cfg.ServePort = 8081
	if got := cfg.LocalAPIURL(); got != "http://localhost:8081/api" {
		t.Fatalf("unexpected local api url %q", got)
	}
}
