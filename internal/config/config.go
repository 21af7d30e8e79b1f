package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL         = "http://localhost:5000/api"
	DefaultServePort      = 5000
	DefaultRequestTimeout = 10 * time.Second
	DefaultCacheTTL       = 30 * time.Second
)

// Environment overrides. They are applied after the file and flags and are
// never written back to the config file.
const (
	EnvAPIURL   = "TASKCONSOLE_API_URL"
	EnvRedisURL = "TASKCONSOLE_REDIS_URL"
	EnvLogLevel = "TASKCONSOLE_LOG_LEVEL"
	EnvDebug    = "DEBUG"
)

type Config struct {
	APIURL         string   `json:"api_url"`
	RequestTimeout string   `json:"request_timeout"`
	DBPath         string   `json:"db_path"`
	ServeEnabled   bool     `json:"serve_enabled"`
	ServePort      int      `json:"serve_port"`
	AllowedOrigins []string `json:"allowed_origins"`
	RedisURL       string   `json:"redis_url"`
	CacheTTL       string   `json:"cache_ttl"`
	LogPath        string   `json:"log_path"`
	LogLevel       string   `json:"log_level"`
}

func Default() Config {
	return Config{
		APIURL:    DefaultAPIURL,
		ServePort: DefaultServePort,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://localhost:3002",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:3001",
			"http://127.0.0.1:3002",
		},
		LogLevel: "info",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskconsole", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays environment overrides read through getenv.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if value := strings.TrimSpace(getenv(EnvAPIURL)); value != "" {
		cfg.APIURL = value
	}
	if value := strings.TrimSpace(getenv(EnvRedisURL)); value != "" {
		cfg.RedisURL = value
	}
	if value := strings.TrimSpace(getenv(EnvLogLevel)); value != "" {
		cfg.LogLevel = value
	}
	if debug, err := strconv.ParseBool(getenv(EnvDebug)); err == nil && debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func (c Config) Timeout() (time.Duration, error) {
	return parseDuration(c.RequestTimeout, DefaultRequestTimeout, "request_timeout")
}

func (c Config) CacheExpiry() (time.Duration, error) {
	return parseDuration(c.CacheTTL, DefaultCacheTTL, "cache_ttl")
}

func parseDuration(value string, fallback time.Duration, field string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", field)
	}
	return parsed, nil
}

// LocalAPIURL is the base URL of a backend served by this process.
func (c Config) LocalAPIURL() string {
	return fmt.Sprintf("http://localhost:%d/api", c.ServePort)
}
