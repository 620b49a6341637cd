// Package config loads daemon configuration with precedence ENV > file >
// defaults and validates it into an immutable AppConfig.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the validated, immutable configuration for one daemon process.
type AppConfig struct {
	ListenAddr      string        `yaml:"listen"`
	BackendURL      string        `yaml:"backend_url"`
	DataDir         string        `yaml:"data_dir"`
	SnapshotBackend string        `yaml:"snapshot_backend"` // file | memory | redis
	RedisAddr       string        `yaml:"redis_addr"`
	FavoritesDB     string        `yaml:"favorites_db"`
	LogLevel        string        `yaml:"log_level"`
	RateLimitRPM    int           `yaml:"rate_limit_rpm"` // requests/minute/IP, 0 disables
	CORSOrigins     []string      `yaml:"cors_origins"`
	ConnectRPS      float64       `yaml:"connect_rps"` // provider connect pacing
	TracingService  string        `yaml:"tracing_service"`
	TracingExporter string        `yaml:"tracing_exporter"` // grpc | http
	TracingEndpoint string        `yaml:"tracing_endpoint"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
}

func defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":8090",
		BackendURL:      "http://localhost:8080",
		DataDir:         "/var/lib/hackhub",
		SnapshotBackend: "file",
		LogLevel:        "info",
		RateLimitRPM:    120,
		ConnectRPS:      5,
		TracingExporter: "grpc",
		TracingEndpoint: "localhost:4317",
		SessionTTL:      24 * time.Hour,
	}
}

// Load builds the AppConfig: defaults, overlaid by the optional YAML file at
// path, overlaid by environment variables, then validated.
func Load(path string) (AppConfig, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ListenAddr = ParseString("HACKHUB_LISTEN", cfg.ListenAddr)
	cfg.BackendURL = ParseString("HACKHUB_BACKEND", cfg.BackendURL)
	cfg.DataDir = ParseString("HACKHUB_DATA", cfg.DataDir)
	cfg.SnapshotBackend = ParseString("HACKHUB_SNAPSHOT_BACKEND", cfg.SnapshotBackend)
	cfg.RedisAddr = ParseString("HACKHUB_REDIS_ADDR", cfg.RedisAddr)
	cfg.FavoritesDB = ParseString("HACKHUB_FAVORITES_DB", cfg.FavoritesDB)
	cfg.LogLevel = ParseString("HACKHUB_LOG_LEVEL", cfg.LogLevel)
	cfg.RateLimitRPM = ParseInt("HACKHUB_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.TracingService = ParseString("HACKHUB_TRACING_SERVICE", cfg.TracingService)
	cfg.TracingExporter = ParseString("HACKHUB_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("HACKHUB_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.SessionTTL = ParseDuration("HACKHUB_SESSION_TTL", cfg.SessionTTL)

	if origins := ParseString("HACKHUB_CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.FavoritesDB == "" {
		cfg.FavoritesDB = filepath.Join(cfg.DataDir, "favorites.db")
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c AppConfig) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend URL %q", c.BackendURL)
	}
	switch c.SnapshotBackend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("invalid snapshot backend %q", c.SnapshotBackend)
	}
	if c.SnapshotBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("snapshot backend redis requires a redis address")
	}
	if c.TracingService != "" {
		switch c.TracingExporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("invalid tracing exporter %q", c.TracingExporter)
		}
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.ConnectRPS <= 0 {
		return fmt.Errorf("connect pacing must be positive")
	}
	return nil
}
