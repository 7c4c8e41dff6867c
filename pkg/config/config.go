// Package config loads application configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server Server `yaml:"server"`
	Store  Store  `yaml:"store"`
	Auth   Auth   `yaml:"auth"`
	Media  Media  `yaml:"media"`
	Log    Log    `yaml:"log"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// Store holds relational store configuration
type Store struct {
	// Driver is "sqlite" or "postgres"
	Driver string `yaml:"driver"`
	// DSN is the sqlite file path or postgres connection URL
	DSN string `yaml:"dsn"`
}

// Auth holds session and bootstrap configuration
type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	CookieName string        `yaml:"cookie_name"`
	// ResetToken is the shared recovery token for the password reset endpoint
	ResetToken string `yaml:"reset_token"`
	// BootstrapEmail/BootstrapPassword seed a fallback owner account at startup
	BootstrapEmail    string `yaml:"bootstrap_email"`
	BootstrapPassword string `yaml:"bootstrap_password"`
}

// Media holds map image storage configuration
type Media struct {
	MapImageDir string `yaml:"map_image_dir"`
}

// Log holds logging configuration
type Log struct {
	Level string `yaml:"level"`
}

// Load reads configuration from the file named by NETFUSION_CONFIG (if set),
// then applies environment variable overrides, then validates.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("NETFUSION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
			CORSOrigins:     []string{"*"},
		},
		Store: Store{
			Driver: "sqlite",
			DSN:    "/data/netfusion.db",
		},
		Auth: Auth{
			JWTSecret:         "dev-insecure-change-me",
			SessionTTL:        7 * 24 * time.Hour,
			CookieName:        "nf_session",
			ResetToken:        "dev-reset",
			BootstrapEmail:    "admin@example.com",
			BootstrapPassword: "ChangeMeNow1!",
		},
		Media: Media{
			MapImageDir: "/data/maps",
		},
		Log: Log{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("NETFUSION_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("NETFUSION_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("NETFUSION_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("NETFUSION_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("NETFUSION_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("NETFUSION_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("NETFUSION_HEALTH_PORT", cfg.Server.HealthPort)
	if origins := getEnv("NETFUSION_CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = splitAndTrim(origins)
	}

	cfg.Store.Driver = getEnv("NETFUSION_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("NETFUSION_STORE_DSN", cfg.Store.DSN)

	cfg.Auth.JWTSecret = getEnv("NETFUSION_JWT_SECRET", cfg.Auth.JWTSecret)
	if min := getEnvInt("NETFUSION_JWT_EXP_MIN", 0); min > 0 {
		cfg.Auth.SessionTTL = time.Duration(min) * time.Minute
	}
	cfg.Auth.CookieName = getEnv("NETFUSION_COOKIE_NAME", cfg.Auth.CookieName)
	cfg.Auth.ResetToken = getEnv("NETFUSION_RESET_TOKEN", cfg.Auth.ResetToken)
	cfg.Auth.BootstrapEmail = getEnv("NETFUSION_BOOTSTRAP_EMAIL", cfg.Auth.BootstrapEmail)
	cfg.Auth.BootstrapPassword = getEnv("NETFUSION_BOOTSTRAP_PASSWORD", cfg.Auth.BootstrapPassword)

	cfg.Media.MapImageDir = getEnv("NETFUSION_MAP_IMAGE_DIR", cfg.Media.MapImageDir)

	cfg.Log.Level = getEnv("NETFUSION_LOG_LEVEL", cfg.Log.Level)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid store driver: %s (must be sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store DSN is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
