/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	Timezone    string // IANA zone the lesson schedule is written in (default: local)

	// Admin session
	JWTSigningKey     string // Optional; derived from the admin password when empty
	AdminPassword     string
	AdminPasswordHash string // bcrypt hash, preferred over AdminPassword
	SessionTTL        time.Duration
	CookieSecure      bool
	LoginMaxFailures  int
	LoginLockout      time.Duration
	TestbedAPIKey     string

	// Cache
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event fan-out between instances
	NATSURL    string
	InstanceID string

	// Leader election for singleton jobs (requires Redis)
	LeaderElectionEnabled bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Upstream services
	GeocoderURL       string
	WeatherURL        string
	DeparturesURL     string
	AffirmationURL    string
	TrainStationID    string
	UpstreamTimeout   time.Duration
	UpstreamUserAgent string

	// Settings backups
	BackupDir      string
	BackupInterval time.Duration

	// S3 Object Storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the
// result for running the server.
func Load() (*Config, error) {
	cfg, err := LoadForTools()
	if err != nil {
		return nil, err
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("CLASSBOARD_ADMIN_PASSWORD or CLASSBOARD_ADMIN_PASSWORD_HASH must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.TestbedAPIKey == "" {
		return nil, fmt.Errorf("CLASSBOARD_TESTBED_API_KEY must be set in production")
	}

	return cfg, nil
}

// LoadForTools is Load without the checks that only matter to a serving
// process. The maintenance commands use it.
func LoadForTools() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"CLASSBOARD_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"CLASSBOARD_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"CLASSBOARD_HTTP_PORT", "PORT"}, 8080),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"CLASSBOARD_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:       getEnvAny([]string{"CLASSBOARD_DB_DSN", "DB_URL"}, "classboard.db"),
		Timezone:    getEnvAny([]string{"CLASSBOARD_TIMEZONE"}, ""),

		JWTSigningKey:     getEnvAny([]string{"CLASSBOARD_JWT_SIGNING_KEY", "JWT_SECRET"}, ""),
		AdminPassword:     getEnvAny([]string{"CLASSBOARD_ADMIN_PASSWORD", "ADMIN_PASSWORD"}, ""),
		AdminPasswordHash: getEnvAny([]string{"CLASSBOARD_ADMIN_PASSWORD_HASH"}, ""),
		SessionTTL:        time.Duration(getEnvIntAny([]string{"CLASSBOARD_SESSION_TTL_HOURS"}, 24)) * time.Hour,
		CookieSecure:      getEnvBoolAny([]string{"CLASSBOARD_COOKIE_SECURE"}, false),
		LoginMaxFailures:  getEnvIntAny([]string{"CLASSBOARD_LOGIN_MAX_FAILURES"}, 5),
		LoginLockout:      time.Duration(getEnvIntAny([]string{"CLASSBOARD_LOGIN_LOCKOUT_MINUTES"}, 15)) * time.Minute,
		TestbedAPIKey:     getEnvAny([]string{"CLASSBOARD_TESTBED_API_KEY", "TESTBED_API_KEY"}, ""),

		RedisEnabled:  getEnvBoolAny([]string{"CLASSBOARD_REDIS_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"CLASSBOARD_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"CLASSBOARD_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"CLASSBOARD_REDIS_DB"}, 0),

		NATSURL:    getEnvAny([]string{"CLASSBOARD_NATS_URL"}, ""),
		InstanceID: getEnvAny([]string{"CLASSBOARD_INSTANCE_ID"}, ""),

		LeaderElectionEnabled: getEnvBoolAny([]string{"CLASSBOARD_LEADER_ELECTION_ENABLED"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"CLASSBOARD_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"CLASSBOARD_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"CLASSBOARD_TRACING_SAMPLE_RATE"}, 1.0),

		GeocoderURL:       getEnvAny([]string{"CLASSBOARD_GEOCODER_URL"}, "https://nominatim.openstreetmap.org"),
		WeatherURL:        getEnvAny([]string{"CLASSBOARD_WEATHER_URL"}, "https://api.brightsky.dev"),
		DeparturesURL:     getEnvAny([]string{"CLASSBOARD_DEPARTURES_URL"}, "https://v6.db.transport.rest"),
		AffirmationURL:    getEnvAny([]string{"CLASSBOARD_AFFIRMATION_URL"}, "https://www.affirmations.dev"),
		TrainStationID:    getEnvAny([]string{"CLASSBOARD_TRAIN_STATION_ID"}, "8000294"),
		UpstreamTimeout:   time.Duration(getEnvIntAny([]string{"CLASSBOARD_UPSTREAM_TIMEOUT_SECONDS"}, 10)) * time.Second,
		UpstreamUserAgent: getEnvAny([]string{"CLASSBOARD_USER_AGENT"}, "ClassboardDashboard/1.0"),

		BackupDir:      getEnvAny([]string{"CLASSBOARD_BACKUP_DIR"}, ""),
		BackupInterval: time.Duration(getEnvIntAny([]string{"CLASSBOARD_BACKUP_INTERVAL_HOURS"}, 0)) * time.Hour,

		S3AccessKeyID:     getEnvAny([]string{"CLASSBOARD_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"CLASSBOARD_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"CLASSBOARD_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"CLASSBOARD_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"CLASSBOARD_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"CLASSBOARD_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("CLASSBOARD_DB_DSN must be provided")
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("CLASSBOARD_SESSION_TTL_HOURS must be positive")
	}

	if cfg.LoginMaxFailures <= 0 {
		return nil, fmt.Errorf("CLASSBOARD_LOGIN_MAX_FAILURES must be positive")
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid CLASSBOARD_TIMEZONE %q: %w", cfg.Timezone, err)
		}
	}

	if strings.EqualFold(cfg.Environment, "production") {
		cfg.CookieSecure = getEnvBoolAny([]string{"CLASSBOARD_COOKIE_SECURE"}, true)
	}

	if cfg.LeaderElectionEnabled && !cfg.RedisEnabled {
		return nil, fmt.Errorf("CLASSBOARD_LEADER_ELECTION_ENABLED requires CLASSBOARD_REDIS_ENABLED")
	}

	if cfg.S3Bucket != "" && (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
		return nil, fmt.Errorf("CLASSBOARD_S3_ACCESS_KEY_ID and CLASSBOARD_S3_SECRET_ACCESS_KEY must be set together")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// HTTPAddr returns the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"DB_URL":          "use CLASSBOARD_DB_DSN with CLASSBOARD_DB_BACKEND",
		"ADMIN_PASSWORD":  "use CLASSBOARD_ADMIN_PASSWORD or CLASSBOARD_ADMIN_PASSWORD_HASH",
		"JWT_SECRET":      "use CLASSBOARD_JWT_SIGNING_KEY",
		"TESTBED_API_KEY": "use CLASSBOARD_TESTBED_API_KEY",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
