// Package config resolves the layered agent configuration: built-in
// defaults, an optional JSON or YAML document, and environment variable
// overrides applied through a statically declared override table.
//
// The resolved Snapshot is immutable by convention: nothing in the
// runtime mutates it after Resolve returns, and updates are expressed by
// resolving again.
package config

import (
	"fmt"
	"strings"
)

// Snapshot is the resolved agent configuration for the process lifetime.
type Snapshot struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	EntryPoint  string `json:"entry_point" yaml:"entry_point"`

	Memory         MemoryConfig         `json:"memory" yaml:"memory"`
	Tools          ToolsConfig          `json:"tools" yaml:"tools"`
	Logging        LoggingConfig        `json:"logging" yaml:"logging"`
	Security       SecurityConfig       `json:"security" yaml:"security"`
	Monitoring     MonitoringConfig     `json:"monitoring" yaml:"monitoring"`
	VersionControl VersionControlConfig `json:"version_control" yaml:"version_control"`
}

// MemoryConfig controls the agent's memory component.
type MemoryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Persistence bool   `json:"persistence" yaml:"persistence"`
	Path        string `json:"path" yaml:"path"`
	MaxEntries  int    `json:"max_entries" yaml:"max_entries"`
}

// ToolsConfig controls tool loading and dispatch limits.
type ToolsConfig struct {
	AutoDiscover   bool   `json:"auto_discover" yaml:"auto_discover"`
	Directory      string `json:"directory" yaml:"directory"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoggingConfig declares how process logging should be configured.
// The core never mutates global logger state from these values; the CLI
// builds a logger from them and passes it into components.
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	File        string `json:"file" yaml:"file"`
	MaxSizeMB   int    `json:"max_size_mb" yaml:"max_size_mb"`
	BackupCount int    `json:"backup_count" yaml:"backup_count"`
}

// RateLimitConfig declares request rate limiting knobs.
// Enforcement is out of scope for the runtime core.
type RateLimitConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled"`
	MaxRequests   int  `json:"max_requests" yaml:"max_requests"`
	WindowSeconds int  `json:"window_seconds" yaml:"window_seconds"`
}

// CORSConfig declares cross-origin knobs for the HTTP surface.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// SecurityConfig declares authentication and origin knobs.
// Enforcement is out of scope for the runtime core.
type SecurityConfig struct {
	RequireAuthentication bool            `json:"require_authentication" yaml:"require_authentication"`
	APIKey                string          `json:"api_key" yaml:"api_key"`
	AllowedOrigins        []string        `json:"allowed_origins" yaml:"allowed_origins"`
	RateLimit             RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	CORS                  CORSConfig      `json:"cors" yaml:"cors"`
}

// HealthCheckConfig controls the health endpoints and the background
// readiness re-probe schedule.
type HealthCheckConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Endpoint      string `json:"endpoint" yaml:"endpoint"`
	LiveEndpoint  string `json:"live_endpoint" yaml:"live_endpoint"`
	ReadyEndpoint string `json:"ready_endpoint" yaml:"ready_endpoint"`
	// Schedule is a UTC cron expression for periodic tool readiness
	// probes. Empty means interval polling at the scheduler default.
	Schedule string `json:"schedule" yaml:"schedule"`
}

// MonitoringConfig controls the HTTP monitoring surface and telemetry.
type MonitoringConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// OTLPEndpoint enables trace export over OTLP/HTTP when non-empty.
	OTLPEndpoint string            `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	HealthCheck  HealthCheckConfig `json:"health_check" yaml:"health_check"`
}

// VersionControlConfig declares auto-commit knobs for config changes.
type VersionControlConfig struct {
	AutoCommit    bool   `json:"auto_commit" yaml:"auto_commit"`
	Branch        string `json:"branch" yaml:"branch"`
	Remote        string `json:"remote" yaml:"remote"`
	CommitMessage string `json:"commit_message" yaml:"commit_message"`
}

// Default returns the built-in configuration used when no document is
// found and no overrides apply.
func Default() Snapshot {
	return Snapshot{
		Name:        "windlass-agent",
		Version:     "0.1.0",
		Description: "A Windlass agent",
		EntryPoint:  "cmd/windlass",
		Memory: MemoryConfig{
			Enabled:     true,
			Persistence: true,
			Path:        ".windlass/memory.db",
			MaxEntries:  1000,
		},
		Tools: ToolsConfig{
			AutoDiscover:   true,
			Directory:      "tools",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			File:        "",
			MaxSizeMB:   10,
			BackupCount: 5,
		},
		Security: SecurityConfig{
			RequireAuthentication: false,
			APIKey:                "",
			AllowedOrigins:        []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:       true,
				MaxRequests:   100,
				WindowSeconds: 60,
			},
			CORS: CORSConfig{
				Enabled:          true,
				AllowCredentials: true,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
				AllowedHeaders:   []string{"*"},
				ExposedHeaders:   []string{},
				MaxAge:           600,
			},
		},
		Monitoring: MonitoringConfig{
			Enabled:  true,
			Host:     "0.0.0.0",
			Port:     9090,
			Endpoint: "/metrics",
			HealthCheck: HealthCheckConfig{
				Enabled:       true,
				Endpoint:      "/health",
				LiveEndpoint:  "/health/live",
				ReadyEndpoint: "/health/ready",
			},
		},
		VersionControl: VersionControlConfig{
			AutoCommit:    false,
			Branch:        "main",
			Remote:        "origin",
			CommitMessage: "chore: auto-update config",
		},
	}
}

// ValidationError reports one or more configuration fields that failed
// schema or range validation. It aborts startup before the agent reaches
// Ready.
type ValidationError struct {
	Problems []FieldError
}

// FieldError pinpoints a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "config: validation failed"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Message))
	}
	return "config: invalid configuration: " + strings.Join(parts, "; ")
}

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var validLogFormats = map[string]struct{}{
	"text": {}, "json": {},
}

// Validate checks schema and range constraints. It collects every
// violation rather than stopping at the first.
func (s *Snapshot) Validate() error {
	var problems []FieldError
	add := func(field, format string, args ...any) {
		problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(s.Name) == "" {
		add("name", "must not be empty")
	}
	if s.Memory.MaxEntries < 1 || s.Memory.MaxEntries > 100000 {
		add("memory.max_entries", "must be in [1, 100000], got %d", s.Memory.MaxEntries)
	}
	if s.Tools.TimeoutSeconds < 1 || s.Tools.TimeoutSeconds > 300 {
		add("tools.timeout_seconds", "must be in [1, 300], got %d", s.Tools.TimeoutSeconds)
	}
	level := strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if _, ok := validLogLevels[level]; !ok {
		add("logging.level", "must be one of debug, info, warn, error; got %q", s.Logging.Level)
	}
	format := strings.ToLower(strings.TrimSpace(s.Logging.Format))
	if _, ok := validLogFormats[format]; !ok {
		add("logging.format", "must be one of text, json; got %q", s.Logging.Format)
	}
	if s.Logging.MaxSizeMB < 1 || s.Logging.MaxSizeMB > 100 {
		add("logging.max_size_mb", "must be in [1, 100], got %d", s.Logging.MaxSizeMB)
	}
	if s.Logging.BackupCount < 0 || s.Logging.BackupCount > 100 {
		add("logging.backup_count", "must be in [0, 100], got %d", s.Logging.BackupCount)
	}
	if s.Security.RateLimit.MaxRequests < 1 || s.Security.RateLimit.MaxRequests > 10000 {
		add("security.rate_limit.max_requests", "must be in [1, 10000], got %d", s.Security.RateLimit.MaxRequests)
	}
	if s.Security.RateLimit.WindowSeconds < 1 || s.Security.RateLimit.WindowSeconds > 3600 {
		add("security.rate_limit.window_seconds", "must be in [1, 3600], got %d", s.Security.RateLimit.WindowSeconds)
	}
	if s.Security.CORS.MaxAge < 0 || s.Security.CORS.MaxAge > 86400 {
		add("security.cors.max_age", "must be in [0, 86400], got %d", s.Security.CORS.MaxAge)
	}
	if s.Monitoring.Port < 1024 || s.Monitoring.Port > 65535 {
		add("monitoring.port", "must be in [1024, 65535], got %d", s.Monitoring.Port)
	}
	if s.Monitoring.Enabled {
		if !strings.HasPrefix(s.Monitoring.Endpoint, "/") {
			add("monitoring.endpoint", "must start with /, got %q", s.Monitoring.Endpoint)
		}
		hc := s.Monitoring.HealthCheck
		for field, endpoint := range map[string]string{
			"monitoring.health_check.endpoint":       hc.Endpoint,
			"monitoring.health_check.live_endpoint":  hc.LiveEndpoint,
			"monitoring.health_check.ready_endpoint": hc.ReadyEndpoint,
		} {
			if !strings.HasPrefix(endpoint, "/") {
				add(field, "must start with /, got %q", endpoint)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	// Deterministic ordering for error text.
	sortFieldErrors(problems)
	return &ValidationError{Problems: problems}
}

func sortFieldErrors(problems []FieldError) {
	for i := 1; i < len(problems); i++ {
		for j := i; j > 0 && problems[j].Field < problems[j-1].Field; j-- {
			problems[j], problems[j-1] = problems[j-1], problems[j]
		}
	}
}
