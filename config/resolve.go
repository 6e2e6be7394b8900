package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when no explicit config path is given.
const DefaultPath = ".windlass/agent.json"

// DefaultEnvPrefix namespaces environment variable overrides.
const DefaultEnvPrefix = "WINDLASS"

// ErrConfigNotFound is returned when an explicitly given config path does
// not exist. A missing default path is not an error; built-in defaults
// apply instead.
var ErrConfigNotFound = errors.New("config: file not found")

// ResolveOptions controls configuration resolution.
type ResolveOptions struct {
	// Path is an explicit config file location. Empty means "use
	// DefaultPath if it exists, else built-in defaults".
	Path string

	// ApplyEnv enables environment variable overrides.
	ApplyEnv bool

	// Prefix overrides the env var prefix (default WINDLASS).
	Prefix string

	// Lookup overrides the environment source. Defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Resolve loads, layers, and validates the agent configuration:
// built-in defaults, then the config document, then env overrides.
// Resolution is re-entrant: the same file and environment always produce
// the same snapshot.
func Resolve(opts ResolveOptions) (*Snapshot, error) {
	snap := Default()

	path, found, err := locateFile(opts.Path)
	if err != nil {
		return nil, err
	}
	if found {
		if err := loadFile(path, &snap); err != nil {
			return nil, err
		}
	}

	if opts.ApplyEnv {
		lookup := opts.Lookup
		if lookup == nil {
			lookup = os.LookupEnv
		}
		prefix := strings.TrimSpace(opts.Prefix)
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		if err := applyEnvOverrides(&snap, prefix, lookup); err != nil {
			return nil, err
		}
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func locateFile(explicit string) (string, bool, error) {
	if clean := strings.TrimSpace(explicit); clean != "" {
		clean = filepath.Clean(clean)
		info, err := os.Stat(clean)
		if errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("%w: %s", ErrConfigNotFound, clean)
		}
		if err != nil {
			return "", false, fmt.Errorf("config: checking %q: %w", clean, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config: %q is a directory", clean)
		}
		return clean, true, nil
	}

	info, err := os.Stat(DefaultPath)
	if err == nil && !info.IsDir() {
		return DefaultPath, true, nil
	}
	return "", false, nil
}

func loadFile(path string, snap *Snapshot) error {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(snap); err != nil {
			return &ValidationError{Problems: []FieldError{{
				Field:   "document",
				Message: fmt.Sprintf("parsing %q: %v", path, err),
			}}}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(snap); err != nil {
			return &ValidationError{Problems: []FieldError{{
				Field:   "document",
				Message: fmt.Sprintf("parsing %q: %v", path, err),
			}}}
		}
	}
	return nil
}

// overrideEntry maps one env var suffix to a typed setter. The table is
// declared statically so override application is deterministic and never
// relies on reflection over the snapshot.
type overrideEntry struct {
	key string
	set func(*Snapshot, any) error
}

// overrideTable enumerates every scalar configuration field reachable by
// environment override, in section order. Keys are joined with the
// prefix as <PREFIX>_<KEY>.
var overrideTable = []overrideEntry{
	{"NAME", func(s *Snapshot, v any) error { return asString(v, &s.Name) }},
	{"VERSION", func(s *Snapshot, v any) error { return asString(v, &s.Version) }},
	{"DESCRIPTION", func(s *Snapshot, v any) error { return asString(v, &s.Description) }},
	{"ENTRY_POINT", func(s *Snapshot, v any) error { return asString(v, &s.EntryPoint) }},

	{"MEMORY_ENABLED", func(s *Snapshot, v any) error { return asBool(v, &s.Memory.Enabled) }},
	{"MEMORY_PERSISTENCE", func(s *Snapshot, v any) error { return asBool(v, &s.Memory.Persistence) }},
	{"MEMORY_PATH", func(s *Snapshot, v any) error { return asString(v, &s.Memory.Path) }},
	{"MEMORY_MAX_ENTRIES", func(s *Snapshot, v any) error { return asInt(v, &s.Memory.MaxEntries) }},

	{"TOOLS_AUTO_DISCOVER", func(s *Snapshot, v any) error { return asBool(v, &s.Tools.AutoDiscover) }},
	{"TOOLS_DIRECTORY", func(s *Snapshot, v any) error { return asString(v, &s.Tools.Directory) }},
	{"TOOLS_TIMEOUT_SECONDS", func(s *Snapshot, v any) error { return asInt(v, &s.Tools.TimeoutSeconds) }},

	{"LOGGING_LEVEL", func(s *Snapshot, v any) error { return asString(v, &s.Logging.Level) }},
	{"LOGGING_FORMAT", func(s *Snapshot, v any) error { return asString(v, &s.Logging.Format) }},
	{"LOGGING_FILE", func(s *Snapshot, v any) error { return asString(v, &s.Logging.File) }},
	{"LOGGING_MAX_SIZE_MB", func(s *Snapshot, v any) error { return asInt(v, &s.Logging.MaxSizeMB) }},
	{"LOGGING_BACKUP_COUNT", func(s *Snapshot, v any) error { return asInt(v, &s.Logging.BackupCount) }},

	{"SECURITY_REQUIRE_AUTHENTICATION", func(s *Snapshot, v any) error { return asBool(v, &s.Security.RequireAuthentication) }},
	{"SECURITY_API_KEY", func(s *Snapshot, v any) error { return asString(v, &s.Security.APIKey) }},
	{"SECURITY_ALLOWED_ORIGINS", func(s *Snapshot, v any) error { return asStringSlice(v, &s.Security.AllowedOrigins) }},
	{"SECURITY_RATE_LIMIT_ENABLED", func(s *Snapshot, v any) error { return asBool(v, &s.Security.RateLimit.Enabled) }},
	{"SECURITY_RATE_LIMIT_MAX_REQUESTS", func(s *Snapshot, v any) error { return asInt(v, &s.Security.RateLimit.MaxRequests) }},
	{"SECURITY_RATE_LIMIT_WINDOW_SECONDS", func(s *Snapshot, v any) error { return asInt(v, &s.Security.RateLimit.WindowSeconds) }},
	{"SECURITY_CORS_ENABLED", func(s *Snapshot, v any) error { return asBool(v, &s.Security.CORS.Enabled) }},
	{"SECURITY_CORS_ALLOW_CREDENTIALS", func(s *Snapshot, v any) error { return asBool(v, &s.Security.CORS.AllowCredentials) }},
	{"SECURITY_CORS_ALLOWED_METHODS", func(s *Snapshot, v any) error { return asStringSlice(v, &s.Security.CORS.AllowedMethods) }},
	{"SECURITY_CORS_ALLOWED_HEADERS", func(s *Snapshot, v any) error { return asStringSlice(v, &s.Security.CORS.AllowedHeaders) }},
	{"SECURITY_CORS_EXPOSED_HEADERS", func(s *Snapshot, v any) error { return asStringSlice(v, &s.Security.CORS.ExposedHeaders) }},
	{"SECURITY_CORS_MAX_AGE", func(s *Snapshot, v any) error { return asInt(v, &s.Security.CORS.MaxAge) }},

	{"MONITORING_ENABLED", func(s *Snapshot, v any) error { return asBool(v, &s.Monitoring.Enabled) }},
	{"MONITORING_HOST", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.Host) }},
	{"MONITORING_PORT", func(s *Snapshot, v any) error { return asInt(v, &s.Monitoring.Port) }},
	{"MONITORING_ENDPOINT", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.Endpoint) }},
	{"MONITORING_OTLP_ENDPOINT", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.OTLPEndpoint) }},
	{"MONITORING_HEALTH_CHECK_ENABLED", func(s *Snapshot, v any) error { return asBool(v, &s.Monitoring.HealthCheck.Enabled) }},
	{"MONITORING_HEALTH_CHECK_ENDPOINT", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.HealthCheck.Endpoint) }},
	{"MONITORING_HEALTH_CHECK_LIVE_ENDPOINT", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.HealthCheck.LiveEndpoint) }},
	{"MONITORING_HEALTH_CHECK_READY_ENDPOINT", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.HealthCheck.ReadyEndpoint) }},
	{"MONITORING_HEALTH_CHECK_SCHEDULE", func(s *Snapshot, v any) error { return asString(v, &s.Monitoring.HealthCheck.Schedule) }},

	{"VERSION_CONTROL_AUTO_COMMIT", func(s *Snapshot, v any) error { return asBool(v, &s.VersionControl.AutoCommit) }},
	{"VERSION_CONTROL_BRANCH", func(s *Snapshot, v any) error { return asString(v, &s.VersionControl.Branch) }},
	{"VERSION_CONTROL_REMOTE", func(s *Snapshot, v any) error { return asString(v, &s.VersionControl.Remote) }},
	{"VERSION_CONTROL_COMMIT_MESSAGE", func(s *Snapshot, v any) error { return asString(v, &s.VersionControl.CommitMessage) }},
}

func applyEnvOverrides(snap *Snapshot, prefix string, lookup func(string) (string, bool)) error {
	var problems []FieldError
	for _, entry := range overrideTable {
		name := prefix + "_" + entry.key
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := entry.set(snap, parseEnvValue(raw)); err != nil {
			problems = append(problems, FieldError{
				Field:   name,
				Message: err.Error(),
			})
		}
	}
	if len(problems) > 0 {
		sortFieldErrors(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}

// parseEnvValue attempts a structured (JSON) parse first and falls back
// to the literal string.
func parseEnvValue(raw string) any {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed
	}
	return raw
}

func asString(v any, dst *string) error {
	switch val := v.(type) {
	case string:
		*dst = val
	case float64, bool:
		*dst = fmt.Sprint(val)
	default:
		return fmt.Errorf("expected a string, got %T", v)
	}
	return nil
}

func asBool(v any, dst *bool) error {
	val, ok := v.(bool)
	if !ok {
		return fmt.Errorf("expected a boolean, got %v", v)
	}
	*dst = val
	return nil
}

func asInt(v any, dst *int) error {
	val, ok := v.(float64)
	if !ok || val != float64(int(val)) {
		return fmt.Errorf("expected an integer, got %v", v)
	}
	*dst = int(val)
	return nil
}

func asStringSlice(v any, dst *[]string) error {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a list of strings, got element %v", item)
			}
			out = append(out, s)
		}
		*dst = out
	case string:
		// Literal strings are treated as comma-separated lists.
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
		*dst = out
	default:
		return fmt.Errorf("expected a list of strings, got %T", v)
	}
	return nil
}

// ToMap reserializes the snapshot's effective field values. Resolving a
// document and reserializing it yields the same values the document
// carried, with defaults filled in.
func (s *Snapshot) ToMap() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("config: marshal snapshot: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("config: unmarshal snapshot: %w", err)
	}
	return out, nil
}
