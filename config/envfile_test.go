package config

import (
	"strings"
	"testing"
)

func TestWriteEnvFile_Lines(t *testing.T) {
	snap := Default()
	snap.Name = "export-agent"
	snap.Memory.MaxEntries = 42

	var buf strings.Builder
	if err := snap.WriteEnvFile(&buf, ""); err != nil {
		t.Fatalf("WriteEnvFile: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"WINDLASS_NAME=export-agent",
		"WINDLASS_MEMORY_MAX_ENTRIES=42",
		"WINDLASS_MEMORY_ENABLED=true",
		"WINDLASS_MONITORING_HEALTH_CHECK_ENDPOINT=/health",
		"WINDLASS_MONITORING_PORT=9090",
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output missing line %q\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "#") {
		t.Error("output should start with a comment header")
	}
}

func TestWriteEnvFile_CustomPrefix(t *testing.T) {
	snap := Default()
	var buf strings.Builder
	if err := snap.WriteEnvFile(&buf, "AGENT"); err != nil {
		t.Fatalf("WriteEnvFile: %v", err)
	}
	if !strings.Contains(buf.String(), "AGENT_NAME=") {
		t.Error("custom prefix should namespace every line")
	}
	if strings.Contains(buf.String(), "WINDLASS_NAME=") {
		t.Error("default prefix should not appear with a custom prefix")
	}
}

func TestWriteEnvFile_RoundTripsThroughResolve(t *testing.T) {
	snap := Default()
	snap.Name = "roundtrip"
	snap.Monitoring.Port = 9300
	snap.Security.AllowedOrigins = []string{"https://a.example"}

	var buf strings.Builder
	if err := snap.WriteEnvFile(&buf, ""); err != nil {
		t.Fatalf("WriteEnvFile: %v", err)
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(buf.String(), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		vars[key] = value
	}

	got, err := Resolve(ResolveOptions{ApplyEnv: true, Lookup: envLookup(vars)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name != "roundtrip" {
		t.Errorf("Name = %q, want %q", got.Name, "roundtrip")
	}
	if got.Monitoring.Port != 9300 {
		t.Errorf("Monitoring.Port = %d, want 9300", got.Monitoring.Port)
	}
	if len(got.Security.AllowedOrigins) != 1 || got.Security.AllowedOrigins[0] != "https://a.example" {
		t.Errorf("AllowedOrigins = %v, want the exported list", got.Security.AllowedOrigins)
	}
}
