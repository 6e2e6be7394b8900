package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteEnvFile exports the snapshot as environment variable assignments,
// one per line, using the same naming scheme the override table reads:
// <PREFIX>_<SECTION>_<FIELD> in upper snake case. Composite values are
// JSON-encoded. The output round-trips through Resolve with ApplyEnv.
func (s *Snapshot) WriteEnvFile(w io.Writer, prefix string) error {
	clean := strings.TrimSpace(prefix)
	if clean == "" {
		clean = DefaultEnvPrefix
	}

	values, err := s.ToMap()
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "# Windlass agent configuration (%s_* overrides)\n", clean); err != nil {
		return err
	}
	return writeEnvSection(w, clean, values)
}

func writeEnvSection(w io.Writer, prefix string, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := prefix + "_" + strings.ToUpper(key)
		switch value := values[key].(type) {
		case map[string]any:
			if err := writeEnvSection(w, name, value); err != nil {
				return err
			}
		default:
			encoded, err := encodeEnvValue(value)
			if err != nil {
				return fmt.Errorf("config: encoding %s: %w", name, err)
			}
			if _, err := fmt.Fprintf(w, "%s=%s\n", name, encoded); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeEnvValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
