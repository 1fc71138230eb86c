package adapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	m "nessie.dev/pkg/nessie/internal/model"
)

// isYAML reports whether path should be read and written as YAML.
func isYAML(path m.Path) bool {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// writeDocument encodes v as YAML or indented JSON depending on path.
func writeDocument(path m.Path, v any) error {
	var (
		data []byte
		err  error
	)

	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// readDocument decodes the YAML or JSON document at path into v.
func readDocument(path m.Path, v any) error {
	// #nosec G304 - path comes from configuration
	data, err := os.ReadFile(string(path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, v)
	} else {
		err = json.Unmarshal(data, v)
	}

	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}
