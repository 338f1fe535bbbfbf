package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexora/backend/internal/domain/models"
)

// isJSON picks the codec from the file extension; anything else is YAML
func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func readFlow(path string) (*models.IVRFlow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var flow models.IVRFlow
	if isJSON(path) {
		err = json.Unmarshal(data, &flow)
	} else {
		err = yaml.Unmarshal(data, &flow)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &flow, nil
}

func encodeFlow(w io.Writer, flow *models.IVRFlow, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(flow)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(flow); err != nil {
		return err
	}
	return enc.Close()
}

// writeFlow replaces path atomically in the same format it was read in,
// keeping the permissions of the file it replaces.
func writeFlow(path string, flow *models.IVRFlow) error {
	var buf bytes.Buffer
	if err := encodeFlow(&buf, flow, isJSON(path)); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// WriteFile is subject to the umask
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// parseValue reads a command-line value as YAML so numbers, booleans and
// lists keep their type. An empty value is nil, which removes the key.
func parseValue(raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	return v, nil
}

// parseAssignments turns key=value pairs into a config patch
func parseAssignments(pairs []string) (map[string]interface{}, error) {
	patch := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		v, err := parseValue(raw)
		if err != nil {
			return nil, err
		}
		patch[key] = v
	}
	return patch, nil
}
