package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func addPlaceholderFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("set", nil, "placeholder value as name=value; dotted names nest (customer.name=Ada)")
	cmd.Flags().String("values", "", "JSON or YAML file of placeholder values")
}

// placeholderInput collects --values then --set; --set wins on conflicts.
func placeholderInput(cmd *cobra.Command) (map[string]any, error) {
	values := make(map[string]any)
	if path, _ := cmd.Flags().GetString("values"); path != "" {
		loaded, err := readValues(path)
		if err != nil {
			return nil, err
		}
		values = loaded
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, want name=value", kv)
		}
		if err := setPath(values, strings.Split(name, "."), value); err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
	}
	return values, nil
}

func readValues(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &values)
	default:
		err = yaml.Unmarshal(raw, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}

func setPath(m map[string]any, path []string, value string) error {
	for i, key := range path[:len(path)-1] {
		next, ok := m[key]
		if !ok {
			child := make(map[string]any)
			m[key] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not an object", strings.Join(path[:i+1], "."))
		}
		m = child
	}
	m[path[len(path)-1]] = value
	return nil
}

// artifactPath names an output file; template ids may contain slashes.
func artifactPath(dir, id, suffix, format string) string {
	name := strings.ReplaceAll(id, "/", "_") + suffix + "." + format
	return filepath.Join(dir, name)
}
