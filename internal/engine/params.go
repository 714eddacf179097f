package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadParams reads a YAML (or JSON) document of template parameters.
// An empty path yields an empty scope.
func LoadParams(path string) (map[string]any, error) {
	params := make(map[string]any)
	if path == "" {
		return params, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	if err := yaml.Unmarshal(content, &params); err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}
	if params == nil {
		params = make(map[string]any)
	}
	return params, nil
}

// MergeParams overlays override onto base without modifying either.
func MergeParams(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
