package settings

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Default is a shipped setting.
type Default struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	Type        Kind   `yaml:"type"`
	Description string `yaml:"description"`
}

var (
	catalogueOnce sync.Once
	catalogue     []Default
	catalogueErr  error
)

// Defaults returns the shipped settings in catalogue order.
func Defaults() ([]Default, error) {
	catalogueOnce.Do(func() {
		catalogue, catalogueErr = parseDefaults(defaultsYAML)
	})
	return catalogue, catalogueErr
}

// DefaultFor returns the shipped default of key.
func DefaultFor(key string) (Default, bool) {
	defs, err := Defaults()
	if err != nil {
		return Default{}, false
	}
	for _, d := range defs {
		if d.Key == key {
			return d, true
		}
	}
	return Default{}, false
}

func parseDefaults(data []byte) ([]Default, error) {
	var defs []Default
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse default settings: %w", err)
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("default setting without key")
		}
		if seen[d.Key] {
			return nil, fmt.Errorf("duplicate default setting %q", d.Key)
		}
		seen[d.Key] = true
		if !d.Type.Valid() {
			return nil, fmt.Errorf("default setting %q: unknown type %q", d.Key, d.Type)
		}
	}
	return defs, nil
}
