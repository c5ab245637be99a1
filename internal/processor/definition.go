package processor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec names a processor type and its configuration.
type Spec struct {
	Type   string `yaml:"type"`
	Config Config `yaml:"config"`
}

// Definition is the on-disk description of a processing chain.
type Definition struct {
	Processors []Spec `yaml:"processors"`
}

// ParseDefinition decodes a YAML processing definition.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("processor definition: %w", err)
	}
	for i, spec := range def.Processors {
		if spec.Type == "" {
			return Definition{}, fmt.Errorf("processor definition: entry %d has no type", i)
		}
		if spec.Config == nil {
			def.Processors[i].Config = Config{}
			continue
		}
		for k, v := range spec.Config {
			spec.Config[k] = normalize(v)
		}
	}
	return def, nil
}

// normalize rewrites YAML-decoded values into document shape. Nested
// mappings come back from the decoder typed as Config, which documents
// would treat as an opaque scalar.
func normalize(v any) any {
	switch t := v.(type) {
	case Config:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = normalize(item)
		}
		return list
	case []string:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = item
		}
		return list
	default:
		return v
	}
}

func normalizeMap(src map[string]any) map[string]any {
	m := make(map[string]any, len(src))
	for k, item := range src {
		m[k] = normalize(item)
	}
	return m
}

// LoadDefinition reads and decodes a YAML processing definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("processor definition: %w", err)
	}
	return ParseDefinition(data)
}
