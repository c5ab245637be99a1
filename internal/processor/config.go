package processor

import (
	"errors"
	"fmt"
)

// ErrMissingConfig is returned when a required configuration key is absent.
var ErrMissingConfig = errors.New("missing required config key")

// Config is the free-form configuration block of a single processor.
type Config map[string]any

// String returns a required string value.
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingConfig, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config key %q: expected string, got %T", key, v)
	}
	return s, nil
}

// StringOr returns an optional string value.
func (c Config) StringOr(key, fallback string) string {
	if s, ok := c[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Strings returns a required list of strings. A single string is accepted
// as a one-element list.
func (c Config) Strings(key string) ([]string, error) {
	v, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingConfig, key)
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("config key %q: item %d: expected string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("config key %q: expected string list, got %T", key, v)
	}
}

// Value returns a required value of any type, with nested mappings and
// lists converted to map[string]any and []any.
func (c Config) Value(key string) (any, error) {
	v, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingConfig, key)
	}
	return normalize(v), nil
}

// Bool returns an optional boolean value.
func (c Config) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// fieldsOf reads "fields" or, failing that, "field".
func (c Config) fieldsOf() ([]string, error) {
	if _, ok := c["fields"]; ok {
		return c.Strings("fields")
	}
	return c.Strings("field")
}
