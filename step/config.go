package step

import (
	"sort"
)

// Config is the raw configuration of a single step: a mapping from string keys to arbitrary
// values that preserves the key order of the source document. Key order is significant, it is
// the tie-break between modifiers that have no ordering relation to each other.
type Config struct {
	keys   []string
	values map[string]any
}

// NewConfig creates an empty step configuration.
func NewConfig() *Config {
	return &Config{
		values: map[string]any{},
	}
}

// ConfigFromMap creates a step configuration from an unordered map. The keys are added in
// lexical order to keep the resulting key order deterministic.
func ConfigFromMap(values map[string]any) *Config {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	cfg := NewConfig()
	for _, key := range keys {
		cfg.Set(key, values[key])
	}
	return cfg
}

// Set adds or replaces a key and returns the configuration for chaining. Adding appends to the
// key order, replacing keeps the key's original position.
func (c *Config) Set(key string, value any) *Config {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
	return c
}

// Get looks up a single key.
func (c *Config) Get(key string) (any, bool) {
	value, ok := c.values[key]
	return value, ok
}

// Keys returns the keys in document order. The caller must not modify the returned slice.
func (c *Config) Keys() []string {
	return c.keys
}

// Len returns the number of keys.
func (c *Config) Len() int {
	return len(c.keys)
}
