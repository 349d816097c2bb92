package config

import (
	log "go.arcalot.io/log/v2"
)

// Config is the main configuration structure that configures the step engine for execution. It
// is not the steps file being executed.
type Config struct {
	// Log configures logging for parse and execution runs.
	Log log.Config `json:"log" yaml:"log"`
	// MetadataKeys holds the step configuration keys that carry descriptive metadata and take
	// no part in partitioning a step into modifiers and an action.
	MetadataKeys []string `json:"metadata_keys" yaml:"metadata_keys"`
	// MaxExpandDepth limits how many levels of nested step expansion may occur before parsing
	// aborts. This protects against expansion cycles, such as a file including itself.
	MaxExpandDepth int64 `json:"max_expand_depth" yaml:"max_expand_depth"`
}
