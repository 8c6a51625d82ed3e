package config

import (
	"fmt"
	"os"
	"strings"
)

var (
	validOutputs    = []string{"auto", "text", "markdown", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir is required")
	}
	if !oneOf(c.OutputFormat, validOutputs) {
		return fmt.Errorf("invalid output %q: must be one of %s", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if !oneOf(strings.ToLower(c.LogLevel), validLogLevels) {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if !oneOf(strings.ToLower(c.LogFormat), validLogFormats) {
		return fmt.Errorf("invalid log_format %q: must be one of %s", c.LogFormat, strings.Join(validLogFormats, ", "))
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.ModelsDir); os.IsNotExist(err) {
		return fmt.Errorf("models directory does not exist: %s\nHint: Create the directory or use --models-dir to specify a different path", c.ModelsDir)
	}
	return nil
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
