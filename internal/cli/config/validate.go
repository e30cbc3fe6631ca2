package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/leapstack-labs/querymap/internal/output"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be between 0 and 1, got %v", ErrInvalidConfig, c.Threshold)
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Persist && c.StatePath == "" {
		return fmt.Errorf("%w: state_path is required when persist is enabled", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidConfig)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log_level %q is not one of debug, info, warn, error", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// OutputFormat returns the parsed render format. Call Validate first.
func (c *Config) OutputFormat() output.Format {
	f, err := output.ParseFormat(c.Format)
	if err != nil {
		return output.FormatTable
	}
	return f
}
