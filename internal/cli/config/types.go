// Package config loads querymap CLI configuration from defaults, a YAML
// file, QUERYMAP_* environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Input         string        `koanf:"input"`
	OutputDir     string        `koanf:"output_dir"`
	Format        string        `koanf:"format"`
	Threshold     float64       `koanf:"threshold"`
	Workers       int           `koanf:"workers"`
	StatePath     string        `koanf:"state_path"`
	Persist       bool          `koanf:"persist"`
	LogLevel      string        `koanf:"log_level"`
	Verbose       bool          `koanf:"verbose"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutputDir     = "."
	DefaultFormat        = "table"
	DefaultThreshold     = 0.8
	DefaultStateFile     = ".querymap/state.db"
	DefaultLogLevel      = "warn"
	DefaultWatchDebounce = 200 * time.Millisecond
)

// ConfigFileNames are searched for, in order, when no --config is given.
var ConfigFileNames = []string{"querymap.yaml", "querymap.yml"}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		OutputDir:     DefaultOutputDir,
		Format:        DefaultFormat,
		Threshold:     DefaultThreshold,
		StatePath:     DefaultStateFile,
		Persist:       true,
		LogLevel:      DefaultLogLevel,
		WatchDebounce: DefaultWatchDebounce,
	}
}

func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"input":          d.Input,
		"output_dir":     d.OutputDir,
		"format":         d.Format,
		"threshold":      d.Threshold,
		"workers":        d.Workers,
		"state_path":     d.StatePath,
		"persist":        d.Persist,
		"log_level":      d.LogLevel,
		"verbose":        d.Verbose,
		"watch_debounce": d.WatchDebounce.String(),
	}
}
