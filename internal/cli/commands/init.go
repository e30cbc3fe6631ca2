package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/querymap/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of querymap.yaml.
type fileConfig struct {
	Input         string  `yaml:"input,omitempty"`
	OutputDir     string  `yaml:"output_dir"`
	Format        string  `yaml:"format"`
	Threshold     float64 `yaml:"threshold"`
	Workers       int     `yaml:"workers"`
	StatePath     string  `yaml:"state_path"`
	Persist       bool    `yaml:"persist"`
	LogLevel      string  `yaml:"log_level"`
	WatchDebounce string  `yaml:"watch_debounce"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var input string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default querymap.yaml",
		Long: `Write a querymap.yaml configuration file with the default settings.

Values in the file are overridden by QUERYMAP_* environment variables and
by command-line flags.`,
		Example: `  # Initialize in current directory
  querymap init

  # Point the config at a query log
  querymap init --input logs/queries.csv

  # Overwrite an existing config
  querymap init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path, err := writeDefaultConfig(dir, input, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&input, "input", "", "Default query log to analyze")
	return cmd
}

func writeDefaultConfig(dir, input string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	d := config.Default()
	data, err := yaml.Marshal(fileConfig{
		Input:         input,
		OutputDir:     d.OutputDir,
		Format:        d.Format,
		Threshold:     d.Threshold,
		Workers:       d.Workers,
		StatePath:     d.StatePath,
		Persist:       d.Persist,
		LogLevel:      d.LogLevel,
		WatchDebounce: d.WatchDebounce.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	header := []byte("# querymap configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
