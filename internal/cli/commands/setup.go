// Package commands implements the querymap subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/querymap/internal/cli/config"
	"github.com/leapstack-labs/querymap/internal/output"
	"github.com/leapstack-labs/querymap/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cfg.OutputFormat()),
	}
}

// OpenStore opens and migrates the run-history database, creating its
// directory if needed. The caller closes the store.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" && c.Cfg.StatePath != state.MemoryPath {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
