package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/querymap/internal/ingest"
	"github.com/leapstack-labs/querymap/internal/output"
	"github.com/leapstack-labs/querymap/internal/pipeline"
	"github.com/leapstack-labs/querymap/internal/state"
	"github.com/leapstack-labs/querymap/internal/watch"
	"github.com/spf13/cobra"
)

// ErrNoInput is returned when analyze is given neither a file nor a
// configured input.
var ErrNoInput = errors.New("no input file: pass one or set input in querymap.yaml")

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var watchInput bool
	var noFiles bool

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Build the table inventory and similar-table groups from a query log",
		Long: `Read a query-log CSV, resolve every column reference to its table and
group tables whose column sets overlap.

The inventory and groups are written to tables_output.{json,csv} and
similar_tables_output.{json,csv} in the output directory, rendered to stdout,
and recorded in the run history unless --persist=false.`,
		Example: `  # Analyze a query log
  querymap analyze queries.csv

  # Loosen grouping and print JSON
  querymap analyze queries.csv --threshold 0.6 -f json

  # Re-run whenever the file changes
  querymap analyze queries.csv --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			path := cc.Cfg.Input
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return ErrNoInput
			}

			a := &analysis{cc: cc, path: path, writeFiles: !noFiles}
			if cc.Cfg.Persist {
				store, err := cc.OpenStore()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				a.store = store
			}

			if err := a.run(cmd.Context()); err != nil {
				return err
			}
			if !watchInput {
				return nil
			}

			return watch.File(cmd.Context(), path, cc.Cfg.WatchDebounce, cc.Logger, func(ctx context.Context) {
				if err := a.run(ctx); err != nil {
					cc.Logger.Error("analysis failed", "file", path, "error", err)
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&watchInput, "watch", "w", false, "Re-run the analysis when the input file changes")
	cmd.Flags().BoolVar(&noFiles, "no-files", false, "Only render to stdout, skip writing output files")
	return cmd
}

// analysis is one configured analyze invocation, re-runnable in watch mode.
type analysis struct {
	cc         *CommandContext
	path       string
	store      *state.SQLiteStore
	writeFiles bool
}

func (a *analysis) run(ctx context.Context) error {
	cfg := a.cc.Cfg
	logger := a.cc.Logger

	records, err := ingest.ReadFile(ctx, a.path)
	if err != nil {
		return err
	}
	logger.Info("read query log", "file", a.path, "records", len(records))

	pcfg := pipeline.Config{
		Threshold: cfg.Threshold,
		Workers:   cfg.Workers,
		Source:    a.path,
		Logger:    logger,
	}
	if a.store != nil {
		pcfg.Store = a.store
	}
	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, records)
	if err != nil {
		return err
	}

	if a.writeFiles {
		paths, err := output.WriteFiles(cfg.OutputDir, result.Inventory, result.Groups)
		if err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		logger.Info("wrote results", "files", paths)
	}

	return a.cc.Renderer.Result(result)
}
