package commands

import (
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded analysis runs",
		Example: `  # Most recent runs
  querymap runs

  # Everything, as JSON
  querymap runs --limit 0 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return cc.Renderer.Runs(runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show <run-id>",
		Short:   "Show the inventory and groups of a recorded run",
		Example: `  querymap show 3f9c2a4e-5b1d-4c7e-9a0f-2d8e6b1c7a55`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cc.Renderer.Run(run)
		},
	}
}
