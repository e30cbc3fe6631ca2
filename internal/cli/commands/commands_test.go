package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/querymap/internal/cli/config"
	"github.com/leapstack-labs/querymap/internal/output"
	"github.com/leapstack-labs/querymap/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestNewAnalyzeCommand(t *testing.T) {
	cmd := NewAnalyzeCommand()

	assert.Equal(t, "analyze [file]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"watch", "no-files"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
}

func TestNewShowCommand(t *testing.T) {
	cmd := NewShowCommand()

	assert.Equal(t, "show <run-id>", cmd.Use)
	assert.Error(t, cmd.Args(cmd, nil), "show requires a run id")
}

func TestAnalyzeCommand_InputFromConfig(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteQueryCSV(t, dir, "queries.csv", testutil.SampleQueries)

	cfg := config.Default()
	cfg.Input = input
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Persist = false
	cfg.Format = "markdown"

	out, err := runCommand(t, NewAnalyzeCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "## Similar Tables")
	assert.Contains(t, out, "| Customers, Orders | customer_id, id, total | 1.00 |")

	data, err := os.ReadFile(filepath.Join(dir, "out", output.SimilarCSVFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"Customers, Orders\"")
}

func TestAnalyzeCommand_NoInput(t *testing.T) {
	cfg := config.Default()
	cfg.Persist = false

	_, err := runCommand(t, NewAnalyzeCommand(), cfg)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestRunsCommand_Empty(t *testing.T) {
	cfg := config.Default()
	cfg.StatePath = filepath.Join(t.TempDir(), "nested", "state.db")

	out, err := runCommand(t, NewRunsCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 runs)")
	assert.FileExists(t, cfg.StatePath)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, NewInitCommand(), config.Default(), dir, "--input", "queries.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "querymap.yaml")

	path := filepath.Join(dir, "querymap.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "threshold: 0.8")
	assert.Contains(t, string(data), "input: queries.csv")
	assert.Contains(t, string(data), "watch_debounce: 200ms")

	// the written file loads back to the defaults
	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "queries.csv", cfg.Input)
	assert.InDelta(t, config.DefaultThreshold, cfg.Threshold, 1e-9)
	assert.Equal(t, config.DefaultWatchDebounce, cfg.WatchDebounce)
	assert.NoError(t, cfg.Validate())

	// refuses to overwrite without --force
	_, err = runCommand(t, NewInitCommand(), config.Default(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCommand(t, NewInitCommand(), config.Default(), dir, "--force")
	assert.NoError(t, err)
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut string
	}{
		{name: "default version", version: "0.1.0", wantOut: "querymap v0.1.0"},
		{name: "dev version", version: "dev", wantOut: "querymap vdev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, NewVersionCommand(tt.version), config.Default())
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}
