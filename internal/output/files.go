package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/querymap/pkg/inventory"
)

// Artifact file names written by WriteFiles.
const (
	TablesJSONFile  = "tables_output.json"
	TablesCSVFile   = "tables_output.csv"
	SimilarJSONFile = "similar_tables_output.json"
	SimilarCSVFile  = "similar_tables_output.csv"
)

// listSeparator joins names inside a single CSV cell.
const listSeparator = ", "

var (
	tablesHeader  = []string{"table_name", "columns"}
	similarHeader = []string{"similar_tables", "shared_columns", "similarity_score"}
)

// WriteFiles writes the inventory and groups to dir in both JSON and CSV
// form, creating dir if needed. It returns the written paths.
func WriteFiles(dir string, tables []inventory.Table, groups []inventory.Group) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if tables == nil {
		tables = []inventory.Table{}
	}
	if groups == nil {
		groups = []inventory.Group{}
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TablesJSONFile, func(w io.Writer) error { return writeJSON(w, tables) }},
		{SimilarJSONFile, func(w io.Writer) error { return writeJSON(w, groups) }},
		{TablesCSVFile, func(w io.Writer) error { return WriteTablesCSV(w, tables) }},
		{SimilarCSVFile, func(w io.Writer) error { return WriteGroupsCSV(w, groups) }},
	}

	paths := make([]string, 0, len(writers))
	for _, fw := range writers {
		path := filepath.Join(dir, fw.name)
		if err := writeFile(path, fw.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the configured output dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTablesCSV writes the inventory as CSV with one row per table.
func WriteTablesCSV(w io.Writer, tables []inventory.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tablesHeader); err != nil {
		return err
	}
	for _, t := range tables {
		if err := cw.Write([]string{t.Name, strings.Join(t.Columns, listSeparator)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGroupsCSV writes the similarity groups as CSV with one row per group.
func WriteGroupsCSV(w io.Writer, groups []inventory.Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(similarHeader); err != nil {
		return err
	}
	for _, g := range groups {
		row := []string{
			strings.Join(g.Members, listSeparator),
			strings.Join(g.SharedColumns, listSeparator),
			g.Score,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
