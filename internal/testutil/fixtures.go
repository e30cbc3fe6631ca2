package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// QueryHeader is the header row of a query-log CSV file.
var QueryHeader = []string{"query_text", "tables", "select_columns", "join_columns", "where_columns", "agg_columns"}

// WriteQueryCSV writes rows under QueryHeader to dir/name and returns the path.
func WriteQueryCSV(t testing.TB, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // test fixture path
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(QueryHeader); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("failed to write rows: %v", err)
	}
	return path
}

// SampleQueries is a small query log covering aliases, the token fallback and
// two tables that share a column set.
var SampleQueries = [][]string{
	{
		"SELECT o.id, c.id FROM dbo.Orders o JOIN dbo.Customers c ON o.customer_id = c.id",
		"[dbo].[Orders] as o, [dbo].[Customers] as c",
		`"o"."id", "c"."id"`,
		`"o"."customer_id"`,
		"",
		"",
	},
	{
		"SELECT total FROM dbo.Orders",
		`["[dbo].[Orders]"]`,
		`"Orders.total"`,
		"",
		"",
		"",
	},
	{
		"SELECT c.total, c.customer_id FROM dbo.Customers c",
		"[dbo].[Customers] as c",
		`"c.total"`,
		"",
		`"c.customer_id"`,
		"",
	},
	{
		"INSERT INTO Sales (col1, col2, col3) SELECT col1, col2, col3 FROM Staging",
		"",
		"",
		"",
		"",
		"",
	},
}
