// Package ingest reads query records from delimited files.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/querymap/pkg/querymeta"
)

// ErrMalformedRecord is returned when a row cannot be read as a query record.
// It is fatal for the whole batch.
var ErrMalformedRecord = errors.New("malformed query record")

// Column names expected in the header row.
const (
	ColumnQueryText     = "query_text"
	ColumnTables        = "tables"
	ColumnSelectColumns = "select_columns"
	ColumnJoinColumns   = "join_columns"
	ColumnWhereColumns  = "where_columns"
	ColumnAggColumns    = "agg_columns"
)

// RequiredColumns lists the header columns every input file must carry.
var RequiredColumns = []string{
	ColumnQueryText,
	ColumnTables,
	ColumnSelectColumns,
	ColumnJoinColumns,
	ColumnWhereColumns,
	ColumnAggColumns,
}

// Reader yields query records from a CSV stream with a header row.
// Columns may appear in any order; extra columns are ignored.
type Reader struct {
	csv   *csv.Reader
	index map[string]int
	line  int
}

// NewReader reads and validates the header row.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrMalformedRecord)
		}
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedRecord, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.ToLower(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: header is missing columns: %s", ErrMalformedRecord, strings.Join(missing, ", "))
	}

	return &Reader{csv: cr, index: index, line: 1}, nil
}

// Next returns the next record, or io.EOF when the input is exhausted.
func (r *Reader) Next() (querymeta.Record, error) {
	row, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return querymeta.Record{}, io.EOF
		}
		return querymeta.Record{}, fmt.Errorf("%w: row %d: %w", ErrMalformedRecord, r.line+1, err)
	}
	r.line++

	return querymeta.Record{
		QueryText:     r.field(row, ColumnQueryText),
		Tables:        r.field(row, ColumnTables),
		SelectColumns: r.field(row, ColumnSelectColumns),
		JoinColumns:   r.field(row, ColumnJoinColumns),
		WhereColumns:  r.field(row, ColumnWhereColumns),
		AggColumns:    r.field(row, ColumnAggColumns),
	}, nil
}

// field copies the value out of row; rows are reused between reads.
func (r *Reader) field(row []string, name string) string {
	return strings.Clone(row[r.index[name]])
}

// ReadAll reads every record from r. It stops early when ctx is cancelled.
func ReadAll(ctx context.Context, r io.Reader) ([]querymeta.Record, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	var records []querymeta.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// ReadFile reads every record from the CSV file at path.
func ReadFile(ctx context.Context, path string) ([]querymeta.Record, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
