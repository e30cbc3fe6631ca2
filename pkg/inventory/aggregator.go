// Package inventory builds per-table column inventories and groups tables
// whose inventories overlap.
package inventory

import "sort"

// Table is one inventory entry: a canonical table name and its referenced
// columns, sorted and unique.
type Table struct {
	Name    string   `json:"table_name"`
	Columns []string `json:"columns"`
}

// Aggregator accumulates (table, column) pairs across a batch of queries.
// It is not safe for concurrent use; feed it from a single goroutine.
type Aggregator struct {
	tables map[string]map[string]struct{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{tables: make(map[string]map[string]struct{})}
}

// Add records that column was referenced on table.
// Pairs with an empty table or column are ignored.
func (a *Aggregator) Add(table, column string) {
	if table == "" || column == "" {
		return
	}
	cols, ok := a.tables[table]
	if !ok {
		cols = make(map[string]struct{})
		a.tables[table] = cols
	}
	cols[column] = struct{}{}
}

// AddTable merges every column of t into the aggregator.
func (a *Aggregator) AddTable(t Table) {
	for _, col := range t.Columns {
		a.Add(t.Name, col)
	}
}

// Len returns the number of distinct tables seen so far.
func (a *Aggregator) Len() int {
	return len(a.tables)
}

// Inventory returns the accumulated tables sorted by name, each with its
// columns sorted lexicographically.
func (a *Aggregator) Inventory() []Table {
	names := make([]string, 0, len(a.tables))
	for name := range a.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Table, 0, len(names))
	for _, name := range names {
		cols := make([]string, 0, len(a.tables[name]))
		for col := range a.tables[name] {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		out = append(out, Table{Name: name, Columns: cols})
	}
	return out
}
