package querymeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// entrySeparator separates entries in table lists and column fields.
	entrySeparator = ", "
	// aliasSeparator introduces an alias in a table entry.
	aliasSeparator = " as "
	// identDelimiters wrap identifiers in bracket- or quote-delimited names.
	identDelimiters = `[]"`
)

// ErrUnparseableTableList is returned when a table list looks like a JSON
// array but cannot be decoded as one.
var ErrUnparseableTableList = errors.New("unparseable table list")

// AliasMap maps canonical table names to their alias (empty when none).
type AliasMap map[string]string

// Tables returns the canonical table names in ascending order.
func (m AliasMap) Tables() []string {
	tables := make([]string, 0, len(m))
	for t := range m {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// TableForAlias returns the table carrying the given alias.
// The second result is false when no table, or more than one, uses it.
func (m AliasMap) TableForAlias(alias string) (string, bool) {
	if alias == "" {
		return "", false
	}
	var found string
	matches := 0
	for table, a := range m {
		if a == alias {
			found = table
			matches++
		}
	}
	return found, matches == 1
}

// ParseTableEntry normalizes one table entry such as `[dbo].[Orders] as o`
// into its canonical name and alias.
//
// Entries without a recognizable name yield an empty canonical name.
func ParseTableEntry(entry string) (table, alias string) {
	qualified, aliasPart, hasAlias := strings.Cut(entry, aliasSeparator)

	qualified = strings.Trim(strings.TrimSpace(qualified), identDelimiters)
	table = strings.Trim(lastSegment(qualified), identDelimiters)

	if hasAlias {
		alias = strings.Trim(strings.TrimSpace(aliasPart), identDelimiters)
	}
	return table, alias
}

// ResolveTables builds the alias map for a list of table entries.
// Later entries overwrite earlier ones with the same canonical name.
func ResolveTables(entries []string) AliasMap {
	aliases := make(AliasMap, len(entries))
	for _, entry := range entries {
		table, alias := ParseTableEntry(entry)
		aliases[table] = alias
	}
	return aliases
}

// ParseTableList splits a table-list field into its entries.
//
// Two shapes are accepted: a JSON array of strings
// (`["[dbo].[Orders] as o", "[dbo].[Customers]"]`) and a plain list separated
// by ", ". Blank input yields no entries.
func ParseTableList(s string) ([]string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}

	if looksLikeJSONArray(trimmed) {
		var entries []string
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnparseableTableList, err)
		}
		return entries, nil
	}

	return strings.Split(trimmed, entrySeparator), nil
}

// ResolveTableList parses and resolves a table-list field in one step.
// On a parse failure the returned map is empty, never nil.
func ResolveTableList(s string) (AliasMap, error) {
	entries, err := ParseTableList(s)
	if err != nil {
		return AliasMap{}, err
	}
	return ResolveTables(entries), nil
}

// looksLikeJSONArray reports whether s is meant to be a JSON string array.
// Bracket-quoted identifiers like `[dbo].[Orders]` also start with '[',
// so the first non-blank byte after the bracket must be '"' or ']'.
func looksLikeJSONArray(s string) bool {
	if !strings.HasPrefix(s, "[") {
		return false
	}
	rest := strings.TrimLeft(s[1:], " \t\r\n")
	return strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "]")
}

// lastSegment returns the part of s after its final dot.
func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
