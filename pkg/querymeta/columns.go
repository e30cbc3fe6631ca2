package querymeta

import (
	"regexp"
	"sort"
	"strings"
)

// quotedRef matches the first double-quoted substring of a fragment, plus an
// optional second quoted part after a dot (`"o"."id"`).
var quotedRef = regexp.MustCompile(`"([^"]+)"(?:\s*\.\s*"([^"]+)")?`)

// columnListOffset is the number of tokens `INSERT INTO <table> (` splits
// into; the column list of the fallback shape starts right after them.
const columnListOffset = 4

// selectKeyword opens the source part of an INSERT ... SELECT statement.
const selectKeyword = "SELECT"

// ColumnRef is a column reference with an optional qualifier (alias or table).
type ColumnRef struct {
	Qualifier string
	Column    string
}

// String returns the reference in qualifier.column form.
func (r ColumnRef) String() string {
	if r.Qualifier == "" {
		return r.Column
	}
	return r.Qualifier + "." + r.Column
}

// ParseColumnRef splits a dotted reference. The column is the text after the
// last dot and the qualifier is the last segment before it, so
// `dbo.Orders.id` qualifies `id` with `Orders`.
func ParseColumnRef(s string) ColumnRef {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return ColumnRef{Column: strings.Trim(s, identDelimiters)}
	}
	return ColumnRef{
		Qualifier: strings.Trim(lastSegment(s[:i]), identDelimiters),
		Column:    strings.Trim(s[i+1:], identDelimiters),
	}
}

// FallbackResult is the single (table, columns) pair recovered by tokenizing
// the raw query text.
type FallbackResult struct {
	Table   string
	Columns []string
}

// Extraction is the outcome of extracting references from a record.
// Exactly one of Refs or Fallback is populated when anything was found.
type Extraction struct {
	Refs     []ColumnRef
	Fallback *FallbackResult
}

// Empty reports whether nothing was extracted.
func (e Extraction) Empty() bool {
	return len(e.Refs) == 0 && e.Fallback == nil
}

// Extractor extracts column references from a query record.
type Extractor interface {
	Extract(rec Record) Extraction
}

// DefaultExtractor returns the structured-field extractor backed by the
// token fallback.
func DefaultExtractor() Extractor {
	return ChainExtractor{
		Primary:  QuotedFieldExtractor{},
		Fallback: TokenFallbackExtractor{},
	}
}

// ChainExtractor runs Fallback only when Primary found nothing.
type ChainExtractor struct {
	Primary  Extractor
	Fallback Extractor
}

// Extract implements Extractor.
func (c ChainExtractor) Extract(rec Record) Extraction {
	ext := c.Primary.Extract(rec)
	if !ext.Empty() || c.Fallback == nil {
		return ext
	}
	return c.Fallback.Extract(rec)
}

// QuotedFieldExtractor reads the quoted references out of the four
// column-reference fields.
type QuotedFieldExtractor struct{}

// Extract implements Extractor. References are deduplicated across fields
// and returned sorted.
func (QuotedFieldExtractor) Extract(rec Record) Extraction {
	seen := make(map[ColumnRef]struct{})
	for _, field := range rec.ColumnFields() {
		if field == "" {
			continue
		}
		for _, fragment := range strings.Split(field, entrySeparator) {
			raw, ok := quotedReference(fragment)
			if !ok {
				continue
			}
			ref := ParseColumnRef(raw)
			if ref.Column == "" {
				continue
			}
			seen[ref] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return Extraction{}
	}

	refs := make([]ColumnRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Qualifier != refs[j].Qualifier {
			return refs[i].Qualifier < refs[j].Qualifier
		}
		return refs[i].Column < refs[j].Column
	})
	return Extraction{Refs: refs}
}

// quotedReference returns the first quoted reference in a fragment.
func quotedReference(fragment string) (string, bool) {
	m := quotedRef.FindStringSubmatch(fragment)
	if m == nil {
		return "", false
	}
	if m[2] != "" {
		return m[1] + "." + m[2], true
	}
	return m[1], true
}

// TokenFallbackExtractor approximates an `INSERT INTO tbl (c1, c2) SELECT ...
// FROM ...` statement by splitting its text on parentheses and spaces.
// It is best-effort and does not generalize to arbitrary SQL.
type TokenFallbackExtractor struct{}

// Extract implements Extractor. Missing INTO, FROM or column tokens never
// fail; they only shrink the result.
func (TokenFallbackExtractor) Extract(rec Record) Extraction {
	tokens := tokenizeQuery(rec.QueryText)

	table := fallbackTable(tokens)
	columns := fallbackColumns(tokens)
	if table == "" || len(columns) == 0 {
		return Extraction{}
	}
	return Extraction{Fallback: &FallbackResult{Table: table, Columns: columns}}
}

// tokenizeQuery splits on '(', ')' and ' ', keeping empty tokens so that
// positions line up with the delimiters in the text.
func tokenizeQuery(text string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', ')', ' ':
			tokens = append(tokens, text[start:i])
			start = i + 1
		}
	}
	return append(tokens, text[start:])
}

// fallbackTable returns the token after INTO, or the second token when the
// statement has no INTO.
func fallbackTable(tokens []string) string {
	into := indexOf(tokens, "INTO")
	if into < 0 {
		into = 0
	}
	if into+1 >= len(tokens) {
		return ""
	}
	name := strings.TrimSpace(tokens[into+1])
	return strings.Trim(lastSegment(name), identDelimiters)
}

// fallbackColumns returns the column tokens between the column list start
// and the first FROM, deduplicated in order of appearance.
func fallbackColumns(tokens []string) []string {
	end := indexOf(tokens, "FROM")
	if end < 0 {
		end = len(tokens)
	}
	if columnListOffset >= end {
		return nil
	}

	seen := make(map[string]struct{})
	var columns []string
	for _, tok := range tokens[columnListOffset:end] {
		if tok == "" || tok == "FROM" || strings.Contains(tok, "INTO") || tok == selectKeyword {
			continue
		}
		col := strings.Trim(tok, ",)")
		if col == "" {
			continue
		}
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		columns = append(columns, col)
	}
	return columns
}

func indexOf(tokens []string, want string) int {
	for i, tok := range tokens {
		if tok == want {
			return i
		}
	}
	return -1
}
