// Package querymeta extracts table and column references from query records.
//
// A query record carries the raw query text together with loosely structured
// fields that name the tables and columns the query touches. This package
// turns those fields into canonical (table, column) pairs without parsing
// SQL: malformed input degrades to fewer references rather than errors.
//
// # Stages
//
//   - ResolveTables maps canonical table names to their aliases.
//   - An Extractor pulls qualifier.column references out of a Record,
//     falling back to tokenizing the query text when no structured
//     references exist.
//   - ResolveNamespace rewrites alias qualifiers to canonical table names.
//
// # Basic Usage
//
//	aliases, _ := querymeta.ResolveTableList(rec.Tables)
//	ext := querymeta.DefaultExtractor().Extract(rec)
//	for _, ref := range ext.Refs {
//	    resolved := querymeta.ResolveNamespace(ref, aliases)
//	    fmt.Println(resolved.Table, resolved.Column)
//	}
package querymeta
