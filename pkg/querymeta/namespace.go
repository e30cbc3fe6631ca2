package querymeta

// ResolvedRef is a column reference qualified by a canonical table name.
type ResolvedRef struct {
	Table    string
	Column   string
	Resolved bool // false when the qualifier matched no table or alias
}

// ResolveNamespace rewrites ref so that it is qualified by a canonical table
// name from aliases.
//
// A qualifier that already names a table is kept; one that is the alias of
// exactly one table is replaced by that table; anything else passes through
// unchanged with Resolved set to false. An unqualified reference is
// attributed to the query's table when the query has exactly one, and is
// otherwise returned with an empty Table.
func ResolveNamespace(ref ColumnRef, aliases AliasMap) ResolvedRef {
	if ref.Qualifier == "" {
		if tables := aliases.Tables(); len(tables) == 1 && tables[0] != "" {
			return ResolvedRef{Table: tables[0], Column: ref.Column, Resolved: true}
		}
		return ResolvedRef{Column: ref.Column}
	}

	if _, ok := aliases[ref.Qualifier]; ok {
		return ResolvedRef{Table: ref.Qualifier, Column: ref.Column, Resolved: true}
	}
	if table, ok := aliases.TableForAlias(ref.Qualifier); ok {
		return ResolvedRef{Table: table, Column: ref.Column, Resolved: true}
	}
	return ResolvedRef{Table: ref.Qualifier, Column: ref.Column}
}

// ResolveAll resolves every reference against the same alias map.
func ResolveAll(refs []ColumnRef, aliases AliasMap) []ResolvedRef {
	out := make([]ResolvedRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ResolveNamespace(ref, aliases))
	}
	return out
}
