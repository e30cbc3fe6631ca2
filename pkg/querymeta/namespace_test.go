package querymeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveNamespace(t *testing.T) {
	aliases := AliasMap{"Orders": "o", "Customers": "c", "Lines": "", "A": "dup", "B": "dup"}

	tests := []struct {
		name string
		ref  ColumnRef
		want ResolvedRef
	}{
		{
			name: "qualifier is canonical table",
			ref:  ColumnRef{Qualifier: "Orders", Column: "id"},
			want: ResolvedRef{Table: "Orders", Column: "id", Resolved: true},
		},
		{
			name: "qualifier is alias",
			ref:  ColumnRef{Qualifier: "c", Column: "name"},
			want: ResolvedRef{Table: "Customers", Column: "name", Resolved: true},
		},
		{
			name: "table without alias",
			ref:  ColumnRef{Qualifier: "Lines", Column: "qty"},
			want: ResolvedRef{Table: "Lines", Column: "qty", Resolved: true},
		},
		{
			name: "unknown qualifier passes through",
			ref:  ColumnRef{Qualifier: "x", Column: "id"},
			want: ResolvedRef{Table: "x", Column: "id"},
		},
		{
			name: "ambiguous alias passes through",
			ref:  ColumnRef{Qualifier: "dup", Column: "id"},
			want: ResolvedRef{Table: "dup", Column: "id"},
		},
		{
			name: "unqualified with several tables",
			ref:  ColumnRef{Column: "id"},
			want: ResolvedRef{Column: "id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNamespace(tt.ref, aliases))
		})
	}
}

func TestResolveNamespace_UnqualifiedSingleTable(t *testing.T) {
	got := ResolveNamespace(ColumnRef{Column: "id"}, AliasMap{"Orders": "o"})
	assert.Equal(t, ResolvedRef{Table: "Orders", Column: "id", Resolved: true}, got)

	got = ResolveNamespace(ColumnRef{Column: "id"}, AliasMap{"": ""})
	assert.Equal(t, ResolvedRef{Column: "id"}, got)
}

func TestResolveAll_EndToEnd(t *testing.T) {
	aliases, err := ResolveTableList("[dbo].[Orders] as o, [dbo].[Customers] as c")
	assert.NoError(t, err)

	ext := DefaultExtractor().Extract(Record{SelectColumns: `"o"."id", "c"."id"`})
	resolved := ResolveAll(ext.Refs, aliases)

	assert.Equal(t, []ResolvedRef{
		{Table: "Customers", Column: "id", Resolved: true},
		{Table: "Orders", Column: "id", Resolved: true},
	}, resolved)
}
