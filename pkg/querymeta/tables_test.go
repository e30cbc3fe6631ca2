package querymeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableEntry(t *testing.T) {
	tests := []struct {
		name      string
		entry     string
		wantTable string
		wantAlias string
	}{
		{"bracketed with alias", "[s].[T] as a", "T", "a"},
		{"bracketed without alias", "[s].[T]", "T", ""},
		{"quoted identifiers", `"dbo"."Orders" as "o"`, "Orders", "o"},
		{"bracketed alias", "[dbo].[Orders] as [o]", "Orders", "o"},
		{"three part name", "[db].[dbo].[Orders] as o", "Orders", "o"},
		{"bare name", "Orders", "Orders", ""},
		{"empty entry", "", "", ""},
		{"only delimiters", `[""]`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, alias := ParseTableEntry(tt.entry)
			assert.Equal(t, tt.wantTable, table)
			assert.Equal(t, tt.wantAlias, alias)
		})
	}
}

func TestResolveTables(t *testing.T) {
	t.Run("maps tables to aliases", func(t *testing.T) {
		aliases := ResolveTables([]string{"[dbo].[Orders] as o", "[dbo].[Customers] as c"})
		assert.Equal(t, AliasMap{"Orders": "o", "Customers": "c"}, aliases)
	})

	t.Run("duplicate canonical name keeps last alias", func(t *testing.T) {
		aliases := ResolveTables([]string{"[sales].[Orders] as o", "[archive].[Orders] as ao"})
		assert.Equal(t, AliasMap{"Orders": "ao"}, aliases)
	})

	t.Run("no entries", func(t *testing.T) {
		assert.Empty(t, ResolveTables(nil))
	})
}

func TestParseTableList(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		entries, err := ParseTableList("[dbo].[Orders] as o, [dbo].[Customers] as c")
		require.NoError(t, err)
		assert.Equal(t, []string{"[dbo].[Orders] as o", "[dbo].[Customers] as c"}, entries)
	})

	t.Run("json array", func(t *testing.T) {
		entries, err := ParseTableList(`["[dbo].[Orders] as o", "[dbo].[Customers]"]`)
		require.NoError(t, err)
		assert.Equal(t, []string{"[dbo].[Orders] as o", "[dbo].[Customers]"}, entries)
	})

	t.Run("json array with inner whitespace", func(t *testing.T) {
		entries, err := ParseTableList("[ \"[dbo].[Orders] as o\" ,\n \"[dbo].[Customers]\" ]")
		require.NoError(t, err)
		assert.Equal(t, []string{"[dbo].[Orders] as o", "[dbo].[Customers]"}, entries)

		entries, err = ParseTableList("[ ]")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("bracketed identifier is not json", func(t *testing.T) {
		entries, err := ParseTableList("[dbo].[Orders] as o")
		require.NoError(t, err)
		assert.Equal(t, []string{"[dbo].[Orders] as o"}, entries)
	})

	t.Run("empty json array", func(t *testing.T) {
		entries, err := ParseTableList("[]")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("blank", func(t *testing.T) {
		entries, err := ParseTableList("   ")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("broken json array", func(t *testing.T) {
		entries, err := ParseTableList(`["[dbo].[Orders] as o", `)
		require.ErrorIs(t, err, ErrUnparseableTableList)
		assert.Nil(t, entries)
	})
}

func TestResolveTableList_SpacedJSONArray(t *testing.T) {
	aliases, err := ResolveTableList(`[ "[dbo].[Orders] as o" ]`)
	require.NoError(t, err)
	assert.Equal(t, AliasMap{"Orders": "o"}, aliases)
}

func TestResolveTableList_UnparseableIsEmpty(t *testing.T) {
	aliases, err := ResolveTableList(`["unterminated`)
	require.Error(t, err)
	assert.NotNil(t, aliases)
	assert.Empty(t, aliases)
}

func TestAliasMap_TableForAlias(t *testing.T) {
	aliases := AliasMap{"Orders": "o", "Customers": "c", "Invoices": "x", "Payments": "x", "Lines": ""}

	table, ok := aliases.TableForAlias("o")
	assert.True(t, ok)
	assert.Equal(t, "Orders", table)

	_, ok = aliases.TableForAlias("x")
	assert.False(t, ok, "alias shared by two tables is ambiguous")

	_, ok = aliases.TableForAlias("")
	assert.False(t, ok, "empty alias never matches")

	_, ok = aliases.TableForAlias("z")
	assert.False(t, ok)
}

func TestAliasMap_Tables(t *testing.T) {
	aliases := AliasMap{"b": "", "a": "x", "c": "y"}
	assert.Equal(t, []string{"a", "b", "c"}, aliases.Tables())
}
