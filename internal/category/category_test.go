package category

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_LastDefinitionWins(t *testing.T) {
	table := NewTable("returns", [][2]string{
		{"CDI", "Tesouro Selic"},
		{"IMA-S", "Tesouro Selic"},
		{"LFT 1 3 2026", "Tesouro Selic"},
		{"CDI", "Selic"},
		{"NTN-F 2027", "Pré"},
		{"NTN-F 2027", "Pré"},
	})

	assert.Equal(t, "Selic", table.Lookup("CDI"))
	assert.Equal(t, "Tesouro Selic", table.Lookup("IMA-S"))
	assert.Equal(t, []string{"Tesouro Selic", "Selic", "Pré"}, table.Categories())

	conflicts := table.Conflicts()
	require.Len(t, conflicts, 1, "identical redefinitions are not conflicts")
	assert.Equal(t, "CDI", conflicts[0].Instrument)
	assert.Equal(t, "Tesouro Selic", conflicts[0].Previous)
	assert.Equal(t, "Selic", conflicts[0].Current)
}

func TestTable_LookupUnknown(t *testing.T) {
	table := NewTable("risk", [][2]string{{"Ibovespa", "Renda Variável"}})

	assert.Equal(t, Uncategorized, table.Lookup("ibovespa"), "lookup is exact")
	assert.Equal(t, Uncategorized, table.Lookup("Bitcoin"))

	var nilTable *Table
	assert.Equal(t, Uncategorized, nilTable.Lookup("CDI"))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("", "Crédito"))
	assert.True(t, Matches("Todos", "Crédito"))
	assert.True(t, Matches("all", "Crédito"))
	assert.True(t, Matches("Crédito", "Crédito"))
	assert.False(t, Matches("Renda Fixa", "Crédito"))
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	returns := c.Returns()
	require.NotNil(t, returns)
	assert.Equal(t, "Selic", returns.Lookup("CDI"))
	assert.Equal(t, "Selic", returns.Lookup("IMA-S"))
	assert.Equal(t, "Pós-fixado (IPCA+)", returns.Lookup("NTN-B 2035"))
	assert.Equal(t, "Internacional", returns.Lookup("S&P 500"))

	risk := c.Risk()
	require.NotNil(t, risk)
	assert.Equal(t, "Renda Fixa", risk.Lookup("CDI"), "tables are independent")
	assert.Equal(t, "Renda Fixa", risk.Lookup("IDA IPCA"))
	assert.Equal(t, "Crédito", returns.Lookup("IDA IPCA"))

	conflicts := c.Conflicts()
	assert.Len(t, conflicts, 2)
	for _, cf := range conflicts {
		assert.Equal(t, TableReturns, cf.Table)
	}

	desc, ok := c.Describe("IPCA")
	require.True(t, ok)
	assert.Contains(t, desc, "inflação")
	assert.Equal(t, "CDI", c.Glossary()[0][0])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("tables: ["))
	require.Error(t, err)

	_, err = Read(strings.NewReader("tables:\n  returns: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk")
}
