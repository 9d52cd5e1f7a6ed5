package exporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func sampleReport() *domain.MonthlyReport {
	return &domain.MonthlyReport{
		Year:   2024,
		Month:  3,
		Window: 3,
		Returns: []domain.ReturnRow{{
			Instrument: "CDI",
			Category:   "Renda Fixa",
			Month:      domain.Some(0.00834),
			Months6:    domain.Some(0.0512),
			YTD:        domain.Some(0.0262),
			Volatility: domain.Some(0.0011),
		}},
		Risk: []domain.RiskRow{{Instrument: "Ibovespa", Category: "Alto", Month: domain.Some(0.21)}},
		Inflation: []domain.InflationRow{{
			Index: "IPCA",
			Months: []domain.InflationMonth{
				{Month: month(2024, 2), Ratio: domain.Some(0.01), Cumulative: domain.Some(0.01)},
				{Month: month(2024, 3), Ratio: domain.Some(0.0099), Cumulative: domain.Some(0.0200)},
			},
			Accumulated: domain.Some(0.02),
		}},
		Rates: []domain.RateRow{{
			Title:    "NTN-B 2035",
			Type:     domain.BondIPCA,
			Maturity: 2035,
			BPMonth:  domain.Some(20),
			BPYear:   domain.Some(40.126),
			Closing:  domain.Some(0.059),
		}},
	}
}

func TestReturnsTable(t *testing.T) {
	table := ReturnsTable(sampleReport().Returns)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Ativo", table.Headers[0])
	assert.Len(t, table.Records[0], len(table.Headers))
	assert.Equal(t, []string{"CDI", "Renda Fixa", "0.83", "5.12", "", "", "", "2.62", "0.11"}, table.Records[0])
}

func TestInflationTable(t *testing.T) {
	rows := sampleReport().Inflation
	rows = append(rows, domain.InflationRow{
		Index:       "IGP-M",
		Months:      []domain.InflationMonth{{Month: month(2024, 3), Ratio: domain.Some(-0.005)}},
		Accumulated: domain.Null,
	})

	table := InflationTable(rows)
	assert.Equal(t, []string{"Índice", "2024-02 (%)", "2024-03 (%)", "Acumulado (%)"}, table.Headers)
	assert.Equal(t, []string{"IPCA", "1.00", "0.99", "2.00"}, table.Records[0])
	assert.Equal(t, []string{"IGP-M", "", "-0.50", ""}, table.Records[1], "months an index lacks stay empty")
}

func TestRatesTable(t *testing.T) {
	table := RatesTable(sampleReport().Rates)
	assert.Equal(t, []string{"NTN-B 2035", string(domain.BondIPCA), "2035", "5.90", "20.00", "40.13", ""}, table.Records[0])
}

func TestRankingAndPathTables(t *testing.T) {
	ranking := RankingTable(domain.Ranking{
		Best:  []domain.InstrumentValue{{Instrument: "Ibovespa", Value: domain.Some(0.05)}, {Instrument: "CDI", Value: domain.Some(0.01)}},
		Worst: []domain.InstrumentValue{{Instrument: "Dólar", Value: domain.Some(-0.02)}},
	})
	require.Equal(t, 3, ranking.Len())
	assert.Equal(t, []string{"melhores", "2", "CDI", "", "1.00"}, ranking.Records[1])
	assert.Equal(t, []string{"piores", "1", "Dólar", "", "-2.00"}, ranking.Records[2])

	path := PathTable("taxas_path", []domain.PathPoint{{Date: time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC), Instrument: "LTN 2030", Value: 0.105}}, false)
	assert.Equal(t, []string{"2024-03-28", "LTN 2030", "", "0.105"}, path.Records[0])

	pct := PathTable("retorno_path", []domain.PathPoint{{Date: time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC), Instrument: "CDI", Value: 0.0123}}, true)
	assert.Equal(t, "1.23", pct.Records[0][3])

	scatter := RiskReturnTable([]domain.RiskReturnPoint{{Instrument: "CDI", Return: 0.0262, Volatility: 0.0011}})
	assert.Equal(t, []string{"CDI", "", "2.62", "0.11"}, scatter.Records[0])
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(WriteOptions{BOMPrefix: true}, nil)

	require.NoError(t, w.Write(&buf, RatesTable(sampleReport().Rates)))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Fechamento (%)", records[0][3])
	assert.Equal(t, "NTN-B 2035", records[1][0])
}

func TestCSVWriter_Sections(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(WriteOptions{SectionBreak: true, Comma: ';'}, nil)

	require.NoError(t, w.Write(&buf, ReportTables(sampleReport())...))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# retorno\n"))
	assert.Contains(t, out, "\n\n# taxas\n")
	assert.Contains(t, out, "NTN-B 2035;")
}

func TestWriteMarkdown(t *testing.T) {
	report := sampleReport()
	report.Category = "Renda Fixa"
	report.Risk = nil

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "# Relatório de Mercado - Março de 2024")
	assert.Contains(t, out, "Categoria: **Renda Fixa**")
	assert.Contains(t, out, "## Retorno")
	assert.Contains(t, out, "| CDI | Renda Fixa | 0.83 | 5.12 | - | - | - | 2.62 | 0.11 |")
	assert.Contains(t, out, "## Volatilidade\n\n_Sem dados para o período._")
	assert.Contains(t, out, "## Inflação")
	assert.Contains(t, out, "|---|---|---|---|")
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), "csv"))
	assert.Contains(t, buf.String(), "# inflacao")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, sampleReport(), ""))
	assert.Contains(t, buf.String(), "# Relatório")

	assert.Error(t, WriteReport(&buf, sampleReport(), "pdf"))
	assert.Error(t, WriteReport(&buf, nil, "csv"))
	assert.Error(t, WriteMarkdown(&buf, nil))
}
