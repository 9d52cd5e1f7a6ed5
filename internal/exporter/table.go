package exporter

import (
	"sort"
	"strconv"
	"time"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Table is a rendered result: headers plus string cells, percentages already
// rounded for presentation.
type Table struct {
	Name    string
	Headers []string
	Records [][]string
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Records)
}

// ReturnsTable renders the multi-period return table
func ReturnsTable(rows []domain.ReturnRow) Table {
	t := Table{
		Name: "retorno",
		Headers: []string{"Ativo", "Categoria", "Mês (%)", "6 Meses (%)", "12 Meses (%)",
			"24 Meses (%)", "36 Meses (%)", "No Ano (%)", "Volatilidade (%)"},
	}
	for _, r := range rows {
		p := r.Present()
		t.Records = append(t.Records, []string{
			p.Instrument, p.Category,
			formatValue(p.Month), formatValue(p.Months6), formatValue(p.Months12),
			formatValue(p.Months24), formatValue(p.Months36), formatValue(p.YTD),
			formatValue(p.Volatility),
		})
	}
	return t
}

// RiskTable renders the volatility table
func RiskTable(rows []domain.RiskRow) Table {
	t := Table{
		Name: "volatilidade",
		Headers: []string{"Ativo", "Categoria", "Volatilidade Mensal (%)", "Volatilidade 6 Meses (%)",
			"Volatilidade 12 Meses (%)", "Volatilidade 24 Meses (%)", "Volatilidade 36 Meses (%)",
			"Volatilidade Anualizada no Ano (%)"},
	}
	for _, r := range rows {
		p := r.Present()
		t.Records = append(t.Records, []string{
			p.Instrument, p.Category,
			formatValue(p.Month), formatValue(p.Months6), formatValue(p.Months12),
			formatValue(p.Months24), formatValue(p.Months36), formatValue(p.YTD),
		})
	}
	return t
}

// InflationTable renders one row per index with one column per month of the
// window and the accumulated change last.
func InflationTable(rows []domain.InflationRow) Table {
	seen := make(map[time.Time]bool)
	var months []time.Time
	for _, r := range rows {
		for _, m := range r.Months {
			if !seen[m.Month] {
				seen[m.Month] = true
				months = append(months, m.Month)
			}
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	t := Table{Name: "inflacao", Headers: []string{"Índice"}}
	for _, m := range months {
		t.Headers = append(t.Headers, formatMonth(m)+" (%)")
	}
	t.Headers = append(t.Headers, "Acumulado (%)")

	for _, r := range rows {
		p := r.Present()
		byMonth := make(map[time.Time]domain.Value, len(p.Months))
		for _, m := range p.Months {
			byMonth[m.Month] = m.Ratio
		}

		record := []string{p.Index}
		for _, m := range months {
			record = append(record, formatValue(byMonth[m]))
		}
		record = append(record, formatValue(p.Accumulated))
		t.Records = append(t.Records, record)
	}
	return t
}

// RatesTable renders the bond rates table
func RatesTable(rows []domain.RateRow) Table {
	t := Table{
		Name: "taxas",
		Headers: []string{"Ativo", "Tipo", "Vencimento", "Fechamento (%)",
			"Basis Points (Mês)", "Basis Points (Ano)", "Duration"},
	}
	for _, r := range rows {
		p := r.Present()
		t.Records = append(t.Records, []string{
			p.Title, string(p.Type), formatInt(p.Maturity), formatValue(p.Closing),
			formatValue(p.BPMonth), formatValue(p.BPYear), formatValue(p.Duration),
		})
	}
	return t
}

// PathTable renders a time series in long format. percent scales the values
// to rounded percentage points; otherwise they are written as stored.
func PathTable(name string, points []domain.PathPoint, percent bool) Table {
	t := Table{Name: name, Headers: []string{"Data", "Ativo", "Categoria", "Valor"}}
	for _, p := range points {
		cell := formatPlain(domain.Some(p.Value).Rounded(6))
		if percent {
			cell = formatValue(domain.Some(p.Value).Percent())
		}
		t.Records = append(t.Records, []string{formatDate(p.Date), p.Instrument, p.Category, cell})
	}
	return t
}

// ValuesTable renders single figures per instrument
func ValuesTable(name string, values []domain.InstrumentValue) Table {
	t := Table{Name: name, Headers: []string{"Ativo", "Categoria", "Valor (%)"}}
	for _, v := range values {
		p := v.Present()
		t.Records = append(t.Records, []string{p.Instrument, p.Category, formatValue(p.Value)})
	}
	return t
}

// RiskReturnTable renders the risk/return scatter
func RiskReturnTable(points []domain.RiskReturnPoint) Table {
	t := Table{Name: "risco_retorno", Headers: []string{"Ativo", "Categoria", "Retorno no Ano (%)", "Volatilidade (%)"}}
	for _, pt := range points {
		p := pt.Present()
		t.Records = append(t.Records, []string{p.Instrument, p.Category, formatFloat(p.Return), formatFloat(p.Volatility)})
	}
	return t
}

// RankingTable renders both ends of a ranking with their positions
func RankingTable(r domain.Ranking) Table {
	t := Table{Name: "ranking", Headers: []string{"Lado", "Posição", "Ativo", "Categoria", "Valor (%)"}}
	add := func(side string, values []domain.InstrumentValue) {
		for i, v := range values {
			p := v.Present()
			t.Records = append(t.Records, []string{side, strconv.Itoa(i + 1), p.Instrument, p.Category, formatValue(p.Value)})
		}
	}
	add("melhores", r.Best)
	add("piores", r.Worst)
	return t
}

// ReportTables renders every table of a monthly report in display order
func ReportTables(r *domain.MonthlyReport) []Table {
	return []Table{
		ReturnsTable(r.Returns),
		RiskTable(r.Risk),
		InflationTable(r.Inflation),
		RatesTable(r.Rates),
	}
}
