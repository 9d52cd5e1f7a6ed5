// Package inflation chains price-index levels into monthly changes and
// their accumulated value.
package inflation

import (
	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Indices are the series shown by default, in display order.
var Indices = []string{"IPCA", "INPC", "IGP-M"}

// Chain computes, for every index column of t, the ratio of each row to the
// row of the previous calendar month over w. The row just before w.Start
// (the seed month) is read but never returned. A ratio that touches a
// missing level or a missing month is Null and the accumulated value is Null
// from that row on.
func Chain(t *workbook.Table, w domain.Window) []domain.InflationRow {
	if t == nil {
		return nil
	}
	seeded := period.Seeded(w)

	var rows []workbook.Row
	for _, r := range t.Rows {
		if seeded.Contains(r.Date) {
			rows = append(rows, r)
		}
	}

	visible := 0
	for _, r := range rows {
		if !r.Date.Before(w.Start) {
			visible++
		}
	}
	if visible == 0 {
		return nil
	}

	var out []domain.InflationRow
	for c, index := range t.Columns {
		if !hasValue(rows, c) {
			continue
		}
		out = append(out, chainColumn(index, rows, c, w))
	}
	return out
}

func hasValue(rows []workbook.Row, c int) bool {
	for _, r := range rows {
		if r.Values[c].Valid {
			return true
		}
	}
	return false
}

func chainColumn(index string, rows []workbook.Row, c int, w domain.Window) domain.InflationRow {
	row := domain.InflationRow{Index: index}
	acc, broken := 1.0, false
	for i, r := range rows {
		if r.Date.Before(w.Start) {
			continue
		}
		ratio := domain.Null
		if i > 0 && consecutive(rows[i-1], r) {
			ratio = Ratio(rows[i-1].Values[c], r.Values[c])
		}
		cumulative := domain.Null
		if ratio.IsNull() {
			broken = true
		} else if !broken {
			acc *= 1 + ratio.Float
			cumulative = domain.Some(acc - 1)
		}
		row.Months = append(row.Months, domain.InflationMonth{Month: r.Date, Ratio: ratio, Cumulative: cumulative})
	}
	if n := len(row.Months); n > 0 {
		row.Accumulated = row.Months[n-1].Cumulative
	}
	return row
}

// consecutive reports whether prev falls in the calendar month before cur.
func consecutive(prev, cur workbook.Row) bool {
	return period.MonthStart(prev.Date).Equal(period.MonthStart(cur.Date).AddDate(0, -1, 0))
}

// Ratio is cur/prev-1, Null when either level is missing or prev is zero.
func Ratio(prev, cur domain.Value) domain.Value {
	if prev.IsNull() || cur.IsNull() || prev.Float == 0 {
		return domain.Null
	}
	return domain.Some(cur.Float/prev.Float - 1)
}
