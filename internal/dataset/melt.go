package dataset

import (
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Lookup assigns a category to an instrument name.
type Lookup interface {
	Lookup(instrument string) string
}

// Melt converts a wide table into one observation per present
// (date, instrument) cell. Output is ordered by column, then by date.
// A nil lookup leaves Category empty.
func Melt(t *workbook.Table, lookup Lookup) []domain.Observation {
	if t == nil {
		return nil
	}
	out := make([]domain.Observation, 0, len(t.Rows)*len(t.Columns))
	for c, instrument := range t.Columns {
		cat := ""
		if lookup != nil {
			cat = lookup.Lookup(instrument)
		}
		for _, row := range t.Rows {
			v := row.Values[c]
			if v.IsNull() {
				continue
			}
			out = append(out, domain.Observation{
				Date:       row.Date,
				Instrument: instrument,
				Category:   cat,
				Value:      v.Float,
			})
		}
	}
	return out
}

// Series is the date-ordered observations of one instrument.
type Series struct {
	Instrument   string
	Category     string
	Observations []domain.Observation
}

// GroupByInstrument splits melted observations into per-instrument series,
// keeping first-appearance order.
func GroupByInstrument(obs []domain.Observation) []Series {
	index := make(map[string]int)
	var out []Series
	for _, o := range obs {
		i, ok := index[o.Instrument]
		if !ok {
			i = len(out)
			index[o.Instrument] = i
			out = append(out, Series{Instrument: o.Instrument, Category: o.Category})
		}
		out[i].Observations = append(out[i].Observations, o)
	}
	return out
}
