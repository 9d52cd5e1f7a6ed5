package analytics

import (
	"sort"
	"time"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// TableLengths are the trailing windows shown in the return and risk tables.
var TableLengths = []int{6, 12, 24, 36}

type tableWindows struct {
	month  domain.Window
	ytd    domain.Window
	spans  []domain.Window
	widest domain.Window
}

func resolveTableWindows(year, month int) (tableWindows, error) {
	var tw tableWindows
	var err error
	if tw.month, err = period.Month(year, month); err != nil {
		return tw, err
	}
	if tw.ytd, err = period.YearToDate(year, month); err != nil {
		return tw, err
	}
	for _, n := range TableLengths {
		w, err := period.Resolve(year, month, n)
		if err != nil {
			return tw, err
		}
		tw.spans = append(tw.spans, w)
	}
	tw.widest = tw.spans[len(tw.spans)-1]
	return tw, nil
}

func compoundValue(obs []domain.Observation, w domain.Window) domain.Value {
	r, ok := Compound(Within(obs, w))
	if !ok {
		return domain.Null
	}
	return domain.Some(r)
}

// ReturnTable builds, per instrument, the compounded return of the reference
// month, of the trailing 6/12/24/36 months and year to date, plus the
// annualized volatility over the selected window. Cells without data are
// Null; instruments with no data at all are omitted.
func ReturnTable(obs []domain.Observation, year, month, window int) ([]domain.ReturnRow, error) {
	tw, err := resolveTableWindows(year, month)
	if err != nil {
		return nil, err
	}
	volWindow, err := period.Resolve(year, month, window)
	if err != nil {
		return nil, err
	}

	var rows []domain.ReturnRow
	for _, s := range dataset.GroupByInstrument(obs) {
		if len(Within(s.Observations, tw.widest)) == 0 && len(Within(s.Observations, volWindow)) == 0 {
			continue
		}
		rows = append(rows, domain.ReturnRow{
			Instrument: s.Instrument,
			Category:   s.Category,
			Month:      compoundValue(s.Observations, tw.month),
			Months6:    compoundValue(s.Observations, tw.spans[0]),
			Months12:   compoundValue(s.Observations, tw.spans[1]),
			Months24:   compoundValue(s.Observations, tw.spans[2]),
			Months36:   compoundValue(s.Observations, tw.spans[3]),
			YTD:        compoundValue(s.Observations, tw.ytd),
			Volatility: Volatility(Within(s.Observations, volWindow)),
		})
	}
	return rows, nil
}

// RiskTable builds, per instrument of the return series, the last published
// volatility of the reference month together with the annualized volatility
// of daily returns over trailing 6/12/24/36 months and year to date.
// Instruments without any figure are omitted.
func RiskTable(returns, published []domain.Observation, year, month int) ([]domain.RiskRow, error) {
	tw, err := resolveTableWindows(year, month)
	if err != nil {
		return nil, err
	}

	monthly := make(map[string]domain.Value)
	for _, s := range dataset.GroupByInstrument(published) {
		monthly[s.Instrument] = LastIn(s.Observations, tw.month)
	}

	var rows []domain.RiskRow
	for _, s := range dataset.GroupByInstrument(returns) {
		row := domain.RiskRow{
			Instrument: s.Instrument,
			Category:   s.Category,
			Month:      monthly[s.Instrument],
			Months6:    Volatility(Within(s.Observations, tw.spans[0])),
			Months12:   Volatility(Within(s.Observations, tw.spans[1])),
			Months24:   Volatility(Within(s.Observations, tw.spans[2])),
			Months36:   Volatility(Within(s.Observations, tw.spans[3])),
			YTD:        Volatility(Within(s.Observations, tw.ytd)),
		}
		if row.Month.IsNull() && row.Months6.IsNull() && row.Months12.IsNull() &&
			row.Months24.IsNull() && row.Months36.IsNull() && row.YTD.IsNull() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MonthlyReturns compounds each instrument over the reference month and
// appends the change of every index series from the close of the previous
// calendar month to the close of the month of w.End. Instruments named in
// exclude are skipped from the return side.
func MonthlyReturns(returns, indices []domain.Observation, w domain.Window, exclude map[string]bool) []domain.InstrumentValue {
	var out []domain.InstrumentValue
	for _, iv := range CompoundByInstrument(returns, w) {
		if exclude[iv.Instrument] {
			continue
		}
		out = append(out, iv)
	}
	for _, s := range dataset.GroupByInstrument(indices) {
		v := MonthOverMonth(s.Observations, w.End)
		if v.IsNull() {
			continue
		}
		out = append(out, domain.InstrumentValue{Instrument: s.Instrument, Category: s.Category, Value: v})
	}
	return out
}

// HeadlineReturns compounds the named instruments over the latest month in
// the return series and adds month-over-month changes of the index series,
// taken from the last value of each of their two latest months.
func HeadlineReturns(returns, indices []domain.Observation, names []string) []domain.InstrumentValue {
	var out []domain.InstrumentValue
	if len(returns) > 0 {
		_, last, _ := Endpoints(returns)
		w := domain.Window{Start: period.MonthStart(last.Date), End: period.MonthEnd(last.Date.Year(), last.Date.Month()), Months: 1}
		byName := make(map[string]domain.InstrumentValue)
		for _, iv := range CompoundByInstrument(returns, w) {
			byName[iv.Instrument] = iv
		}
		for _, n := range names {
			if iv, ok := byName[n]; ok {
				out = append(out, iv)
			}
		}
	}

	for _, s := range dataset.GroupByInstrument(indices) {
		closes := monthCloses(s.Observations)
		if len(closes) < 2 {
			continue
		}
		prev, cur := closes[len(closes)-2], closes[len(closes)-1]
		if prev.Value == 0 {
			continue
		}
		out = append(out, domain.InstrumentValue{Instrument: s.Instrument, Category: s.Category, Value: domain.Some(cur.Value/prev.Value - 1)})
	}
	return out
}

// MonthOverMonth is close(month of end)/close(previous month)-1, where a close
// is the last observation of a month. Null when either month has no
// observation.
func MonthOverMonth(obs []domain.Observation, end time.Time) domain.Value {
	start := period.MonthStart(end)
	prevStart := start.AddDate(0, -1, 0)

	var prev, cur *domain.Observation
	for _, o := range monthCloses(obs) {
		o := o
		switch {
		case sameMonth(o.Date, prevStart):
			prev = &o
		case sameMonth(o.Date, start):
			cur = &o
		}
	}
	if prev == nil || cur == nil || prev.Value == 0 {
		return domain.Null
	}
	return domain.Some(cur.Value/prev.Value - 1)
}

// monthCloses returns the last observation of every month, in date order.
func monthCloses(obs []domain.Observation) []domain.Observation {
	sorted := sortedByDate(obs)
	var out []domain.Observation
	for i, o := range sorted {
		if i+1 < len(sorted) && sameMonth(sorted[i+1].Date, o.Date) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// OverviewAssets are the instruments of the six-month overview.
var OverviewAssets = []string{"CDI", "Ima-B", "Ima-B 5", "Ima-B 5+", "IRF-M", "Ibovespa", "S&P 500"}

// OverviewMonths is the overview look-back.
const OverviewMonths = 6

// Overview compounds assets from (last date - 6 months) to the last date of
// the return series and adds the point change of every index over the same
// span. Missing figures are dropped; the result is sorted descending.
func Overview(returns, indices []domain.Observation, assets []string) []domain.InstrumentValue {
	if len(returns) == 0 {
		return nil
	}
	_, last, _ := Endpoints(returns)
	start := last.Date.AddDate(0, -OverviewMonths, 0)
	w := domain.Window{Start: start, End: last.Date, Months: OverviewMonths}

	wanted := make(map[string]bool, len(assets))
	for _, a := range assets {
		wanted[a] = true
	}

	var out []domain.InstrumentValue
	for _, iv := range CompoundByInstrument(returns, w) {
		if wanted[iv.Instrument] {
			out = append(out, iv)
		}
	}
	for _, s := range dataset.GroupByInstrument(indices) {
		if v := PointChange(s.Observations, w); !v.IsNull() {
			out = append(out, domain.InstrumentValue{Instrument: s.Instrument, Category: s.Category, Value: v})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.Float > out[j].Value.Float
	})
	return out
}

// HorizonMonths are the look-backs of the instrument profile.
var HorizonMonths = []int{1, 12, 36, 60}

// NoHorizons lists instruments whose accumulated returns are not shown.
var NoHorizons = map[string]bool{
	"IPCA": true, "NTN-B": true, "NTN-F": true, "LFT": true, "INPC": true, "IGP-M": true,
}

// Horizons computes accumulated returns of one instrument. For n months the
// anchor is the last observation of the month n months before the month of
// the latest observation; the return compounds every observation after the
// anchor up to the latest one. A missing anchor yields Null.
func Horizons(instrument string, obs []domain.Observation, months []int) []domain.Horizon {
	out := make([]domain.Horizon, 0, len(months))
	if NoHorizons[instrument] {
		for _, n := range months {
			out = append(out, domain.Horizon{Months: n})
		}
		return out
	}
	if len(obs) == 0 {
		for _, n := range months {
			out = append(out, domain.Horizon{Months: n, Applicable: true})
		}
		return out
	}

	sorted := sortedByDate(obs)
	last := sorted[len(sorted)-1].Date
	for _, n := range months {
		h := domain.Horizon{Months: n, Applicable: true}
		anchorMonth := time.Date(last.Year(), last.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
		anchorEnd := period.MonthEnd(anchorMonth.Year(), anchorMonth.Month())
		_, anchor, ok := Endpoints(Between(sorted, anchorMonth, anchorEnd))
		if ok {
			var span []domain.Observation
			for _, o := range sorted {
				if o.Date.After(anchor.Date) {
					span = append(span, o)
				}
			}
			if r, ok := Compound(span); ok {
				h.Value = domain.Some(r)
			}
		}
		out = append(out, h)
	}
	return out
}
