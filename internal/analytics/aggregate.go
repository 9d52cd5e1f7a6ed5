// Package analytics computes compounded returns, annualized volatility and
// basis-point moves over date windows of melted observations.
//
// Values stay at full precision; rounding belongs to presentation.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// TradingDays annualizes daily volatility.
const TradingDays = 252

// MinVolatilityObservations is the smallest sample with a defined deviation.
const MinVolatilityObservations = 2

// sortedByDate returns a date-ordered copy.
func sortedByDate(obs []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Within keeps observations inside w.
func Within(obs []domain.Observation, w domain.Window) []domain.Observation {
	var out []domain.Observation
	for _, o := range obs {
		if w.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}

// Between keeps observations with start <= date <= end.
func Between(obs []domain.Observation, start, end time.Time) []domain.Observation {
	return Within(obs, domain.Window{Start: start, End: end})
}

// InCategory keeps observations whose category passes filter.
func InCategory(obs []domain.Observation, filter string) []domain.Observation {
	if category.IsAll(filter) {
		return obs
	}
	var out []domain.Observation
	for _, o := range obs {
		if category.Matches(filter, o.Category) {
			out = append(out, o)
		}
	}
	return out
}

// Recategorize returns a copy of obs labelled through lookup.
func Recategorize(obs []domain.Observation, lookup dataset.Lookup) []domain.Observation {
	out := make([]domain.Observation, len(obs))
	for i, o := range obs {
		o.Category = lookup.Lookup(o.Instrument)
		out[i] = o
	}
	return out
}

// Compound returns prod(1+r)-1 over the observations in date order. ok is
// false when there is nothing to compound.
func Compound(obs []domain.Observation) (float64, bool) {
	if len(obs) == 0 {
		return 0, false
	}
	acc := 1.0
	for _, o := range sortedByDate(obs) {
		acc *= 1 + o.Value
	}
	return acc - 1, true
}

// Volatility is the sample standard deviation scaled by sqrt(252). Fewer
// than two observations yield Null.
func Volatility(obs []domain.Observation) domain.Value {
	if len(obs) < MinVolatilityObservations {
		return domain.Null
	}
	xs := make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = o.Value
	}
	return domain.Some(stat.StdDev(xs, nil) * math.Sqrt(TradingDays))
}

// CompoundByInstrument compounds each instrument over w. Instruments without
// observations in w are left out.
func CompoundByInstrument(obs []domain.Observation, w domain.Window) []domain.InstrumentValue {
	var out []domain.InstrumentValue
	for _, s := range dataset.GroupByInstrument(Within(obs, w)) {
		r, ok := Compound(s.Observations)
		if !ok {
			continue
		}
		out = append(out, domain.InstrumentValue{Instrument: s.Instrument, Category: s.Category, Value: domain.Some(r)})
	}
	return out
}

// VolatilityByInstrument computes annualized volatility per instrument over
// w. Instruments with a single observation carry Null.
func VolatilityByInstrument(obs []domain.Observation, w domain.Window) []domain.InstrumentValue {
	var out []domain.InstrumentValue
	for _, s := range dataset.GroupByInstrument(Within(obs, w)) {
		out = append(out, domain.InstrumentValue{Instrument: s.Instrument, Category: s.Category, Value: Volatility(s.Observations)})
	}
	return out
}

// YearToDate compounds each instrument from Jan 1 of end's year through end.
func YearToDate(obs []domain.Observation, end time.Time) []domain.InstrumentValue {
	start := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return CompoundByInstrument(obs, domain.Window{Start: start, End: end})
}

// RiskReturn pairs returns with volatilities by instrument. Instruments
// absent or Null on either side are dropped.
func RiskReturn(returns, volatility []domain.InstrumentValue) []domain.RiskReturnPoint {
	vol := make(map[string]domain.Value, len(volatility))
	for _, v := range volatility {
		vol[v.Instrument] = v.Value
	}
	var out []domain.RiskReturnPoint
	for _, r := range returns {
		v, ok := vol[r.Instrument]
		if !ok || v.IsNull() || r.Value.IsNull() {
			continue
		}
		out = append(out, domain.RiskReturnPoint{
			Instrument: r.Instrument,
			Category:   r.Category,
			Return:     r.Value.Float,
			Volatility: v.Float,
		})
	}
	return out
}

// CumulativePath is the running compounded return of every instrument
// inside w.
func CumulativePath(obs []domain.Observation, w domain.Window) []domain.PathPoint {
	var out []domain.PathPoint
	for _, s := range dataset.GroupByInstrument(Within(obs, w)) {
		acc := 1.0
		for _, o := range sortedByDate(s.Observations) {
			acc *= 1 + o.Value
			out = append(out, domain.PathPoint{Date: o.Date, Instrument: s.Instrument, Category: s.Category, Value: acc - 1})
		}
	}
	return out
}

// Path returns the raw observations inside w as path points.
func Path(obs []domain.Observation, w domain.Window) []domain.PathPoint {
	var out []domain.PathPoint
	for _, s := range dataset.GroupByInstrument(Within(obs, w)) {
		for _, o := range sortedByDate(s.Observations) {
			out = append(out, domain.PathPoint{Date: o.Date, Instrument: s.Instrument, Category: s.Category, Value: o.Value})
		}
	}
	return out
}

// Endpoints returns the first and last observations by date.
func Endpoints(obs []domain.Observation) (first, last domain.Observation, ok bool) {
	if len(obs) == 0 {
		return first, last, false
	}
	sorted := sortedByDate(obs)
	return sorted[0], sorted[len(sorted)-1], true
}

// BasisPoints is (last-first)*10000 over the rates inside w. Fewer than one
// observation yields Null.
func BasisPoints(obs []domain.Observation, w domain.Window) domain.Value {
	first, last, ok := Endpoints(Within(obs, w))
	if !ok {
		return domain.Null
	}
	return domain.Some((last.Value - first.Value) * 10000)
}

// LastIn returns the latest value inside w, or Null.
func LastIn(obs []domain.Observation, w domain.Window) domain.Value {
	_, last, ok := Endpoints(Within(obs, w))
	if !ok {
		return domain.Null
	}
	return domain.Some(last.Value)
}

// PointChange is last/first-1 inside w. It needs at least two observations.
func PointChange(obs []domain.Observation, w domain.Window) domain.Value {
	in := Within(obs, w)
	if len(in) < 2 {
		return domain.Null
	}
	first, last, _ := Endpoints(in)
	if first.Value == 0 {
		return domain.Null
	}
	return domain.Some(last.Value/first.Value - 1)
}
