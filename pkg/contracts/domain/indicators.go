package domain

import (
	"time"
)

// Sheet identifies one of the workbook tabs.
type Sheet string

const (
	SheetReturn    Sheet = "return"
	SheetRisk      Sheet = "risk"
	SheetInflation Sheet = "inflation"
	SheetRates     Sheet = "rates"
	SheetDuration  Sheet = "duration"
)

// Sheets lists every sheet the loader requires, in workbook order.
var Sheets = []Sheet{SheetReturn, SheetRisk, SheetInflation, SheetRates, SheetDuration}

// Observation is one (date, instrument, value) triple of the long format.
type Observation struct {
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
	Category   string    `json:"category"`
	Value      float64   `json:"value"`
}

// Window is a closed date interval covering whole calendar months.
type Window struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Months int       `json:"months"`
}

// Contains reports whether t falls inside the window, both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// PathPoint is one point of a per-instrument time series.
type PathPoint struct {
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
	Category   string    `json:"category"`
	Value      float64   `json:"value"`
}

// Present returns a copy with the value in rounded percentage points.
func (p PathPoint) Present() PathPoint {
	p.Value = Some(p.Value).Percent().Float
	return p
}

// PresentPath applies Present to every point.
func PresentPath(points []PathPoint) []PathPoint {
	out := make([]PathPoint, len(points))
	for i, p := range points {
		out[i] = p.Present()
	}
	return out
}

// InstrumentValue is a single aggregated figure for an instrument.
type InstrumentValue struct {
	Instrument string `json:"instrument"`
	Category   string `json:"category,omitempty"`
	Value      Value  `json:"value"`
}

// Present returns a copy with the value expressed in rounded percentage points.
func (iv InstrumentValue) Present() InstrumentValue {
	iv.Value = iv.Value.Percent()
	return iv
}

// ReturnRow is one line of the multi-period return table.
type ReturnRow struct {
	Instrument string `json:"instrument"`
	Category   string `json:"category"`
	Month      Value  `json:"month"`
	Months6    Value  `json:"months_6"`
	Months12   Value  `json:"months_12"`
	Months24   Value  `json:"months_24"`
	Months36   Value  `json:"months_36"`
	YTD        Value  `json:"ytd"`
	Volatility Value  `json:"volatility"`
}

// Present returns a copy in rounded percentage points.
func (r ReturnRow) Present() ReturnRow {
	r.Month = r.Month.Percent()
	r.Months6 = r.Months6.Percent()
	r.Months12 = r.Months12.Percent()
	r.Months24 = r.Months24.Percent()
	r.Months36 = r.Months36.Percent()
	r.YTD = r.YTD.Percent()
	r.Volatility = r.Volatility.Percent()
	return r
}

// RiskRow is one line of the volatility table.
type RiskRow struct {
	Instrument string `json:"instrument"`
	Category   string `json:"category"`
	Month      Value  `json:"month"`
	Months6    Value  `json:"months_6"`
	Months12   Value  `json:"months_12"`
	Months24   Value  `json:"months_24"`
	Months36   Value  `json:"months_36"`
	YTD        Value  `json:"ytd"`
}

// Present returns a copy in rounded percentage points.
func (r RiskRow) Present() RiskRow {
	r.Month = r.Month.Percent()
	r.Months6 = r.Months6.Percent()
	r.Months12 = r.Months12.Percent()
	r.Months24 = r.Months24.Percent()
	r.Months36 = r.Months36.Percent()
	r.YTD = r.YTD.Percent()
	return r
}

// RiskReturnPoint pairs year-to-date return with window volatility.
type RiskReturnPoint struct {
	Instrument string  `json:"instrument"`
	Category   string  `json:"category"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
}

// Present returns a copy in rounded percentage points.
func (p RiskReturnPoint) Present() RiskReturnPoint {
	p.Return = Some(p.Return).Percent().Float
	p.Volatility = Some(p.Volatility).Percent().Float
	return p
}

// InflationMonth is the month-over-month change of an index and the change
// accumulated since the start of the range.
type InflationMonth struct {
	Month      time.Time `json:"month"`
	Ratio      Value     `json:"ratio"`
	Cumulative Value     `json:"cumulative"`
}

// InflationRow is the chained series of one inflation index.
type InflationRow struct {
	Index       string           `json:"index"`
	Months      []InflationMonth `json:"months"`
	Accumulated Value            `json:"accumulated"`
}

// Present returns a copy in rounded percentage points.
func (r InflationRow) Present() InflationRow {
	months := make([]InflationMonth, len(r.Months))
	for i, m := range r.Months {
		months[i] = InflationMonth{Month: m.Month, Ratio: m.Ratio.Percent(), Cumulative: m.Cumulative.Percent()}
	}
	r.Months = months
	r.Accumulated = r.Accumulated.Percent()
	return r
}

// BondType classifies government bonds by indexation.
type BondType string

const (
	BondSelic    BondType = "Pós Fixado (Selic)"
	BondIPCA     BondType = "Pós Fixado (IPCA)"
	BondIGPM     BondType = "Pós Fixado (IGP-M)"
	BondPrefixed BondType = "Pré-fixados"
)

// RateRow is one line of the bond rates table.
type RateRow struct {
	Title    string   `json:"title"`
	Type     BondType `json:"type"`
	Maturity int      `json:"maturity,omitempty"`
	BPMonth  Value    `json:"bp_month"`
	BPYear   Value    `json:"bp_year"`
	Duration Value    `json:"duration"`
	Closing  Value    `json:"closing"`
}

// Present rounds basis points and duration and expresses the closing rate in
// percentage points.
func (r RateRow) Present() RateRow {
	r.BPMonth = r.BPMonth.Rounded(2)
	r.BPYear = r.BPYear.Rounded(2)
	r.Duration = r.Duration.Rounded(2)
	r.Closing = r.Closing.Percent()
	return r
}

// LeadingTitle is the bond with the highest rate of its group on the latest
// date, with its recent path.
type LeadingTitle struct {
	Group   string      `json:"group"`
	Title   string      `json:"title"`
	Date    time.Time   `json:"date"`
	Rate    float64     `json:"rate"`
	History []PathPoint `json:"history"`
}

// Present returns a copy with the rate and history in percentage points.
func (t LeadingTitle) Present() LeadingTitle {
	t.Rate = Some(t.Rate).Percent().Float
	t.History = PresentPath(t.History)
	return t
}

// Horizon is the accumulated return of an instrument over a number of months.
type Horizon struct {
	Months     int   `json:"months"`
	Value      Value `json:"value"`
	Applicable bool  `json:"applicable"`
}

// InstrumentProfile describes one instrument for the detail view.
type InstrumentProfile struct {
	Instrument  string    `json:"instrument"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	LastDate    time.Time `json:"last_date"`
	Horizons    []Horizon `json:"horizons"`
}

// Present returns a copy with the horizons in percentage points.
func (p InstrumentProfile) Present() InstrumentProfile {
	horizons := make([]Horizon, len(p.Horizons))
	for i, h := range p.Horizons {
		h.Value = h.Value.Percent()
		horizons[i] = h
	}
	p.Horizons = horizons
	return p
}

// Ranking holds both ends of a ranked list.
type Ranking struct {
	Window Window            `json:"window"`
	Best   []InstrumentValue `json:"best"`
	Worst  []InstrumentValue `json:"worst"`
}

// Present returns a copy in rounded percentage points.
func (r Ranking) Present() Ranking {
	present := func(values []InstrumentValue) []InstrumentValue {
		out := make([]InstrumentValue, len(values))
		for i, v := range values {
			out[i] = v.Present()
		}
		return out
	}
	r.Best = present(r.Best)
	r.Worst = present(r.Worst)
	return r
}

// Periods lists the years and months that have month-end observations.
type Periods struct {
	Years  []int         `json:"years"`
	Months map[int][]int `json:"months"`
}

// CategoryConflict records an instrument defined twice with different labels.
type CategoryConflict struct {
	Table      string `json:"table"`
	Instrument string `json:"instrument"`
	Previous   string `json:"previous"`
	Current    string `json:"current"`
}

// SheetSummary is the shape of one loaded sheet.
type SheetSummary struct {
	Sheet       Sheet     `json:"sheet"`
	Rows        int       `json:"rows"`
	Instruments []string  `json:"instruments"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
}

// DatasetInfo describes the dataset currently being served.
type DatasetInfo struct {
	Source    string             `json:"source"`
	LoadedAt  time.Time          `json:"loaded_at"`
	Version   int64              `json:"version"`
	Sheets    []SheetSummary     `json:"sheets"`
	Conflicts []CategoryConflict `json:"conflicts,omitempty"`
}

// CategoryListing is one category table as served to clients.
type CategoryListing struct {
	Table       string            `json:"table"`
	Categories  []string          `json:"categories"`
	Instruments map[string]string `json:"instruments"`
}

// GlossaryEntry is one line of the indicator glossary.
type GlossaryEntry struct {
	Instrument  string `json:"instrument"`
	Description string `json:"description"`
}

// RateFilters lists the choices available to the rates views.
type RateFilters struct {
	Types      []BondType `json:"types"`
	Maturities []int      `json:"maturities"`
}

// MonthlyReport gathers every table of one reference month.
type MonthlyReport struct {
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Category  string         `json:"category,omitempty"`
	Window    int            `json:"window"`
	Returns   []ReturnRow    `json:"returns"`
	Risk      []RiskRow      `json:"risk"`
	Inflation []InflationRow `json:"inflation"`
	Rates     []RateRow      `json:"rates"`
}
