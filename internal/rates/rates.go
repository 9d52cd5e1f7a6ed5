// Package rates derives the government bond views: basis-point moves,
// duration in years, closing rates and the leading title of each group.
package rates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Pittuba/dash-mercado/internal/analytics"
	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// DurationDays converts duration in business days to years.
const DurationDays = 252

var maturityPattern = regexp.MustCompile(`20\d{2}`)

// Classify returns the indexation type of a bond title.
func Classify(title string) domain.BondType {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "lft"):
		return domain.BondSelic
	case strings.Contains(t, "ntn-b"):
		return domain.BondIPCA
	case strings.Contains(t, "ntn-c"):
		return domain.BondIGPM
	default:
		return domain.BondPrefixed
	}
}

// BondTypes lists every classification in display order.
var BondTypes = []domain.BondType{domain.BondPrefixed, domain.BondSelic, domain.BondIPCA, domain.BondIGPM}

// MaturityYear is the last 20xx year mentioned in the title.
func MaturityYear(title string) (int, bool) {
	matches := maturityPattern.FindAllString(title, -1)
	if len(matches) == 0 {
		return 0, false
	}
	y, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// NormalizeTitle trims and upper-cases a title for joins across sheets.
func NormalizeTitle(title string) string {
	return strings.ToUpper(strings.TrimSpace(title))
}

// Filter narrows the titles considered.
type Filter struct {
	Type       string
	Maturities []int
}

// Match reports whether title passes the filter.
func (f Filter) Match(title string) bool {
	if !category.IsAll(f.Type) && string(Classify(title)) != strings.TrimSpace(f.Type) {
		return false
	}
	if len(f.Maturities) == 0 {
		return true
	}
	y, ok := MaturityYear(title)
	if !ok {
		return false
	}
	for _, m := range f.Maturities {
		if m == y {
			return true
		}
	}
	return false
}

func (f Filter) apply(obs []domain.Observation) []domain.Observation {
	var out []domain.Observation
	for _, o := range obs {
		if f.Match(o.Instrument) {
			out = append(out, o)
		}
	}
	return out
}

// Maturities lists the distinct maturity years of the titles, ascending.
func Maturities(titles []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, t := range titles {
		if y, ok := MaturityYear(t); ok && !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

// Path returns the filtered rate series inside the window of length months
// ending with (year, month).
func Path(rates []domain.Observation, year, month, length int, f Filter) ([]domain.PathPoint, error) {
	w, err := period.Resolve(year, month, length)
	if err != nil {
		return nil, err
	}
	return analytics.Path(f.apply(rates), w), nil
}

// DurationPath returns durations from Jan 1 through the end of the month.
func DurationPath(durations []domain.Observation, year, month int) ([]domain.PathPoint, error) {
	w, err := period.YearToDate(year, month)
	if err != nil {
		return nil, err
	}
	return analytics.Path(durations, w), nil
}

// Table builds one row per title with rates in the selected window:
// basis-point moves over the reference month and over the year to date,
// the last duration of the window in years and the closing rate on the
// last calendar day of the month.
func Table(rates, durations []domain.Observation, year, month, length int, f Filter) ([]domain.RateRow, error) {
	w, err := period.Resolve(year, month, length)
	if err != nil {
		return nil, err
	}
	mw, _ := period.Month(year, month)
	yw, _ := period.YearToDate(year, month)

	durationByTitle := make(map[string]domain.Value)
	for _, s := range dataset.GroupByInstrument(durations) {
		if v := analytics.LastIn(s.Observations, w); v.Valid {
			durationByTitle[NormalizeTitle(s.Instrument)] = domain.Some(v.Float / DurationDays)
		}
	}

	var rows []domain.RateRow
	for _, s := range dataset.GroupByInstrument(f.apply(rates)) {
		if len(analytics.Within(s.Observations, w)) == 0 {
			continue
		}
		bpMonth := analytics.BasisPoints(s.Observations, mw)
		bpYear := analytics.BasisPoints(s.Observations, yw)
		if bpMonth.IsNull() && bpYear.IsNull() {
			continue
		}
		title := NormalizeTitle(s.Instrument)
		maturity, _ := MaturityYear(title)
		rows = append(rows, domain.RateRow{
			Title:    title,
			Type:     Classify(s.Instrument),
			Maturity: maturity,
			BPMonth:  bpMonth,
			BPYear:   bpYear,
			Duration: durationByTitle[title],
			Closing:  closing(s.Observations, mw.End),
		})
	}
	return rows, nil
}

func closing(obs []domain.Observation, day time.Time) domain.Value {
	for _, o := range obs {
		if o.Date.Equal(day) {
			return domain.Some(o.Value)
		}
	}
	return domain.Null
}

// LeadingGroups names the groups of LeadingTitles and how titles join them.
var LeadingGroups = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{Name: "Pré-fixado", Pattern: regexp.MustCompile(`(?i)NTN-F|prefixado`)},
	{Name: "Pós-fixado (IPCA+)", Pattern: regexp.MustCompile(`(?i)NTN-B|ipca\+`)},
}

// LeadingMonths is the look-back of LeadingTitles.
const LeadingMonths = 3

// LeadingTitles picks, per group, the title with the highest rate on the
// latest date and returns its path over the last three months.
func LeadingTitles(rates []domain.Observation) []domain.LeadingTitle {
	_, last, ok := analytics.Endpoints(rates)
	if !ok {
		return nil
	}
	span := domain.Window{Start: last.Date.AddDate(0, -LeadingMonths, 0), End: last.Date, Months: LeadingMonths}
	recent := analytics.Within(rates, span)

	var out []domain.LeadingTitle
	for _, g := range LeadingGroups {
		var best *domain.Observation
		for i, o := range recent {
			if !o.Date.Equal(last.Date) || !g.Pattern.MatchString(o.Instrument) {
				continue
			}
			if best == nil || o.Value > best.Value {
				best = &recent[i]
			}
		}
		if best == nil {
			continue
		}
		lt := domain.LeadingTitle{Group: g.Name, Title: best.Instrument, Date: best.Date, Rate: best.Value}
		for _, s := range dataset.GroupByInstrument(recent) {
			if s.Instrument == best.Instrument {
				lt.History = analytics.Path(s.Observations, span)
			}
		}
		out = append(out, lt)
	}
	return out
}
