package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Pittuba/dash-mercado/internal/analytics"
	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/infrastructure"
	"github.com/Pittuba/dash-mercado/internal/inflation"
	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/internal/ranking"
	"github.com/Pittuba/dash-mercado/internal/rates"
	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Ranking sides accepted by Ranking.
const (
	SideBest  = "best"
	SideWorst = "worst"
	SideBoth  = "both"
)

// IndicatorService answers every indicator query against the dataset
// snapshot current at the time of the call.
type IndicatorService struct {
	store   *dataset.Store
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewIndicatorService creates the service on top of store.
func NewIndicatorService(store *dataset.Store, logger *slog.Logger) *IndicatorService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("IndicatorService initialized",
		slog.String("workbook", store.Path()))

	return &IndicatorService{
		store:  store,
		logger: logger.With(slog.String("component", "indicator_service")),
	}
}

// SetMetrics enables query metrics.
func (s *IndicatorService) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	s.metrics = metrics
}

func (s *IndicatorService) snapshot() (*dataset.Context, error) {
	c, err := s.store.Snapshot()
	if errors.Is(err, dataset.ErrNotLoaded) {
		return nil, ErrDatasetNotLoaded
	}
	return c, err
}

func (s *IndicatorService) observe(ctx context.Context, indicator string, start time.Time, rows int, err error) {
	duration := time.Since(start)
	infrastructure.RecordQueryMetrics(ctx, s.metrics, indicator, duration, rows, err)

	if err != nil {
		s.logger.WarnContext(ctx, "indicator query rejected",
			slog.String("indicator", indicator),
			slog.String("error", err.Error()))
		return
	}
	s.logger.DebugContext(ctx, "indicator query served",
		slog.String("indicator", indicator),
		slog.Int("rows", rows),
		slog.Duration("duration", duration))
}

func lengthOrDefault(n int) int {
	if n == 0 {
		return period.DefaultLength
	}
	return n
}

// ReturnPath returns the cumulative return path of every instrument in the
// category over the selected window.
func (s *IndicatorService) ReturnPath(ctx context.Context, req api.ReturnsRequest) (points []domain.PathPoint, err error) {
	defer func(start time.Time) { s.observe(ctx, "returns_path", start, len(points), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	w, err := c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, lengthOrDefault(req.Window))
	if err != nil {
		return nil, err
	}
	return analytics.CumulativePath(analytics.InCategory(c.Long(domain.SheetReturn), req.Category), w), nil
}

// ReturnTable returns the multi-period return table of the category.
func (s *IndicatorService) ReturnTable(ctx context.Context, req api.ReturnsRequest) (rows []domain.ReturnRow, err error) {
	defer func(start time.Time) { s.observe(ctx, "returns_table", start, len(rows), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	length := lengthOrDefault(req.Window)
	if _, err = c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, length); err != nil {
		return nil, err
	}
	return analytics.ReturnTable(analytics.InCategory(c.Long(domain.SheetReturn), req.Category), req.Year, req.Month, length)
}

// RiskReturn pairs year-to-date returns with the volatility over the
// selected window.
func (s *IndicatorService) RiskReturn(ctx context.Context, req api.ReturnsRequest) (points []domain.RiskReturnPoint, err error) {
	defer func(start time.Time) { s.observe(ctx, "risk_return", start, len(points), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	w, err := c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, lengthOrDefault(req.Window))
	if err != nil {
		return nil, err
	}
	obs := analytics.InCategory(c.Long(domain.SheetReturn), req.Category)
	return analytics.RiskReturn(analytics.YearToDate(obs, w.End), analytics.VolatilityByInstrument(obs, w)), nil
}

// RiskPath returns the published volatility series from Jan 1 through the
// reference month.
func (s *IndicatorService) RiskPath(ctx context.Context, req api.RiskRequest) (points []domain.PathPoint, err error) {
	defer func(start time.Time) { s.observe(ctx, "risk_path", start, len(points), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if _, err = c.Resolver(domain.SheetRisk).Resolve(req.Year, req.Month, 1); err != nil {
		return nil, err
	}
	w, err := period.YearToDate(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	return analytics.Path(analytics.InCategory(c.Long(domain.SheetRisk), req.Category), w), nil
}

// RiskTable returns published and rolling volatilities. Return series are
// labelled with the risk table before the category filter applies.
func (s *IndicatorService) RiskTable(ctx context.Context, req api.RiskRequest) (rows []domain.RiskRow, err error) {
	defer func(start time.Time) { s.observe(ctx, "risk_table", start, len(rows), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if _, err = c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, 1); err != nil {
		return nil, err
	}
	returns := analytics.InCategory(analytics.Recategorize(c.Long(domain.SheetReturn), c.Catalog.Risk()), req.Category)
	return analytics.RiskTable(returns, c.Long(domain.SheetRisk), req.Year, req.Month)
}

// Inflation chains the index levels from December of the previous year
// through the reference month.
func (s *IndicatorService) Inflation(ctx context.Context, req api.PeriodRequest) (rows []domain.InflationRow, err error) {
	defer func(start time.Time) { s.observe(ctx, "inflation", start, len(rows), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if _, err = c.Resolver(domain.SheetInflation).Resolve(req.Year, req.Month, 1); err != nil {
		return nil, err
	}
	w, err := period.YearToDate(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	return inflation.Chain(c.Table(domain.SheetInflation), w), nil
}

func rateFilter(req api.RatesRequest) rates.Filter {
	return rates.Filter{Type: req.Type, Maturities: req.Maturity}
}

// RatesPath returns the filtered bond rate series over the window.
func (s *IndicatorService) RatesPath(ctx context.Context, req api.RatesRequest) (points []domain.PathPoint, err error) {
	defer func(start time.Time) { s.observe(ctx, "rates_path", start, len(points), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	length := lengthOrDefault(req.Window)
	if _, err = c.Resolver(domain.SheetRates).Resolve(req.Year, req.Month, length); err != nil {
		return nil, err
	}
	return rates.Path(c.Long(domain.SheetRates), req.Year, req.Month, length, rateFilter(req))
}

// RatesTable returns one row per bond title with rates in the window.
func (s *IndicatorService) RatesTable(ctx context.Context, req api.RatesRequest) (rows []domain.RateRow, err error) {
	defer func(start time.Time) { s.observe(ctx, "rates_table", start, len(rows), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	length := lengthOrDefault(req.Window)
	if _, err = c.Resolver(domain.SheetRates).Resolve(req.Year, req.Month, length); err != nil {
		return nil, err
	}
	return rates.Table(c.Long(domain.SheetRates), c.Long(domain.SheetDuration), req.Year, req.Month, length, rateFilter(req))
}

// DurationPath returns the duration series from Jan 1 through the month.
func (s *IndicatorService) DurationPath(ctx context.Context, req api.PeriodRequest) (points []domain.PathPoint, err error) {
	defer func(start time.Time) { s.observe(ctx, "duration_path", start, len(points), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if _, err = c.Resolver(domain.SheetDuration).Resolve(req.Year, req.Month, 1); err != nil {
		return nil, err
	}
	return rates.DurationPath(c.Long(domain.SheetDuration), req.Year, req.Month)
}

// LeadingTitles returns the highest-closing title of each bond group.
func (s *IndicatorService) LeadingTitles(ctx context.Context) (titles []domain.LeadingTitle, err error) {
	defer func(start time.Time) { s.observe(ctx, "highest_closing", start, len(titles), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return rates.LeadingTitles(c.Long(domain.SheetRates)), nil
}

// RateFilters lists the bond types and maturity years present in the rates sheet.
func (s *IndicatorService) RateFilters(ctx context.Context) (domain.RateFilters, error) {
	c, err := s.snapshot()
	if err != nil {
		return domain.RateFilters{}, err
	}
	var titles []string
	if t := c.Table(domain.SheetRates); t != nil {
		titles = t.Columns
	}
	return domain.RateFilters{Types: rates.BondTypes, Maturities: rates.Maturities(titles)}, nil
}

// Ranking ranks the monthly returns of every return instrument together
// with the inflation indices. Index names in the return sheet are left to
// the inflation side.
func (s *IndicatorService) Ranking(ctx context.Context, req api.RankingRequest) (result domain.Ranking, err error) {
	defer func(start time.Time) {
		s.observe(ctx, "rankings", start, len(result.Best)+len(result.Worst), err)
	}(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return domain.Ranking{}, err
	}
	w, err := c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, 1)
	if err != nil {
		return domain.Ranking{}, err
	}

	exclude := make(map[string]bool, len(inflation.Indices))
	for _, name := range inflation.Indices {
		exclude[name] = true
	}
	values := analytics.MonthlyReturns(c.Long(domain.SheetReturn), c.Long(domain.SheetInflation), w, exclude)

	result.Window = w
	side := strings.ToLower(strings.TrimSpace(req.Side))
	if side != SideWorst {
		result.Best = ranking.Top(values, req.N)
	}
	if side != SideBest {
		result.Worst = ranking.Bottom(values, req.N)
	}
	return result, nil
}

// Overview returns the six-month performance of the headline assets and
// indices, best first.
func (s *IndicatorService) Overview(ctx context.Context) (values []domain.InstrumentValue, err error) {
	defer func(start time.Time) { s.observe(ctx, "overview", start, len(values), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return analytics.Overview(c.Long(domain.SheetReturn), c.Long(domain.SheetInflation), analytics.OverviewAssets), nil
}

// Headline returns the latest monthly figure of the headline assets and of
// every inflation index.
func (s *IndicatorService) Headline(ctx context.Context) (values []domain.InstrumentValue, err error) {
	defer func(start time.Time) { s.observe(ctx, "headline", start, len(values), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return analytics.HeadlineReturns(c.Long(domain.SheetReturn), c.Long(domain.SheetInflation), analytics.OverviewAssets), nil
}

// Glossary lists the documented instruments in catalog order. It does not
// need a loaded workbook.
func (s *IndicatorService) Glossary(ctx context.Context) ([]domain.GlossaryEntry, error) {
	pairs := s.store.Catalog().Glossary()
	entries := make([]domain.GlossaryEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = domain.GlossaryEntry{Instrument: p[0], Description: p[1]}
	}
	return entries, nil
}

// InstrumentProfile describes one instrument and its accumulated returns
// over the standard horizons.
func (s *IndicatorService) InstrumentProfile(ctx context.Context, name string) (profile domain.InstrumentProfile, err error) {
	defer func(start time.Time) { s.observe(ctx, "instrument", start, len(profile.Horizons), err) }(time.Now())

	c, err := s.snapshot()
	if err != nil {
		return domain.InstrumentProfile{}, err
	}
	name = strings.TrimSpace(name)

	var series *dataset.Series
	for _, sheet := range []domain.Sheet{domain.SheetReturn, domain.SheetInflation} {
		for _, sr := range dataset.GroupByInstrument(c.Long(sheet)) {
			if sr.Instrument == name {
				sr := sr
				series = &sr
				break
			}
		}
		if series != nil {
			break
		}
	}
	if series == nil {
		return domain.InstrumentProfile{}, fmt.Errorf("%w: %s", ErrInstrumentNotFound, name)
	}

	_, last, _ := analytics.Endpoints(series.Observations)
	description, _ := c.Catalog.Describe(name)
	return domain.InstrumentProfile{
		Instrument:  name,
		Category:    c.Catalog.Returns().Lookup(name),
		Description: description,
		LastDate:    last.Date,
		Horizons:    analytics.Horizons(name, series.Observations, analytics.HorizonMonths),
	}, nil
}

// Periods lists the years and months available in sheet.
func (s *IndicatorService) Periods(ctx context.Context, sheet string) (domain.Periods, error) {
	c, err := s.snapshot()
	if err != nil {
		return domain.Periods{}, err
	}
	for _, known := range domain.Sheets {
		if strings.EqualFold(string(known), strings.TrimSpace(sheet)) {
			return c.Periods(known), nil
		}
	}
	return domain.Periods{}, fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
}

// Categories returns the named category table.
func (s *IndicatorService) Categories(ctx context.Context, table string) (domain.CategoryListing, error) {
	c, err := s.snapshot()
	if err != nil {
		return domain.CategoryListing{}, err
	}
	t := c.Catalog.Table(strings.ToLower(strings.TrimSpace(table)))
	if t == nil {
		return domain.CategoryListing{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return domain.CategoryListing{
		Table:       t.Name(),
		Categories:  append([]string{category.All}, t.Categories()...),
		Instruments: t.Entries(),
	}, nil
}

// Dataset describes the snapshot being served.
func (s *IndicatorService) Dataset(ctx context.Context) (domain.DatasetInfo, error) {
	c, err := s.snapshot()
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return c.Info(), nil
}

// Reload re-reads the workbook. The previous snapshot keeps being served
// when the load fails.
func (s *IndicatorService) Reload(ctx context.Context, trigger string) (domain.DatasetInfo, error) {
	c, err := s.store.Reload(ctx, trigger)
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return c.Info(), nil
}

// MonthlyReport computes every table of one reference month concurrently
// against a single snapshot.
func (s *IndicatorService) MonthlyReport(ctx context.Context, req api.ReportRequest) (*domain.MonthlyReport, error) {
	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	length := lengthOrDefault(req.Window)
	if _, err := c.Resolver(domain.SheetReturn).Resolve(req.Year, req.Month, length); err != nil {
		return nil, err
	}

	report := &domain.MonthlyReport{Year: req.Year, Month: req.Month, Category: req.Category, Window: length}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := analytics.ReturnTable(analytics.InCategory(c.Long(domain.SheetReturn), req.Category), req.Year, req.Month, length)
		report.Returns = rows
		return err
	})
	g.Go(func() error {
		returns := analytics.InCategory(analytics.Recategorize(c.Long(domain.SheetReturn), c.Catalog.Risk()), req.Category)
		rows, err := analytics.RiskTable(returns, c.Long(domain.SheetRisk), req.Year, req.Month)
		report.Risk = rows
		return err
	})
	g.Go(func() error {
		w, err := period.YearToDate(req.Year, req.Month)
		if err != nil {
			return err
		}
		report.Inflation = inflation.Chain(c.Table(domain.SheetInflation), w)
		return nil
	})
	g.Go(func() error {
		rows, err := rates.Table(c.Long(domain.SheetRates), c.Long(domain.SheetDuration), req.Year, req.Month, length, rates.Filter{})
		report.Rates = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "monthly report built",
		slog.Int("year", req.Year),
		slog.Int("month", req.Month),
		slog.Int("returns", len(report.Returns)),
		slog.Int("risk", len(report.Risk)),
		slog.Int("inflation", len(report.Inflation)),
		slog.Int("rates", len(report.Rates)))
	return report, nil
}
