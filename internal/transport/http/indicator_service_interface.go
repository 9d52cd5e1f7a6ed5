package http

import (
	"context"

	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// IndicatorServiceInterface defines the interface for indicator queries
type IndicatorServiceInterface interface {
	// Returns
	ReturnPath(ctx context.Context, req api.ReturnsRequest) ([]domain.PathPoint, error)
	ReturnTable(ctx context.Context, req api.ReturnsRequest) ([]domain.ReturnRow, error)
	RiskReturn(ctx context.Context, req api.ReturnsRequest) ([]domain.RiskReturnPoint, error)

	// Risk
	RiskPath(ctx context.Context, req api.RiskRequest) ([]domain.PathPoint, error)
	RiskTable(ctx context.Context, req api.RiskRequest) ([]domain.RiskRow, error)

	// Inflation
	Inflation(ctx context.Context, req api.PeriodRequest) ([]domain.InflationRow, error)

	// Rates
	RatesPath(ctx context.Context, req api.RatesRequest) ([]domain.PathPoint, error)
	RatesTable(ctx context.Context, req api.RatesRequest) ([]domain.RateRow, error)
	DurationPath(ctx context.Context, req api.PeriodRequest) ([]domain.PathPoint, error)
	LeadingTitles(ctx context.Context) ([]domain.LeadingTitle, error)
	RateFilters(ctx context.Context) (domain.RateFilters, error)

	// Rankings and overview
	Ranking(ctx context.Context, req api.RankingRequest) (domain.Ranking, error)
	Overview(ctx context.Context) ([]domain.InstrumentValue, error)
	Headline(ctx context.Context) ([]domain.InstrumentValue, error)
	InstrumentProfile(ctx context.Context, name string) (domain.InstrumentProfile, error)
	Glossary(ctx context.Context) ([]domain.GlossaryEntry, error)

	// Dataset metadata
	Periods(ctx context.Context, sheet string) (domain.Periods, error)
	Categories(ctx context.Context, table string) (domain.CategoryListing, error)
	Dataset(ctx context.Context) (domain.DatasetInfo, error)
	Reload(ctx context.Context, trigger string) (domain.DatasetInfo, error)

	// Reports
	MonthlyReport(ctx context.Context, req api.ReportRequest) (*domain.MonthlyReport, error)
}

// StructValidator validates decoded requests
type StructValidator interface {
	ValidateStruct(v interface{}) error
}
