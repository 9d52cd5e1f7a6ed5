package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	"github.com/Pittuba/dash-mercado/internal/exporter"
	custommw "github.com/Pittuba/dash-mercado/internal/middleware"
	"github.com/Pittuba/dash-mercado/internal/services"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Response statuses of the success envelope
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
)

// IndicatorHandler serves the indicator queries with RFC 7807 errors
type IndicatorHandler struct {
	service      IndicatorServiceInterface
	validator    StructValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	csv          *exporter.CSVWriter
	reloadGuard  []func(http.Handler) http.Handler
}

// NewIndicatorHandler creates a new indicator handler
func NewIndicatorHandler(service IndicatorServiceInterface, validator StructValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IndicatorHandler {
	return &IndicatorHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "indicator_handler")),
		errorHandler: errorHandler,
		csv:          exporter.NewCSVWriter(exporter.WriteOptions{BOMPrefix: true}, logger),
	}
}

// SetReloadMiddleware installs the middlewares guarding POST /dataset/reload
func (h *IndicatorHandler) SetReloadMiddleware(mws ...func(http.Handler) http.Handler) {
	h.reloadGuard = mws
}

// Routes returns the indicator routes
func (h *IndicatorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the indicator routes on r
func (h *IndicatorHandler) RegisterRoutes(r chi.Router) {
	// Dataset metadata
	r.Get("/dataset", h.GetDataset)
	r.With(h.reloadGuard...).Post("/dataset/reload", h.ReloadDataset)
	r.Get("/periods/{sheet}", h.GetPeriods)
	r.Get("/categories/{table}", h.GetCategories)

	r.Route("/returns", func(r chi.Router) {
		r.Get("/path", custommw.IndicatorTraceHandler("returns_path", h.GetReturnPath))
		r.Get("/table", custommw.IndicatorTraceHandler("returns_table", h.GetReturnTable))
		r.Get("/risk-return", custommw.IndicatorTraceHandler("risk_return", h.GetRiskReturn))
	})

	r.Route("/risk", func(r chi.Router) {
		r.Get("/path", custommw.IndicatorTraceHandler("risk_path", h.GetRiskPath))
		r.Get("/table", custommw.IndicatorTraceHandler("risk_table", h.GetRiskTable))
	})

	r.Get("/inflation", custommw.IndicatorTraceHandler("inflation", h.GetInflation))

	r.Route("/rates", func(r chi.Router) {
		r.Get("/path", custommw.IndicatorTraceHandler("rates_path", h.GetRatesPath))
		r.Get("/table", custommw.IndicatorTraceHandler("rates_table", h.GetRatesTable))
		r.Get("/duration", custommw.IndicatorTraceHandler("duration_path", h.GetDurationPath))
		r.Get("/highest-closing", h.GetLeadingTitles)
		r.Get("/filters", h.GetRateFilters)
	})

	r.Get("/rankings", custommw.IndicatorTraceHandler("rankings", h.GetRanking))
	r.Get("/overview", h.GetOverview)
	r.Get("/overview/headline", h.GetHeadline)
	r.Get("/instruments/{name}", h.GetInstrument)
	r.Get("/glossary", h.GetGlossary)
	r.Get("/reports/monthly", custommw.IndicatorTraceHandler("monthly_report", h.GetMonthlyReport))
}

// GetDataset handles GET /api/dataset
func (h *IndicatorHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Dataset(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.object(w, r, info)
}

// ReloadDataset handles POST /api/dataset/reload
func (h *IndicatorHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", reqID),
		slog.String("remote_addr", r.RemoteAddr))

	info, err := h.service.Reload(r.Context(), "api")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.object(w, r, info)
}

// GetPeriods handles GET /api/periods/{sheet}
func (h *IndicatorHandler) GetPeriods(w http.ResponseWriter, r *http.Request) {
	req := api.SheetRequest{Sheet: chi.URLParam(r, "sheet")}
	if !h.validate(w, r, &req, nil) {
		return
	}
	periods, err := h.service.Periods(r.Context(), req.Sheet)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if len(periods.Years) == 0 {
		h.noData(w, r)
		return
	}
	h.success(w, r, periods, len(periods.Years))
}

// GetCategories handles GET /api/categories/{table}
func (h *IndicatorHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.Categories(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.success(w, r, listing, len(listing.Instruments))
}

// GetReturnPath handles GET /api/returns/path
func (h *IndicatorHandler) GetReturnPath(w http.ResponseWriter, r *http.Request) {
	req, err := returnsQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	points, err := h.service.ReturnPath(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("retorno_acumulado", req.PeriodRequest), exporter.PathTable("retorno_acumulado", points, true))
		return
	}
	h.list(w, r, domain.PresentPath(points), len(points))
}

// GetReturnTable handles GET /api/returns/table
func (h *IndicatorHandler) GetReturnTable(w http.ResponseWriter, r *http.Request) {
	req, err := returnsQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	rows, err := h.service.ReturnTable(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("retorno", req.PeriodRequest), exporter.ReturnsTable(rows))
		return
	}
	out := make([]domain.ReturnRow, len(rows))
	for i, row := range rows {
		out[i] = row.Present()
	}
	h.list(w, r, out, len(out))
}

// GetRiskReturn handles GET /api/returns/risk-return
func (h *IndicatorHandler) GetRiskReturn(w http.ResponseWriter, r *http.Request) {
	req, err := returnsQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	points, err := h.service.RiskReturn(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("risco_retorno", req.PeriodRequest), exporter.RiskReturnTable(points))
		return
	}
	out := make([]domain.RiskReturnPoint, len(points))
	for i, p := range points {
		out[i] = p.Present()
	}
	h.list(w, r, out, len(out))
}

// GetRiskPath handles GET /api/risk/path
func (h *IndicatorHandler) GetRiskPath(w http.ResponseWriter, r *http.Request) {
	req, err := riskQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	points, err := h.service.RiskPath(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("volatilidade_historica", req.PeriodRequest), exporter.PathTable("volatilidade_historica", points, true))
		return
	}
	h.list(w, r, domain.PresentPath(points), len(points))
}

// GetRiskTable handles GET /api/risk/table
func (h *IndicatorHandler) GetRiskTable(w http.ResponseWriter, r *http.Request) {
	req, err := riskQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	rows, err := h.service.RiskTable(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("volatilidade", req.PeriodRequest), exporter.RiskTable(rows))
		return
	}
	out := make([]domain.RiskRow, len(rows))
	for i, row := range rows {
		out[i] = row.Present()
	}
	h.list(w, r, out, len(out))
}

// GetInflation handles GET /api/inflation
func (h *IndicatorHandler) GetInflation(w http.ResponseWriter, r *http.Request) {
	req, err := periodQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	rows, err := h.service.Inflation(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("inflacao", req), exporter.InflationTable(rows))
		return
	}
	out := make([]domain.InflationRow, len(rows))
	for i, row := range rows {
		out[i] = row.Present()
	}
	h.list(w, r, out, len(out))
}

// GetRatesPath handles GET /api/rates/path
func (h *IndicatorHandler) GetRatesPath(w http.ResponseWriter, r *http.Request) {
	req, err := ratesQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	points, err := h.service.RatesPath(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("taxas_historico", req.PeriodRequest), exporter.PathTable("taxas_historico", points, true))
		return
	}
	h.list(w, r, domain.PresentPath(points), len(points))
}

// GetRatesTable handles GET /api/rates/table
func (h *IndicatorHandler) GetRatesTable(w http.ResponseWriter, r *http.Request) {
	req, err := ratesQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	rows, err := h.service.RatesTable(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("taxas", req.PeriodRequest), exporter.RatesTable(rows))
		return
	}
	out := make([]domain.RateRow, len(rows))
	for i, row := range rows {
		out[i] = row.Present()
	}
	h.list(w, r, out, len(out))
}

// GetDurationPath handles GET /api/rates/duration
func (h *IndicatorHandler) GetDurationPath(w http.ResponseWriter, r *http.Request) {
	req, err := periodQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	points, err := h.service.DurationPath(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("duration", req), exporter.PathTable("duration", points, false))
		return
	}
	h.list(w, r, points, len(points))
}

// GetLeadingTitles handles GET /api/rates/highest-closing
func (h *IndicatorHandler) GetLeadingTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.LeadingTitles(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := make([]domain.LeadingTitle, len(titles))
	for i, t := range titles {
		out[i] = t.Present()
	}
	h.list(w, r, out, len(out))
}

// GetRateFilters handles GET /api/rates/filters
func (h *IndicatorHandler) GetRateFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.service.RateFilters(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.success(w, r, filters, len(filters.Types))
}

// GetRanking handles GET /api/rankings
func (h *IndicatorHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	req, err := rankingQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	result, err := h.service.Ranking(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	count := len(result.Best) + len(result.Worst)
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, reportName("ranking", req.PeriodRequest), exporter.RankingTable(result))
		return
	}
	if count == 0 {
		h.noData(w, r)
		return
	}
	h.success(w, r, result.Present(), count)
}

// GetOverview handles GET /api/overview
func (h *IndicatorHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Overview(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.values(w, r, "panorama_6m", values)
}

// GetHeadline handles GET /api/overview/headline
func (h *IndicatorHandler) GetHeadline(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Headline(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.values(w, r, "destaques", values)
}

// GetInstrument handles GET /api/instruments/{name}
func (h *IndicatorHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "name must be a valid path segment"))
		return
	}
	req := api.InstrumentRequest{Name: strings.TrimSpace(name)}
	if !h.validate(w, r, &req, nil) {
		return
	}
	profile, err := h.service.InstrumentProfile(r.Context(), req.Name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.object(w, r, profile.Present())
}

// GetGlossary handles GET /api/glossary
func (h *IndicatorHandler) GetGlossary(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Glossary(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.success(w, r, entries, len(entries))
}

// GetMonthlyReport handles GET /api/reports/monthly
func (h *IndicatorHandler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	req, err := reportQuery(r.URL.Query())
	if !h.validate(w, r, &req, err) {
		return
	}
	report, err := h.service.MonthlyReport(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	name := reportName("relatorio", req.PeriodRequest)
	switch req.Format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".md"))
	}
	w.WriteHeader(http.StatusOK)
	if err := exporter.WriteReport(w, report, req.Format); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write monthly report",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	}
}

// validate reports whether the request may proceed; parseErr is the error
// of decoding the query, if any
func (h *IndicatorHandler) validate(w http.ResponseWriter, r *http.Request, req interface{}, parseErr error) bool {
	err := parseErr
	if err == nil && h.validator != nil {
		err = h.validator.ValidateStruct(req)
	}
	if err != nil {
		h.logger.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// handleServiceError maps service errors to API errors
func (h *IndicatorHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())
	var parseErr *workbook.ParseError

	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		err = apierrors.ErrDatasetNotLoaded
	case errors.Is(err, services.ErrUnknownSheet):
		err = apierrors.NotFoundError("sheet")
	case errors.Is(err, services.ErrUnknownTable):
		err = apierrors.NotFoundError("category table")
	case errors.Is(err, services.ErrInstrumentNotFound):
		err = apierrors.NotFoundError("instrument")
	case errors.Is(err, services.ErrReloadFailed) && errors.As(err, &parseErr):
		// ParseError maps to 422 with the sheet and cell
	case errors.Is(err, services.ErrReloadFailed):
		err = apierrors.NewWithDetails(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"Dataset reload failed; the previous dataset is still served", err.Error())
	}

	h.logger.WarnContext(r.Context(), "indicator request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
		slog.String("request_id", reqID))
	h.errorHandler.HandleError(w, r, err)
}

func (h *IndicatorHandler) success(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": StatusSuccess,
		"data":   data,
		"count":  count,
	})
}

func (h *IndicatorHandler) object(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": StatusSuccess,
		"data":   data,
	})
}

// noData writes the empty result sentinel
func (h *IndicatorHandler) noData(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": StatusNoData,
		"data":   []interface{}{},
		"count":  0,
	})
}

func (h *IndicatorHandler) list(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	if count == 0 {
		h.noData(w, r)
		return
	}
	h.success(w, r, data, count)
}

func (h *IndicatorHandler) values(w http.ResponseWriter, r *http.Request, name string, values []domain.InstrumentValue) {
	if wantsCSV(r.URL.Query()) {
		h.writeCSV(w, r, name, exporter.ValuesTable(name, values))
		return
	}
	out := make([]domain.InstrumentValue, len(values))
	for i, v := range values {
		out[i] = v.Present()
	}
	h.list(w, r, out, len(out))
}

func (h *IndicatorHandler) writeCSV(w http.ResponseWriter, r *http.Request, name string, table exporter.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.WriteHeader(http.StatusOK)
	if err := h.csv.Write(w, table); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write CSV",
			slog.String("table", table.Name),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	}
}

func reportName(prefix string, p api.PeriodRequest) string {
	return fmt.Sprintf("%s_%04d_%02d", prefix, p.Year, p.Month)
}
