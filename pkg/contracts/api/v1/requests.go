// Package api contains API contract definitions for the indicators service.
// Version v1 represents the current stable API version.
package api

// Common request parameters

// PeriodRequest selects a reference month.
type PeriodRequest struct {
	Year  int `json:"year" query:"year" validate:"required,min=1900,max=2200"`
	Month int `json:"month" query:"month" validate:"required,min=1,max=12"`
}

// ReturnsRequest drives the return path, return table and risk/return endpoints.
type ReturnsRequest struct {
	PeriodRequest
	Category string `json:"category" query:"category" validate:"omitempty,max=64,label"`
	Window   int    `json:"window" query:"window" validate:"omitempty,oneof=3 6 12 24 36"`
}

// RiskRequest drives the volatility path and table endpoints.
type RiskRequest struct {
	PeriodRequest
	Category string `json:"category" query:"category" validate:"omitempty,max=64,label"`
}

// RatesRequest drives the bond rates endpoints.
type RatesRequest struct {
	PeriodRequest
	Window   int    `json:"window" query:"window" validate:"omitempty,oneof=3 6 12 24 36"`
	Type     string `json:"type" query:"type" validate:"omitempty,max=64,label"`
	Maturity []int  `json:"maturity" query:"maturity" validate:"omitempty,dive,min=2000,max=2099"`
}

// RankingRequest drives the best/worst monthly ranking.
type RankingRequest struct {
	PeriodRequest
	N    int    `json:"n" query:"n" validate:"omitempty,min=1,max=50"`
	Side string `json:"side" query:"side" validate:"omitempty,oneof=best worst both"`
}

// ReportRequest drives the CSV/markdown export of a full month.
type ReportRequest struct {
	PeriodRequest
	Category string `json:"category" query:"category" validate:"omitempty,max=64,label"`
	Window   int    `json:"window" query:"window" validate:"omitempty,oneof=3 6 12 24 36"`
	Format   string `json:"format" query:"format" validate:"omitempty,oneof=markdown csv"`
}

// SheetRequest names a workbook sheet in a path parameter.
type SheetRequest struct {
	Sheet string `json:"sheet" validate:"required,sheet"`
}

// InstrumentRequest names an instrument in a path parameter.
type InstrumentRequest struct {
	Name string `json:"name" validate:"required,max=128,label"`
}

// ClientEvent is one log line reported by a dashboard client.
type ClientEvent struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Message string                 `json:"message" validate:"required,max=2000"`
	View    string                 `json:"view,omitempty" validate:"omitempty,max=64,label"`
	Period  string                 `json:"period,omitempty" validate:"omitempty,max=16"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ClientLogRequest carries either a single event or a batch in Events.
type ClientLogRequest struct {
	ClientEvent
	Events []ClientEvent `json:"events,omitempty"`
}
