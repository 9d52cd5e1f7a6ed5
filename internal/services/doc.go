// Package services implements the business logic layer between the HTTP
// handlers and the loaded dataset.
//
// # Indicator service
//
// IndicatorService answers every indicator query against one immutable
// dataset snapshot taken from the store at the start of the call. Filters are
// resolved through the period, analytics, rates, inflation and ranking
// packages; results are domain types ready to be rendered or exported.
// Each call is timed and counted through the business metrics when they are
// attached with SetMetrics.
//
// Reload replaces the snapshot. A failed reload keeps serving the previous
// snapshot and reports ErrReloadFailed wrapping the parse error.
//
// # Health service
//
// HealthService reports liveness, readiness (a dataset is loaded) and build
// information. Readiness fails until the startup load has succeeded.
//
// # Errors
//
// Lookups fail with ErrUnknownSheet, ErrUnknownTable or ErrInstrumentNotFound;
// the HTTP layer maps them to RFC 7807 responses.
package services
