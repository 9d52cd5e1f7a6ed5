// Package http implements the HTTP handlers of the indicator service. Handlers
// stay thin: they decode and validate query parameters, call the indicator
// service and shape the response.
//
// # Responses
//
// Successful queries answer with an envelope:
//
//	{"status": "success", "data": [...], "count": 12}
//
// A query that resolves but selects nothing is not an error. It answers 200
// with the no-data sentinel:
//
//	{"status": "no_data", "data": [], "count": 0}
//
// Figures are served in percentage points rounded to two places. Every
// computation upstream keeps full precision.
//
// Table endpoints accept ?format=csv and stream the same table as a CSV
// download with Portuguese headers.
//
// # Errors
//
// Errors follow RFC 7807 Problem Details and are written by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/period/invalid-window",
//	    "title": "Invalid Window",
//	    "status": 400,
//	    "detail": "invalid window 2019-01/3: ...",
//	    "instance": "/api/returns/table"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// IndicatorServiceInterface.
package http
