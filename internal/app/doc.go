// Package app wires the market indicator server together and owns its
// lifecycle.
//
// # Initialization Flow
//
// NewApplication performs, in order:
//
//  1. Resolve configured paths and create output directories
//  2. Initialize OpenTelemetry and the business metrics
//  3. Load the category catalog and the workbook (fatal on failure)
//  4. Create the indicator and health services
//  5. Create the WebSocket hub, the workbook watcher and the runtime collector
//  6. Build the router and the HTTP server
//
// # Routes
//
//	/ws            WebSocket push of dataset reloads
//	/api/...       indicator, dataset, health and runtime endpoints
//	/metrics       Prometheus scrape endpoint
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, then drains HTTP requests, stops the
// watcher and the runtime collector, closes WebSocket clients and flushes
// OpenTelemetry. Errors are returned; the package never calls os.Exit.
package app
