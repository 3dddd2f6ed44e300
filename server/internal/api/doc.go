// Package api implements the HTTP REST API for partcast-server.
//
// New(opts) returns a Handler that serves:
//
//	POST /api/v1/failures/projection  — run a projection; 400 on invalid input or unknown part
//	GET  /api/v1/parts                — supported parts and climate tags
//	GET  /api/v1/health               — status, part/projection/alert counts
//	GET  /api/v1/projections          — recent projections, newest first, no curves
//	GET  /api/v1/projections/{id}     — one recent projection; 404 if unknown or expired
//	GET  /api/v1/alerts               — firing and recently resolved maintenance alerts
//	GET  <charts.url_prefix>/<file>   — generated PNG charts
//
// All JSON endpoints respond with Content-Type: application/json and return
// 405 for unsupported methods. Requests are validated with the field rules in
// pkg/types plus the configured point limits before reaching the engine in
// pkg/reliability, which performs no checks of its own.
package api
