// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/analyze, /v1/analyze/bulk and /v1/compare for synchronous work.
//   - POST /v1/analyses to queue an analysis, GET /v1/analyses/{id} to poll it.
//   - GET /v1/analyses/{id}/report and /badge for exports.
package api
