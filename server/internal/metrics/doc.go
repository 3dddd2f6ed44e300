// Package metrics keeps the server's operational counters and exposes them
// in the Prometheus text exposition format at GET /metrics.
//
// Values are held in plain maps under a mutex and converted to client_model
// MetricFamily values on every scrape; expfmt does the encoding.
package metrics
