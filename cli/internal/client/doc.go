// Package client is the HTTP client the partcast CLI uses to reach
// partcast-server.
//
// Requests carry the API key or bearer token configured in the CLI config
// (resolved from the environment), and may use mutual TLS. Network errors,
// 429 and 5xx responses are retried with truncated exponential backoff and
// ±25% jitter up to remote.retry.max_attempts. A 404 maps to ErrNotFound;
// every other 4xx is returned as *APIError without retrying.
package client
