// Package auth implements API key authentication for partcast-server.
//
// HTTPMiddleware guards the REST API; APIKeyInterceptor guards the gRPC
// health listener. Both read the key from the configured header (default
// "x-api-key") and both are pass-through when mode is not "apikey" or no key
// is configured.
package auth
