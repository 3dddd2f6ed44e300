// Package config loads the partcast-server configuration from the `server:`
// section of config.yaml.
//
// Config fields:
//   - HTTPPort        — REST API, chart files and WebSocket feed (default 8080)
//   - GRPCPort        — gRPC health service; 0 disables it (default 0)
//   - LogLevel        — debug | info | warn | error (default info)
//   - Auth.Mode       — "apikey" or "none"
//   - Auth.KeyEnv     — environment variable holding the expected API key
//   - Auth.Header     — HTTP header / gRPC metadata key (default "x-api-key")
//   - Charts          — PNG generation toggle, output dir and public URL prefix
//   - Projection      — accepted point range [51, 1001], default 201
//   - Store           — TTL (30m) and capacity (500) of recent projections
//   - Feed.Interval   — WebSocket broadcast interval (default 5s)
//   - Alerts          — maintenance alert rules and webhooks
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads the file on change; only alert rules and projection bounds are
// applied live, everything else needs a restart.
package config
