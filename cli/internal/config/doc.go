// Package config loads the partcast CLI configuration file.
//
// The file is optional. It supplies the server URL, authentication, TLS and
// retry settings for the remote commands, and default values for projection
// flags. Secrets are never stored in the file: key_env and token_env name
// environment variables that are resolved at call time.
package config
