package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/partcast/partcast/cli/internal/config"
)

// tlsConfig builds the client TLS configuration. It returns nil when the
// defaults of net/http are sufficient.
func tlsConfig(rc config.RemoteConfig) (*tls.Config, error) {
	if rc.Auth.Mode != "mtls" && rc.Auth.CAFile == "" && !rc.TLS.InsecureSkipVerify {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: rc.TLS.InsecureSkipVerify, //nolint:gosec // opt-in for development
	}

	if rc.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(rc.Auth.CertFile, rc.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if rc.Auth.CAFile != "" {
		caPEM, err := os.ReadFile(rc.Auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", rc.Auth.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
