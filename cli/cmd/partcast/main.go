// Command partcast projects component failure risk from the command line,
// either locally or through a partcast-server.
//
// Usage:
//
//	partcast project --part battery --current-km 45000 --last-service-km 25000 --interval-km 20000 --climate cold
//	partcast parts
//	partcast remote --server http://localhost:8080 --part brakes --current-km 52000 --interval-km 30000
//	partcast recent | partcast fetch <id> | partcast health
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/partcast/partcast/cli/internal/client"
	"github.com/partcast/partcast/cli/internal/config"
	"github.com/partcast/partcast/pkg/reliability"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes.
const (
	exitError           = 1
	exitUnsupportedPart = 2
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.Run(args)
	if err == nil {
		return 0
	}

	if part, ok := unsupportedPart(err); ok {
		fmt.Fprintf(stderr, "Error: %q is not a supported part. Run `partcast parts` to list them.\n", part)
		return exitUnsupportedPart
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "partcast",
		Usage:     "Project the failure risk of vehicle components ahead of their next service",
		Version:   fmt.Sprintf("%s (commit: %s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are printed once by run with the right exit code.
		ExitErrHandler: func(*cli.Context, error) {},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PARTCAST_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the CLI config file (optional)",
				EnvVars: []string{"PARTCAST_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(c.String("log-level"))); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", c.String("log-level"), err)
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: lvl})))
			return nil
		},

		Commands: []*cli.Command{
			projectCommand(),
			partsCommand(),
			remoteCommand(),
			recentCommand(),
			fetchCommand(),
			healthCommand(),
		},
	}
}

// loadConfig reads the --config file, or returns defaults when none is given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}

// unsupportedPart extracts the rejected identifier from a local engine error
// or a server response.
func unsupportedPart(err error) (string, bool) {
	var local *reliability.UnsupportedPartError
	if errors.As(err, &local) {
		return local.Part, true
	}
	var remote *client.APIError
	if errors.As(err, &remote) && remote.UnsupportedPart() {
		return remote.Part, true
	}
	return "", false
}
