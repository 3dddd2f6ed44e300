package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/partcast/partcast/cli/internal/client"
	"github.com/partcast/partcast/cli/internal/config"
	"github.com/partcast/partcast/cli/internal/render"
	"github.com/partcast/partcast/pkg/chart"
	"github.com/partcast/partcast/pkg/reliability"
	"github.com/partcast/partcast/pkg/types"
)

// minLocalPoints is the smallest point count accepted by local projections.
const minLocalPoints = 2

// =============================================================================
// SHARED FLAGS
// =============================================================================

func projectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "part",
			Aliases:  []string{"p"},
			Usage:    "Part identifier (see `partcast parts`)",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "current-km",
			Usage: "Current odometer reading in km",
		},
		&cli.Float64Flag{
			Name:  "last-service-km",
			Usage: "Odometer reading at the last service in km",
		},
		&cli.Float64Flag{
			Name:     "interval-km",
			Usage:    "Recommended service interval in km",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "months-since-service",
			Usage: "Months elapsed since the last service (enables the time dimension)",
		},
		&cli.Float64Flag{
			Name:  "interval-months",
			Usage: "Recommended service interval in months (enables the time dimension)",
		},
		&cli.StringFlag{
			Name:  "climate",
			Usage: "Climate tag (temperate, hot, very-hot, desert, cold, very-cold)",
		},
		&cli.Float64Flag{
			Name:  "horizon-km",
			Usage: "Distance ahead to project (default 1.5 x interval)",
		},
		&cli.IntFlag{
			Name:  "points",
			Usage: "Number of curve samples (default 201)",
		},
		&cli.StringFlag{
			Name:  "vehicle-id",
			Usage: "Vehicle identifier, used by server-side alerts",
		},
		formatFlag(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (table, json)",
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "partcast-server base URL (overrides remote.server_url)",
			EnvVars: []string{"PARTCAST_SERVER"},
		},
		&cli.StringFlag{
			Name:  "api-key-env",
			Usage: "Environment variable holding the API key (overrides remote.auth.key_env)",
		},
	}
}

// requestFromFlags builds a projection request from flags, filling unset
// values from the config defaults.
func requestFromFlags(c *cli.Context, cfg *config.Config) types.ProjectionRequest {
	req := types.ProjectionRequest{
		PartType:          c.String("part"),
		CurrentKm:         c.Float64("current-km"),
		LastServiceKm:     c.Float64("last-service-km"),
		ServiceIntervalKm: c.Float64("interval-km"),
		Climate:           cfg.Defaults.Climate,
		VehicleID:         c.String("vehicle-id"),
	}
	if c.IsSet("climate") {
		req.Climate = c.String("climate")
	}
	if c.IsSet("months-since-service") {
		v := c.Float64("months-since-service")
		req.MonthsSinceService = &v
	}
	if c.IsSet("interval-months") {
		v := c.Float64("interval-months")
		req.ServiceIntervalMonths = &v
	}
	if c.IsSet("horizon-km") {
		v := c.Float64("horizon-km")
		req.HorizonKm = &v
	}
	switch {
	case c.IsSet("points"):
		v := c.Int("points")
		req.Points = &v
	case cfg.Defaults.Points > 0:
		v := cfg.Defaults.Points
		req.Points = &v
	}
	return req
}

func format(c *cli.Context, cfg *config.Config) (string, error) {
	f := cfg.Defaults.Format
	if c.IsSet("format") {
		f = c.String("format")
	}
	switch f {
	case "table", "json":
		return f, nil
	default:
		return "", fmt.Errorf("unknown --format %q (want table or json)", f)
	}
}

// remoteClient builds a client from the config file with flag overrides.
func remoteClient(c *cli.Context, cfg *config.Config) (*client.Client, error) {
	rc := cfg.Remote
	if c.IsSet("server") {
		rc.ServerURL = c.String("server")
	}
	if c.IsSet("api-key-env") {
		rc.Auth.Mode = "apikey"
		rc.Auth.KeyEnv = c.String("api-key-env")
	}
	return client.New(rc)
}

// signalContext is cancelled on Ctrl-C so retries stop promptly.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// PROJECT COMMAND
// =============================================================================

func projectCommand() *cli.Command {
	flags := append(projectionFlags(), &cli.StringFlag{
		Name:  "chart",
		Usage: "Write a PNG chart of the curve to this path",
	})
	return &cli.Command{
		Name:   "project",
		Usage:  "Project failure risk locally",
		Flags:  flags,
		Action: runProject,
	}
}

func runProject(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out, err := format(c, cfg)
	if err != nil {
		return err
	}

	req := requestFromFlags(c, cfg)
	if err := req.Validate(); err != nil {
		return err
	}
	points := reliability.DefaultPoints
	if req.Points != nil {
		points = *req.Points
		if points < minLocalPoints {
			return &types.ValidationError{Field: "points", Msg: fmt.Sprintf("must be at least %d", minLocalPoints)}
		}
	}

	proj, err := reliability.Project(req.Input(points))
	if err != nil {
		return err
	}

	resp := &types.ProjectionResponse{
		PartType:  proj.Meta.Part,
		VehicleID: req.VehicleID,
		XKm:       proj.OffsetsKm,
		RiskPct:   proj.RiskPct,
		Meta:      proj.Meta,
		Temporal:  proj.Temporal,
	}

	if path := c.String("chart"); path != "" {
		if err := writeChart(path, proj); err != nil {
			return err
		}
		resp.ChartURL = path
	}

	if out == "json" {
		return render.JSON(c.App.Writer, resp)
	}
	return render.Projection(c.App.Writer, resp)
}

func writeChart(path string, proj *reliability.Projection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := chart.Render(f, proj.OffsetsKm, proj.RiskPct, proj.Meta); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// =============================================================================
// PARTS COMMAND
// =============================================================================

func partsCommand() *cli.Command {
	return &cli.Command{
		Name:  "parts",
		Usage: "List supported parts and climate tags (from a server when --server is set)",
		Flags: append(serverFlags(), formatFlag()),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out, err := format(c, cfg)
			if err != nil {
				return err
			}

			resp := &types.PartsResponse{Parts: reliability.Parts(), Climates: reliability.Climates()}
			if c.IsSet("server") {
				cl, err := remoteClient(c, cfg)
				if err != nil {
					return err
				}
				ctx, cancel := signalContext(c)
				defer cancel()
				if resp, err = cl.Parts(ctx); err != nil {
					return err
				}
			}
			if out == "json" {
				return render.JSON(c.App.Writer, resp)
			}
			return render.Parts(c.App.Writer, resp.Parts, resp.Climates)
		},
	}
}

// =============================================================================
// REMOTE COMMANDS
// =============================================================================

func remoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Project failure risk on a partcast-server",
		Flags: append(projectionFlags(), serverFlags()...),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out, err := format(c, cfg)
			if err != nil {
				return err
			}
			req := requestFromFlags(c, cfg)
			if err := req.Validate(); err != nil {
				return err
			}
			cl, err := remoteClient(c, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c)
			defer cancel()
			resp, err := cl.Project(ctx, req)
			if err != nil {
				return err
			}
			if out == "json" {
				return render.JSON(c.App.Writer, resp)
			}
			return render.Projection(c.App.Writer, resp)
		},
	}
}

func recentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recent projections held by a partcast-server",
		Flags: append(serverFlags(), formatFlag()),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out, err := format(c, cfg)
			if err != nil {
				return err
			}
			cl, err := remoteClient(c, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c)
			defer cancel()
			list, err := cl.Recent(ctx)
			if err != nil {
				return err
			}
			if out == "json" {
				return render.JSON(c.App.Writer, list)
			}
			return render.Recent(c.App.Writer, list)
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Show one recent projection from a partcast-server",
		ArgsUsage: "<id>",
		Flags:     append(serverFlags(), formatFlag()),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("fetch: exactly one projection id is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out, err := format(c, cfg)
			if err != nil {
				return err
			}
			cl, err := remoteClient(c, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c)
			defer cancel()
			resp, err := cl.Get(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("fetch %s: %w", c.Args().First(), err)
			}
			if out == "json" {
				return render.JSON(c.App.Writer, resp)
			}
			return render.Projection(c.App.Writer, resp)
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that a partcast-server is up",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			cl, err := remoteClient(c, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(c)
			defer cancel()
			h, err := cl.Health(ctx)
			if err != nil {
				return err
			}
			return render.JSON(c.App.Writer, h)
		},
	}
}
