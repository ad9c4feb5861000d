package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/samirrijal/routeweather/internal/adapters/routeweather"
	"github.com/samirrijal/routeweather/internal/core/usecases"
	"github.com/samirrijal/routeweather/internal/pkg/config"
	"github.com/samirrijal/routeweather/internal/pkg/logging"
	"github.com/samirrijal/routeweather/internal/pkg/metrics"
	"github.com/samirrijal/routeweather/internal/pkg/telemetry"
)

type options struct {
	configPath  string
	departure   string
	rawJSON     bool
	dumpMetrics bool
	stdout      io.Writer
	stderr      io.Writer
	cfg         *config.Config
	loc         *time.Location
	stopTracing func()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "routeweather <origin> <destination>",
		Short: "Show the weather along the driving routes between two places",
		Example: `  routeweather "Lisbon" "Porto"
  routeweather "Lisbon" "Porto" --depart 2026-02-16T10:00
  routeweather "Lisbon" "Porto" --depart 2026-02-16T10:00:00+01:00 --json`,
		Args:              cobra.ExactArgs(2),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		RunE: opts.withTeardown(func(cmd *cobra.Command, args []string) error {
			return opts.runRouteWeather(cmd, args[0], args[1])
		}),
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a config file (default: ./config.yaml or ./configs/config.yaml if present)")
	pf.BoolVar(&opts.dumpMetrics, "metrics", false, "print client metrics to stderr before exiting")

	f := root.Flags()
	f.StringVarP(&opts.departure, "depart", "d", "", "departure time, e.g. 2026-02-16T10:00 (local) or 2026-02-16T10:00:00Z")
	f.BoolVar(&opts.rawJSON, "json", false, "print the backend response as JSON instead of a report")

	root.AddCommand(newHealthCmd(opts))
	return root
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the route-weather backend is up",
		Args:  cobra.NoArgs,
		RunE: opts.withTeardown(func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(opts.stdout, "backend status: %s\n", status.Status)
			return err
		}),
	}
}

// setup loads configuration, logging and tracing before any command runs.
func (o *options) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required (set ROUTEWEATHER_API_BASE_URL or api.base_url)")
	}
	o.cfg = cfg

	loc, err := cfg.Departure.Location()
	if err != nil {
		return err
	}
	o.loc = loc

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, o.stderr)
	cmd.SetContext(logging.IntoContext(cmd.Context(), logger.With("command", cmd.Name())))

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cmd.Context(), cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			o.stopTracing = shutdown
		}
	}
	return nil
}

// withTeardown flushes tracing and prints metrics whether or not fn fails.
func (o *options) withTeardown(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if terr := o.teardown(); err == nil {
				err = terr
			}
		}()
		return fn(cmd, args)
	}
}

func (o *options) teardown() error {
	if o.stopTracing != nil {
		o.stopTracing()
	}
	if o.dumpMetrics {
		return metrics.Dump(o.stderr, prometheus.DefaultGatherer)
	}
	return nil
}

func (o *options) client() *routeweather.Client {
	return routeweather.New(o.cfg.API.BaseURL,
		routeweather.WithTimeout(o.cfg.API.TimeoutDuration()),
		routeweather.WithLocation(o.loc),
	)
}

func (o *options) runRouteWeather(cmd *cobra.Command, origin, destination string) error {
	svc := usecases.NewRouteWeatherService(o.client())

	if o.rawJSON {
		raw, err := svc.Fetch(cmd.Context(), origin, destination, o.departure)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(json.RawMessage(raw))
	}

	resp, err := svc.Plan(cmd.Context(), origin, destination, o.departure)
	if err != nil {
		return err
	}
	return usecases.RenderReport(o.stdout, resp, o.loc)
}
