package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-uthread/config"
	"github.com/Swind/go-uthread/core"
	uprom "github.com/Swind/go-uthread/observability/prometheus"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "uthreads",
		Usage:     "Run workloads on a round-robin green thread scheduler",
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			runCommand(),
			configCommand(),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to an HCL configuration file",
		EnvVars: []string{"UTHREADS_CONFIG"},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Spawn worker threads that compute, sleep and block each other",

		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{Name: "quantum-us", Usage: "Quantum length in microseconds"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"n"}, Usage: "Number of worker threads"},
			&cli.IntFlag{Name: "iterations", Usage: "Iterations per worker"},
			&cli.BoolFlag{Name: "manual-ticks", Usage: "Expire one quantum per iteration instead of using the timer"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: text or json"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address, e.g. :9090"},
			&cli.DurationFlag{Name: "linger", Usage: "Keep serving metrics this long after the workload finishes"},
		},

		Action: runAction,
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as HCL",

		Flags: []cli.Flag{configFlag()},

		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			_, err = c.App.Writer.Write(settings.Render())
			return err
		},
	}
}

// loadSettings reads the config file, if any, and applies flag overrides.
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Settings{}, err
		}
		settings = loaded
	}

	if c.IsSet("quantum-us") {
		settings.Scheduler.Quantum = time.Duration(c.Int("quantum-us")) * time.Microsecond
	}
	if c.IsSet("threads") {
		settings.Workload.Threads = c.Int("threads")
	}
	if c.IsSet("iterations") {
		settings.Workload.Iterations = c.Int("iterations")
	}
	if c.IsSet("manual-ticks") {
		settings.Scheduler.ManualTicks = c.Bool("manual-ticks")
	}
	if c.IsSet("log-level") {
		settings.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		settings.Log.Format = c.String("log-format")
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func runAction(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := settings.NewLogger(c.App.ErrWriter)
	cfg := settings.CoreConfig()
	cfg.Logger = core.NewSlogLogger(logger)
	cfg.ErrOutput = c.App.ErrWriter

	// Terminating the main thread never returns, so cleanup runs from the
	// exit hook rather than from defers.
	var cleanups []func()
	cfg.Exit = func(code int) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		exitProcess(code)
	}

	var poller *uprom.SnapshotPoller
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		exporter, err := uprom.NewMetricsExporter("uthread", reg, uprom.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
		}
		cfg.Metrics = exporter

		poller, err = uprom.NewSnapshotPoller(reg, time.Second)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
		}
		srv := serveMetrics(addr, reg, logger)
		cleanups = append(cleanups, func() { stopMetrics(srv) }, poller.Stop)
	}

	s, err := core.New(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if poller != nil {
		poller.AddScheduler(cfg.Name, s)
		poller.Start(c.Context)
	}

	report := runWorkload(s, settings.Workload)
	report.Print(c.App.Writer)

	if linger := c.Duration("linger"); linger > 0 {
		logger.Info("Lingering before exit.", "duration", linger)
		time.Sleep(linger)
	}
	s.Terminate(core.MainThreadID)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("Metrics server starting.", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed.", "error", err)
		}
	}()
	return srv
}

// shutdownTimeout bounds how long the metrics server may take to drain.
const shutdownTimeout = 2 * time.Second

func stopMetrics(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
