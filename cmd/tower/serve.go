package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/signaltower/internal/channels"
	"github.com/vango-dev/signaltower/internal/config"
	"github.com/vango-dev/signaltower/internal/logging"
	"github.com/vango-dev/signaltower/internal/telemetry"
	"github.com/vango-dev/signaltower/pkg/middleware"
	"github.com/vango-dev/signaltower/pkg/server"
	"github.com/vango-dev/signaltower/pkg/snapshot"
	"github.com/vango-dev/signaltower/pkg/tower"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a signal tower with its inspection server",
		Long: `Run a signal tower with its inspection server.

The built-in channels are declared, the app data document is loaded
and dispatched if one is configured, and the registry is served over
HTTP and WebSocket until the process is interrupted.

Examples:
  tower serve
  tower serve --port=8080
  tower serve --config=./deploy/tower.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printBanner(cmd.OutOrStdout())
			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from tower.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from tower.json)")

	return cmd
}

// runServe serves cfg until ctx is canceled. Logs go to logOut.
func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	tp, shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, "signaltower")
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	proc, err := newProcess(cfg, logger, tp)
	if err != nil {
		return err
	}

	if path := cfg.AppDataPath(); path != "" {
		proc.publishAppData(ctx, path)
	}

	return proc.server.ListenAndServe(ctx)
}

// process is a fully wired tower process.
type process struct {
	logger   *slog.Logger
	registry *tower.Registry
	server   *server.Server
	gatherer prometheus.Gatherer
}

// newProcess wires observers, declared channels, the snapshot archiver and
// the inspection server from cfg.
func newProcess(cfg *config.Config, logger *slog.Logger, tp trace.TracerProvider) (*process, error) {
	var (
		observers []tower.Observer
		gatherer  prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		))
		gatherer = reg
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithTracerProvider(tp),
		))
	}

	registry := tower.New(
		tower.WithLogger(logger),
		tower.WithObserver(observers...),
	)
	if err := channels.Declare(registry, cfg.Channels); err != nil {
		return nil, err
	}

	var archiver snapshot.Archiver
	if cfg.ArchivingEnabled() {
		client := snapshot.NewS3Client(cfg.Snapshot.Region, cfg.Snapshot.Endpoint)
		archiver = snapshot.NewS3Archiver(client, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix)
	}

	srv := server.New(&server.Config{
		Address:    cfg.Address(),
		Registry:   registry,
		Logger:     logger,
		Gatherer:   gatherer,
		Archiver:   archiver,
		SendBuffer: cfg.Server.SendBuffer,
	})

	return &process{
		logger:   logger,
		registry: registry,
		server:   srv,
		gatherer: gatherer,
	}, nil
}

// publishAppData loads the app data document and dispatches it. A failure
// is logged and the process keeps running without app data.
func (p *process) publishAppData(ctx context.Context, source string) {
	doc, err := channels.LoadAppData(ctx, source)
	if err != nil {
		p.logger.Error("app data not loaded", "source", source, "error", err)
		return
	}
	if err := channels.PublishAppData(p.registry, doc); err != nil {
		p.logger.Error("app data not published", "error", err)
	}
}
