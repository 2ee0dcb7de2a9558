package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/scrollkit/internal/config"
	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/middleware"
	"github.com/vango-dev/scrollkit/pkg/server"
)

type serveOptions struct {
	host     string
	port     int
	manifest string
	watch    bool
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scroll effects server",
		Long: `Start the HTTP and WebSocket server.

Pages load the client from /_scrollkit/client.js; it connects to /ws and
streams scroll positions. Effects are read from the site manifest, a
local file or an s3://bucket/key object.

Examples:
  scrollkit serve
  scrollkit serve --port=9000 --manifest=site.yaml --watch
  scrollkit serve --manifest=s3://assets/site.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Site manifest path or s3:// URL")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Reload the manifest when the file changes")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, opts serveOptions) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.manifest != "" {
		cfg.Manifest.Source = opts.manifest
	}
	if opts.watch {
		cfg.Manifest.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		metrics = middleware.NewMetrics(middleware.WithNamespace(cfg.Metrics.Namespace))
	}

	source, err := manifest.OpenSource(ctx, cfg.Manifest.Source, cfg.Manifest.Region)
	if err != nil {
		return err
	}
	store := manifest.NewStore(source, logger)
	store.OnLoad(metrics.RecordManifestLoad)
	if err := store.Load(ctx); err != nil {
		return err
	}

	srv := server.New(serverConfig(cfg), store, serverOptions(cfg, metrics, logger)...)

	printBanner()
	success("Serving on %s", cfg.URL())
	info("Manifest:  %s (%d pages)", source, len(store.Current().Pages))
	info("Client:    %s%s", cfg.URL(), server.ClientPath)
	if metrics != nil {
		info("Metrics:   %s/metrics", cfg.URL())
	}
	if cfg.Path() != "" {
		info("Config:    %s", cfg.Path())
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Manifest.Watch {
		if _, ok := source.(*manifest.FileSource); ok {
			watcher, err := manifest.NewWatcher(store, manifest.DefaultDebounce)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			info("Watching:  %s", source)
			g.Go(func() error {
				<-ctx.Done()
				return watcher.Stop()
			})
		} else {
			warn("--watch only applies to file manifests, ignoring for %s", source)
		}
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

// serverConfig maps the file config onto the server's.
func serverConfig(cfg *config.Config) *server.ServerConfig {
	sc := server.DefaultServerConfig()
	sc.Address = cfg.Address()
	sc.FrameInterval = cfg.Server.FrameInterval
	sc.HeartbeatInterval = cfg.Server.HeartbeatInterval
	sc.IdleTimeout = cfg.Server.IdleTimeout
	sc.MaxSessions = cfg.Server.MaxSessions
	sc.QuietWindow = cfg.Scroll.QuietWindow
	if len(cfg.Server.AllowedOrigins) > 0 {
		sc.CheckOrigin = server.AllowOrigins(cfg.Server.AllowedOrigins...)
	}
	return sc
}

func serverOptions(cfg *config.Config, metrics *middleware.Metrics, logger *slog.Logger) []server.Option {
	opts := []server.Option{server.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, server.WithMetrics(metrics))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, server.WithTracing(cfg.Tracing.ServiceName))
	}
	return opts
}
