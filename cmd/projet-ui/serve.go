package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/eneky/projet-ui/internal/config"
	"github.com/eneky/projet-ui/internal/errors"
	"github.com/eneky/projet-ui/internal/tailwind"
	"github.com/eneky/projet-ui/pkg/middleware"
	"github.com/eneky/projet-ui/pkg/pref"
	"github.com/eneky/projet-ui/pkg/server"
	"github.com/eneky/projet-ui/pkg/toast"
)

type serveOptions struct {
	addr         string
	pages        string
	upstream     string
	noWatch      bool
	otlpEndpoint string
	otlpInsecure bool
}

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pages and their live sessions",
		Long: `Serve the project's pages, keep each open tab connected over a
websocket and proxy everything else to the upstream application.

Examples:
  projet-ui serve
  projet-ui serve --addr :8080 --upstream http://localhost:5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Listen address (overrides server.address)")
	cmd.Flags().StringVar(&opts.pages, "pages", "", "Pages directory (overrides pages.dir)")
	cmd.Flags().StringVarP(&opts.upstream, "upstream", "u", "", "Application backend (overrides server.upstream)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload pages when they change")
	cmd.Flags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP trace collector (default: $OTEL_EXPORTER_OTLP_ENDPOINT)")
	cmd.Flags().BoolVar(&opts.otlpInsecure, "otlp-insecure", true, "Export traces over plain HTTP")
	return cmd
}

// apply lays the command line flags over cfg.
func (o serveOptions) apply(cfg *config.Config) {
	if o.addr != "" {
		cfg.Server.Address = o.addr
	}
	if o.pages != "" {
		cfg.Pages.Dir = o.pages
	}
	if o.upstream != "" {
		cfg.Server.Upstream = o.upstream
	}
	if o.noWatch {
		cfg.Pages.Watch = false
	}
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	logger := setupLogger(cfg.Server.LogLevel)
	printBanner()

	shutdownTracing, tracing, err := setupTracing(ctx, opts.otlpEndpoint, opts.otlpInsecure)
	if err != nil {
		warn("Tracing disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	srvCfg, err := serverConfig(cfg, logger)
	if err != nil {
		return err
	}
	srvCfg.Tracing = tracing

	if cfg.Tailwind.Enabled {
		runner, err := startTailwind(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer runner.Stop()
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	success("Serving %s on http://%s", cfg.PagesPath(), srvCfg.Address)
	if srvCfg.Upstream != nil {
		info("Proxying to %s", srvCfg.Upstream)
	}
	if srvCfg.Metrics != nil {
		info("Metrics on http://%s/metrics", srvCfg.Address)
	}
	return srv.Run(ctx)
}

// serverConfig translates the project configuration into a server.Config.
func serverConfig(cfg *config.Config, logger *slog.Logger) (*server.Config, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	out := server.DefaultConfig()
	out.Address = cfg.Server.Address
	out.PagesDir = cfg.PagesPath()
	out.WatchPages = cfg.Pages.Watch
	out.StaticDir = cfg.StaticPath()
	out.AllowedOrigins = cfg.Server.AllowedOrigins
	out.EventsPerSecond = cfg.Server.EventsPerSecond
	out.EventBurst = cfg.Server.EventBurst
	out.MaxMessageSize = cfg.Server.MaxMessageSize
	out.PingInterval = cfg.Server.PingInterval.Duration
	out.ShutdownTimeout = cfg.Server.ShutdownTimeout.Duration
	out.VisitorCookie = cfg.Server.VisitorCookie
	out.SessionCookie = cfg.Auth.CookieName
	out.ForwardCookie = cfg.Auth.ForwardCookie
	out.FallbackTimeout = cfg.Loading.FallbackTimeout.Duration
	out.SubmitTimeout = cfg.Loading.SubmitTimeout.Duration
	out.Store = store
	out.PreferStoredTheme = cfg.Theme.Prefer == config.PreferStore
	out.Logger = logger

	out.ToastDurations = make(map[toast.Type]time.Duration)
	for name, d := range cfg.ToastDurations() {
		if d > 0 {
			out.ToastDurations[toast.Type(name)] = d
		}
	}

	if cfg.Server.Upstream != "" {
		u, err := url.Parse(cfg.Server.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.New("E102").
				WithDetail("server.upstream: invalid URL " + cfg.Server.Upstream).
				WithSuggestion("Use an absolute URL such as http://localhost:5000")
		}
		out.Upstream = u
	}

	if cfg.Server.Metrics {
		out.Metrics = middleware.NewMetrics(middleware.WithRegistry(prometheus.NewRegistry()))
	}
	return out, nil
}

// buildStore opens the theme store selected by theme.store.
func buildStore(cfg *config.Config) (pref.Store, error) {
	switch cfg.Theme.Store {
	case "", config.StoreMemory:
		return pref.NewMemoryStore(), nil
	case config.StoreFile:
		return pref.NewFileStore(cfg.ThemeFilePath())
	case config.StoreS3:
		s3cfg := cfg.Theme.S3
		client := pref.NewS3Client(pref.S3Options{
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			UsePathStyle: s3cfg.PathStyle,
		})
		return pref.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix), nil
	default:
		return nil, errors.New("E302").
			WithDetail("Unknown theme store " + cfg.Theme.Store).
			WithSuggestion("Use memory, file or s3")
	}
}

// startTailwind writes the stylesheet config when missing and rebuilds the
// stylesheet whenever the pages change.
func startTailwind(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tailwind.Runner, error) {
	if _, err := os.Stat(cfg.TailwindConfigPath()); os.IsNotExist(err) {
		if err := tailwind.WriteConfig(cfg.TailwindConfigPath(), tailwind.Options{Content: cfg.Tailwind.Content}); err != nil {
			return nil, err
		}
		info("Wrote %s", cfg.TailwindConfigPath())
	}

	runner := tailwind.NewRunner(tailwind.NewBinary(cfg.Tailwind.Version), cfg.Dir())
	err := runner.StartWatch(ctx, tailwind.RunnerConfig{
		InputPath:  cfg.TailwindInputPath(),
		OutputPath: cfg.TailwindOutputPath(),
		ConfigPath: cfg.TailwindConfigPath(),
		Progress:   func(msg string) { info("%s", msg) },
	})
	if err != nil {
		return nil, err
	}
	logger.Info("tailwind watching", "output", cfg.TailwindOutputPath())
	return runner, nil
}
