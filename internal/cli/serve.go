package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/observability"
	"github.com/matzehuels/bbflame/pkg/server"
	"github.com/matzehuels/bbflame/pkg/session"
)

// serveCommand creates the HTTP viewer command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		redisAddr  string
		sessionTTL time.Duration
		metrics    bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve [trace]",
		Short: "Serve a trace to the browser",
		Long: `Serve a trace over HTTP.

Each client opens a view session with its own root, scroll offset and
colors, then fetches frames as SVG, PNG or JSON. Rendered frames are cached
per session in Redis (--redis) or in the local cache directory.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: traceArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := c.Config.Server
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("redis") {
				cfg.RedisAddr = redisAddr
			}
			if flags.Changed("session-ttl") {
				cfg.SessionTTL.Duration = sessionTTL
			}
			if flags.Changed("metrics") {
				cfg.Metrics = metrics
			}
			if cfg.SessionTTL.Duration <= 0 {
				return fmt.Errorf("--session-ttl must be positive, got %s", cfg.SessionTTL)
			}
			return c.runServe(cmd.Context(), args[0], cfg.Addr, cfg.RedisAddr, cfg.SessionTTL.Duration, cfg.Metrics, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the frame cache")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", session.DefaultTTL, "idle lifetime of view sessions")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the frame cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr, redisAddr string, ttl time.Duration, metrics, noCache bool) error {
	src, labels, err := c.loadTrace(input)
	if err != nil {
		return err
	}

	frames, err := c.frameCache(ctx, redisAddr, noCache)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Source:       src,
		Labels:       labels,
		Store:        session.NewMemoryStore(ttl),
		SessionTTL:   ttl,
		Cache:        cache.Instrument(frames, "frame"),
		Geometry:     c.Config.Geometry(),
		Step:         c.Config.ScrollStep,
		DefaultWidth: c.Config.Width,
		Seed:         c.Config.Seed,
		Logger:       c.Logger,
	}
	if metrics {
		hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
		observability.SetLayoutHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetHTTPHooks(hooks)
		defer observability.Reset()
		cfg.Metrics = hooks.Handler()
	}

	srv := server.New(cfg)
	defer srv.Close()

	printSuccess("Serving %s", input)
	printDetail("http://%s", addr)
	return srv.ListenAndServe(ctx, addr)
}

// frameCache picks the frame cache backend: Redis when an address is
// given, else the local cache directory.
func (c *CLI) frameCache(ctx context.Context, redisAddr string, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr == "" {
		return c.newCache(false)
	}

	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
		Addr:     redisAddr,
		Password: c.Config.Server.RedisPassword,
		DB:       c.Config.Server.RedisDB,
		Prefix:   appName + ":",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	c.Logger.Info("using redis frame cache", "addr", redisAddr)
	return rc, nil
}
