package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ontograph/internal/server"
	"github.com/matzehuels/ontograph/pkg/cache"
	"github.com/matzehuels/ontograph/pkg/pipeline"
	"github.com/matzehuels/ontograph/pkg/source"
	"github.com/matzehuels/ontograph/pkg/source/file"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	dir      string // snapshot directory when MongoDB is not configured
	scope    string // cache key prefix shared by one deployment
	noCache  bool
	addr     string
	redis    string
	mongoURI string
}

// serveCommand creates the HTTP/WebSocket host.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host viewer sessions over HTTP and WebSocket",
		Long: `Host viewer sessions over HTTP and WebSocket.

Snapshots are posted as JSON, or loaded by name from MongoDB when
[mongo] uri is configured and from --dir otherwise. Settled layouts and
rendered artifacts are cached in Redis when [server] redis_addr is set.

Metrics are exposed in Prometheus format at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				c.config.Server.Addr = opts.addr
			}
			if flags.Changed("redis") {
				c.config.Server.RedisAddr = opts.redis
			}
			if flags.Changed("mongo-uri") {
				c.config.Mongo.URI = opts.mongoURI
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "Redis address for the shared cache")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB URI of the snapshot collection")
	cmd.Flags().StringVar(&opts.dir, "dir", ".", "directory of snapshot files served by name")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "prefix for cache keys")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runServe wires metrics, cache and source into the server and blocks until
// ctx is canceled.
func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	metrics := server.NewMetrics()
	metrics.Install()

	store, err := c.serverCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	var keyer cache.Keyer
	if opts.scope != "" {
		keyer = cache.NewScopedKeyer(nil, opts.scope)
	}
	runner := pipeline.NewRunner(store, keyer, logger)
	defer runner.Close()

	var src source.Source = file.New(opts.dir)
	if c.config.Mongo.URI != "" {
		m, err := c.openMongo(ctx)
		if err != nil {
			return err
		}
		defer m.Close(context.WithoutCancel(ctx))
		src = m
	}

	srv := server.New(server.ConfigFrom(c.config),
		server.WithLogger(logger),
		server.WithRunner(runner),
		server.WithSource(src),
		server.WithMetrics(metrics),
	)
	defer srv.Close()

	printInfo("Listening on %s", StyleLink.Render(listenURL(c.config.Server.Addr)))
	printKeyValue("Snapshots", src.Kind())
	printKeyValue("Cache", cacheKind(c.config.Server.RedisAddr, opts.noCache))
	if opts.noCache {
		printWarning("Caching disabled")
	}
	return srv.ListenAndServe(ctx)
}

func listenURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func cacheKind(redisAddr string, noCache bool) string {
	switch {
	case noCache:
		return "none"
	case redisAddr != "":
		return "redis " + redisAddr
	default:
		return "file"
	}
}

// serverCache returns Redis when configured, else the local file cache.
func (c *CLI) serverCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	ttl := c.config.Server.CacheTTL
	if c.config.Server.RedisAddr == "" {
		fc, err := newCache(false)
		if err != nil {
			return nil, err
		}
		return cache.NewMaxTTL(fc, ttl), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     c.config.Server.RedisAddr,
		Password: c.config.Server.RedisPassword,
		DB:       c.config.Server.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return cache.NewMaxTTL(cache.NewInstrumented(rc), ttl), nil
}
