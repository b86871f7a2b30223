package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zjuct/mini-redis-http/core/config"
	"github.com/zjuct/mini-redis-http/core/gateway"
	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/server"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/core/store"
	"github.com/zjuct/mini-redis-http/integration/redis"
	"github.com/zjuct/mini-redis-http/pkg/ratelimiter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the mini-redis HTTP gateway.

The server keeps all data in memory and runs until interrupted (Ctrl+C) or
it receives SIGTERM. Waiting subscribers are released on shutdown.

Environment:
  SERVER_ADDR          listen address (default :8080)
  LOG_LEVEL            debug, info, warn or error (default info)
  APP_ENV              production switches logs to JSON
  PUBSUB_BUFFER_SIZE   pending messages per subscriber (default 16)
  SUBSCRIBE_TIMEOUT    bound on every subscribe, e.g. 30s (default none)
  FILTER_BLOCK_OPS     comma separated operations to reject, e.g. ping,del
  BODY_LIMIT           request body limit in bytes (default 1MB)
  RATE_LIMIT_CAPACITY  requests per client burst, 0 disables (default 0)
  RATE_LIMIT_REFILL    requests regained per interval (default 10)
  RATE_LIMIT_INTERVAL  refill interval (default 1s)
  REDIS_URL            share rate limit buckets through Redis (default memory)

Example:
  mini-redis serve
  FILTER_BLOCK_OPS=ping mini-redis serve --listen :6380`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address, overrides SERVER_ADDR")
}

func runServe(cmd *cobra.Command, _ []string) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	var srvCfg server.Config
	if err := config.Load(&srvCfg); err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		srvCfg.Addr = listen
	}

	log := cfg.newLogger()
	logger.SetAsDefault(log)

	mws, err := cfg.serviceMiddleware(log)
	if err != nil {
		return err
	}

	registry := pubsub.NewRegistry(
		pubsub.WithBufferSize(cfg.BufferSize),
		pubsub.WithLogger(log),
	)
	svc := service.New(store.NewMemoryStore(), registry, service.WithLogger(log))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gwOpts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithServiceMiddleware(mws...),
		gateway.WithBodyLimit(cfg.BodyLimit),
	}

	var (
		limitStore  ratelimiter.Store
		memoryStore *ratelimiter.MemoryStore
	)
	if cfg.RateLimitCapacity > 0 && redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		limitStore = ratelimiter.NewRedisStore(client)
		gwOpts = append(gwOpts, gateway.WithReadinessCheck(redis.Healthcheck(client)))
	} else {
		memoryStore = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
		limitStore = memoryStore
	}

	limiter, err := cfg.rateLimiter(limitStore)
	if err != nil {
		return err
	}
	if limiter != nil {
		gwOpts = append(gwOpts, gateway.WithRateLimiter(limiter))
	}
	gw := gateway.New(svc, gwOpts...)

	srv, err := server.NewFromConfig(srvCfg, server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting mini-redis",
		logger.Version(version),
		logger.Component("cli"),
		logger.Count("buffer_size", cfg.BufferSize),
		slog.Any("blocked_operations", cfg.BlockOps),
		slog.Bool("shared_rate_limit", memoryStore == nil),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx, gw.Handler()))
	if limiter != nil && memoryStore != nil {
		g.Go(memoryStore.Run(ctx))
	}
	runErr := g.Wait()

	if err := registry.Close(); err != nil {
		log.Error("failed to close registry", logger.Component("cli"), logger.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	log.Info("shutdown complete", logger.Component("cli"))
	return nil
}
