package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Sternrassler/item-quote-client/internal/config"
	"github.com/Sternrassler/item-quote-client/pkg/auth"
	"github.com/Sternrassler/item-quote-client/pkg/cache"
	"github.com/Sternrassler/item-quote-client/pkg/client"
	"github.com/Sternrassler/item-quote-client/pkg/logging"
	"github.com/Sternrassler/item-quote-client/pkg/lookup"
	"github.com/Sternrassler/item-quote-client/pkg/ratelimit"
	"github.com/Sternrassler/item-quote-client/pkg/resolve"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the wired resolution stack shared by serve and resolve.
type app struct {
	service *resolve.Service
	guard   *ratelimit.Guard
	logger  zerolog.Logger
	closers []io.Closer
}

// Close releases backend connections.
func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadConfig reads and validates the configuration and sets up logging.
func loadConfig(path string, logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  logOut,
		Service: "quote-proxy",
	})
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

// buildApp wires guard, token provider, upstream client, item cache and
// lookup tables into a resolution service.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}

	a.guard = ratelimit.NewGuard(cfg.Quota.PerMinute, logging.NewLogger(logging.ComponentQuota))

	provider, err := auth.NewProvider(auth.Config{
		TokenURL:     cfg.Upstream.TokenURL,
		ClientID:     cfg.Upstream.ClientID,
		ClientSecret: cfg.Upstream.ClientSecret,
	}, logging.NewLogger(logging.ComponentAuth))
	if err != nil {
		return nil, fmt.Errorf("token provider: %w", err)
	}

	clientCfg := client.DefaultConfig(cfg.Upstream.BaseURL)
	if cfg.Upstream.Timeout > 0 {
		clientCfg.Timeout = cfg.Upstream.Timeout
	}
	if cfg.Upstream.UserAgent != "" {
		clientCfg.UserAgent = cfg.Upstream.UserAgent
	}
	upstream, err := client.New(clientCfg, provider, a.guard, logging.NewLogger(logging.ComponentUpstream))
	if err != nil {
		return nil, fmt.Errorf("upstream client: %w", err)
	}

	store, err := a.cacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	items := cache.NewManager(store, logging.NewLogger(logging.ComponentCache))

	table, err := lookup.LoadFiles(cfg.Lookup.NumbersPath, cfg.Lookup.NamesPath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	primary, byName := table.Len()
	logger.Info().
		Int("numbers", primary).
		Int("names", byName).
		Msg("Lookup tables loaded")

	a.service = resolve.NewService(upstream, items, table, logging.NewLogger(logging.ComponentResolve))
	return a, nil
}

func (a *app) cacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Backend != config.CacheBackendRedis {
		return cache.NewMemoryStore(), nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, redisClient)
	a.logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis item cache")

	return cache.NewRedisStore(redisClient), nil
}
