package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrentsearch/searchd/internal/api/http"
	"torrentsearch/searchd/internal/app"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/jackett"
	"torrentsearch/searchd/internal/metrics"
	"torrentsearch/searchd/internal/providers/eztv"
	"torrentsearch/searchd/internal/providers/limetorrents"
	"torrentsearch/searchd/internal/providers/nyaa"
	"torrentsearch/searchd/internal/providers/thepiratebay"
	"torrentsearch/searchd/internal/providers/torrentscsv"
	"torrentsearch/searchd/internal/providers/yts"
	"torrentsearch/searchd/internal/search"
	"torrentsearch/searchd/internal/store"
	"torrentsearch/searchd/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "torrentsearch")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "torrentsearch"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("dbPath", cfg.DatabasePath),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("providerTimeout", cfg.ProviderTimeout),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasJackett", strings.TrimSpace(cfg.JackettURL) != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("database open failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	httpClient := &http.Client{
		Timeout:   cfg.ProviderTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client := fetch.NewClient(
		fetch.WithHTTPClient(httpClient),
		fetch.WithUserAgent(cfg.UserAgent),
	)

	engine := search.NewEngine([]search.Provider{
		thepiratebay.NewProvider(thepiratebay.Config{Client: client}),
		torrentscsv.NewProvider(torrentscsv.Config{Client: client}),
		yts.NewProvider(yts.Config{Client: client}),
		eztv.NewProvider(eztv.Config{Client: client}),
		nyaa.NewProvider(nyaa.Config{Client: client}),
		limetorrents.NewProvider(limetorrents.Config{Client: client}),
	}, db, buildEngineOptions(cfg, client, logger)...)

	syncer := jackett.NewSyncer(client, db, logger)
	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithSyncer(syncer),
	}

	handler := apihttp.NewServer(engine, db, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// SSE streaming (/search/stream) can legitimately exceed short write
		// timeouts. Keep it disabled at the server level; rely on per-provider
		// timeouts and upstream limits.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.JackettURL) != "" || cfg.JackettSyncEvery > 0 {
		go runJackettSync(rootCtx, syncer, cfg, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("torrent search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("providerTimeout", cfg.ProviderTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("torrent search service stopped")
}

// runJackettSync imports indexers from the configured Jackett instance once
// at startup, then re-syncs every stored instance on the interval.
func runJackettSync(ctx context.Context, syncer *jackett.Syncer, cfg app.Config, logger *slog.Logger) {
	if strings.TrimSpace(cfg.JackettURL) != "" {
		syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
		if _, err := syncer.Sync(syncCtx, cfg.JackettURL, cfg.JackettAPIKey); err != nil {
			logger.Warn("jackett sync failed", slog.String("error", err.Error()))
		}
		cancel()
	}

	if cfg.JackettSyncEvery <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.JackettSyncEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := syncer.SyncAll(syncCtx); err != nil {
				logger.Warn("jackett resync failed", slog.String("error", err.Error()))
			}
			cancel()
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildEngineOptions(cfg app.Config, client *fetch.Client, logger *slog.Logger) []search.EngineOption {
	opts := []search.EngineOption{
		search.WithFetchClient(client),
		search.WithLogger(logger),
		search.WithProviderTimeout(cfg.ProviderTimeout),
		search.WithConnectivityChecker(fetch.NewConnectivityChecker()),
	}

	if cfg.CacheDisabled {
		opts = append(opts, search.WithCacheDisabled(true))
		return opts
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, search.WithCacheTTL(cfg.CacheTTL))
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(redisClient, logger)))
	}

	return opts
}
