// Command connection-walker pages through a Relay-style HTTP connection from
// one end and writes every node as a JSON line to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/relay-pager/pkg/cache"
	"github.com/Sternrassler/relay-pager/pkg/client"
	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/Sternrassler/relay-pager/pkg/controller"
	"github.com/Sternrassler/relay-pager/pkg/logging"
	"github.com/Sternrassler/relay-pager/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// walkerConfig is read from the environment.
type walkerConfig struct {
	SourceURL       string
	SourcePath      string
	UserAgent       string
	RedisURL        string
	CacheTTL        time.Duration
	InitialPageSize int
	PageSize        int
	StartEnd        connection.End
	MaxPages        int
	LogLevel        logging.LogLevel
	LogPretty       bool
	MetricsAddr     string
}

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("Walk failed")
		os.Exit(1)
	}
}

func loadConfig(getenv func(string) string) (walkerConfig, error) {
	env := func(key, defaultValue string) string {
		return getEnv(getenv, key, defaultValue)
	}

	cfg := walkerConfig{
		SourceURL:   env("SOURCE_URL", ""),
		SourcePath:  env("SOURCE_PATH", ""),
		UserAgent:   env("USER_AGENT", "relay-pager/0.1.0"),
		RedisURL:    env("REDIS_URL", ""),
		MetricsAddr: env("METRICS_ADDR", ""),
	}
	if cfg.SourceURL == "" {
		return cfg, errors.New("SOURCE_URL is required")
	}

	var err error
	if cfg.CacheTTL, err = time.ParseDuration(env("CACHE_TTL", "5m")); err != nil {
		return cfg, fmt.Errorf("CACHE_TTL: %w", err)
	}
	if cfg.InitialPageSize, err = positiveInt(env("INITIAL_PAGE_SIZE", "20")); err != nil {
		return cfg, fmt.Errorf("INITIAL_PAGE_SIZE: %w", err)
	}
	if cfg.PageSize, err = positiveInt(env("PAGE_SIZE", "20")); err != nil {
		return cfg, fmt.Errorf("PAGE_SIZE: %w", err)
	}
	if cfg.MaxPages, err = strconv.Atoi(env("MAX_PAGES", "0")); err != nil || cfg.MaxPages < 0 {
		return cfg, fmt.Errorf("MAX_PAGES: must be a non-negative integer")
	}
	if cfg.StartEnd, err = connection.ParseEnd(strings.ToLower(env("START_END", "head"))); err != nil {
		return cfg, fmt.Errorf("START_END: %w", err)
	}
	if cfg.LogLevel, err = logging.ParseLevel(env("LOG_LEVEL", "info")); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogPretty, err = strconv.ParseBool(env("LOG_PRETTY", "false")); err != nil {
		return cfg, fmt.Errorf("LOG_PRETTY: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg walkerConfig, out io.Writer, logger zerolog.Logger) error {
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info().Str("redis", cfg.RedisURL).Msg("Connected to Redis")
	}

	source, err := newSource(cfg, redisClient, logger)
	if err != nil {
		return err
	}

	ctrlLogger := logger.With().Str("component", "connection-controller").Logger()
	ctrl, err := controller.New(controller.Config{
		InitialPageSize:    cfg.InitialPageSize,
		PaginationPageSize: cfg.PageSize,
		Logger:             &ctrlLogger,
	}, source, connection.Identity[json.RawMessage]())
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()

	logger.Info().
		Str("source", cfg.SourceURL+cfg.SourcePath).
		Str("start_end", cfg.StartEnd.String()).
		Int("max_pages", cfg.MaxPages).
		Msg("Starting walk")

	pages, edges, err := walk(ctx, ctrl, cfg.StartEnd, cfg.MaxPages, out, logger)
	logger.Info().
		Int("pages", pages).
		Int("edges", edges).
		Msg("Walk finished")
	return err
}

func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		if opts, err = redis.ParseURL(redisURL); err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return redisClient, nil
}

// newSource builds the HTTP source, with error budget and page cache when
// Redis is available.
func newSource(cfg walkerConfig, redisClient *redis.Client, logger zerolog.Logger) (connection.Fetcher[json.RawMessage], error) {
	clientLogger := logger.With().Str("component", "relay-source").Logger()
	clientCfg := client.DefaultConfig(cfg.SourceURL, cfg.SourcePath, cfg.UserAgent)
	clientCfg.Redis = redisClient
	clientCfg.Logger = &clientLogger

	httpSource, err := client.New[json.RawMessage](clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create source client: %w", err)
	}
	if redisClient == nil {
		return httpSource, nil
	}

	cacheLogger := logger.With().Str("component", "page-cache").Logger()
	cached, err := cache.NewSource[json.RawMessage](httpSource, cache.NewManager(redisClient), cache.SourceConfig{
		Namespace: namespaceFor(httpSource.Endpoint()),
		Endpoint:  cfg.SourcePath,
		TTL:       cfg.CacheTTL,
		Logger:    &cacheLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return cached, nil
}

// walk loads the initial page from start and then next pages from the same
// end until the source reports the last page or maxPages (0: no limit) pages
// were loaded. Every new page is written to out.
func walk(ctx context.Context, ctrl *controller.Controller[json.RawMessage, json.RawMessage], start connection.End, maxPages int, out io.Writer, logger zerolog.Logger) (pages, edges int, err error) {
	enc := json.NewEncoder(out)

	if err := ctrl.LoadInitialPage(ctx, start); err != nil {
		return 0, 0, err
	}
	ctrl.Wait()

	st := ctrl.State()
	if st.InitialLoad.Err != nil {
		return 0, 0, st.InitialLoad.Err
	}

	for {
		page := newestPage(st, start)
		if err := writePage(enc, page); err != nil {
			return pages, edges, err
		}
		pages++
		edges += len(page.Edges)

		logger.Info().
			Int("page_index", page.Index).
			Int("edges", len(page.Edges)).
			Str("end", start.String()).
			Msg("Page walked")

		if maxPages > 0 && pages >= maxPages {
			return pages, edges, nil
		}
		if !ctrl.CanLoadNextPage(start) {
			return pages, edges, nil
		}
		if err := ctx.Err(); err != nil {
			return pages, edges, err
		}

		if err := ctrl.LoadNextPage(ctx, start); err != nil {
			return pages, edges, err
		}
		ctrl.Wait()

		st = ctrl.State()
		if endState := st.End(start); endState.Status == controller.EndError {
			return pages, edges, endState.Err
		}
	}
}

// newestPage returns the page most recently added on end.
func newestPage(st controller.State[json.RawMessage], end connection.End) connection.Page[json.RawMessage] {
	if len(st.Pages) == 0 {
		return connection.Page[json.RawMessage]{}
	}
	if end == connection.Head {
		return st.Pages[len(st.Pages)-1]
	}
	return st.Pages[0]
}

func writePage(enc *json.Encoder, page connection.Page[json.RawMessage]) error {
	for _, edge := range page.Edges {
		if err := enc.Encode(edge); err != nil {
			return fmt.Errorf("write edge %s: %w", edge.Cursor, err)
		}
	}
	return nil
}

// namespaceFor keys cached pages by source host.
func namespaceFor(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "default"
	}
	return u.Host
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be > 0 (got %d)", n)
	}
	return n, nil
}
