package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fleetroute/internal/api"
	"fleetroute/internal/buildinfo"
	"fleetroute/internal/config"
	"fleetroute/internal/metrics"
	"fleetroute/internal/opt"
	"fleetroute/internal/orders"
	"fleetroute/internal/plan"
	"fleetroute/internal/store"
	"fleetroute/internal/webhooks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(cfg)
	log.Info().Str("version", buildinfo.Version).Str("commit", buildinfo.Commit).Msg("starting fleetroute")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st    store.Store
		ready func() error
	)
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer pg.Close()
		if err := pg.MigrateDir(ctx, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		if err := pg.SeedStores(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed stores")
		}
		st = pg
		ready = func() error { return pg.Ping(ctx) }
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory()
		log.Info().Msg("using in-memory store")
	}

	var broker api.EventBroker
	if cfg.RedisURL != "" {
		rb, err := api.NewRedisBroker(cfg.RedisURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		broker = rb
		log.Info().Msg("using redis event broker")
	} else {
		broker = api.NewMemoryBroker()
	}

	solverStats := opt.NewMetricsStore()
	publisher := webhooks.NewPublisher(st, log)
	planner := &plan.Planner{
		Store:         st,
		Source:        orders.NewSynthetic(nil),
		Metrics:       solverStats,
		Publisher:     publisher,
		Log:           log,
		DefaultBudget: cfg.SolverBudget,
	}

	worker := webhooks.NewWorker(st, log)
	go worker.Run(ctx)

	srv := api.NewServer(api.Options{
		Store:        st,
		Planner:      planner,
		Broker:       broker,
		SolverStats:  solverStats,
		Log:          log,
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		Ready:        ready,
	})

	mux := http.NewServeMux()
	mux.Handle("/", srv.Routes())
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
