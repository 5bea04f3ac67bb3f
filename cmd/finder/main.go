package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache/memory"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/config"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm/mistral"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/metrics"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/profile"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/ratelimit"
	pgRepo "github.com/PMO-Assistant/Tender-Backend-sub001/internal/repository/postgres"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/search"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/server"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/service"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgRepo.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	historyRepo := pgRepo.NewHistoryRepo(db)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		// не фатально: схема создастся лениво при первой записи
		logger.Warn("failed to ensure history schema", zap.Error(err))
	}

	m := metrics.New(nil)

	region := verify.Region{Country: cfg.Region.Country, Cities: cfg.Region.Cities}
	validator := verify.New(region, verify.Weights{
		Name:    cfg.Scoring.NameWeight,
		City:    cfg.Scoring.CityWeight,
		Country: cfg.Scoring.CountryWeight,
	})

	client := mistral.New(mistral.Config{
		APIKey:            cfg.Provider.APIKey,
		Model:             cfg.Provider.Model,
		BaseURL:           cfg.Provider.BaseURL,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	}, logger)

	ingestor := search.NewStreamIngestor(client, search.Config{
		Model:         cfg.Provider.Model,
		Region:        validator.Region(),
		StreamTimeout: cfg.Provider.StreamTimeout,
		MaxAttempts:   cfg.Provider.MaxAttempts,
		BackoffStep:   cfg.Provider.BackoffStep,
		MaxHits:       cfg.Provider.MaxHits,
	}, logger, m)

	memCache := memory.NewWithOptions(ctx, memory.Options{SweepInterval: cfg.Cache.SweepInterval})
	defer memCache.Stop()

	limiter := ratelimit.New(ratelimit.Config{MinInterval: cfg.RateLimit.MinInterval})
	defer limiter.Stop()

	finder := service.NewFinderService(service.FinderServiceDeps{
		Ingestor: ingestor,
		Builder:  profile.New(validator, cfg.Results.MaxProfiles),
		Cache:    cache.NewProfileStore(memCache, cfg.Cache.TTL),
		Limiter:  limiter,
		History:  historyRepo,
		Logger:   logger,
		Metrics:  m,
		Config:   service.FinderConfig{HistoryLimit: cfg.Results.HistoryLimit},
	})

	srv := server.New(server.Config{
		Addr:         cfg.HTTP.Addr,
		WriteTimeout: writeTimeout(cfg.Provider),
	}, server.Deps{
		Finder:         finder,
		Logger:         logger,
		MetricsHandler: metrics.Handler(),
	})

	logger.Info("linkedin finder starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("model", client.Model()),
		zap.String("country", region.Country),
		zap.Strings("cities", region.Cities),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("finder stopped with error", zap.Error(err))
		return err
	}

	logger.Info("linkedin finder stopped")
	return nil
}

// writeTimeout покрывает все попытки стрима вместе с паузами между ними.
func writeTimeout(p config.ProviderConfig) time.Duration {
	timeout := p.StreamTimeout + 30*time.Second
	if timeout < 2*time.Minute {
		return 2 * time.Minute
	}
	return timeout
}
