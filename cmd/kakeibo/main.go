package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/backend"
	"kakeibo/internal/cache"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/finance"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

const cacheCleanupInterval = time.Minute

func main() {
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	if envErr != nil {
		logger.WarnContext(context.Background(), "Ignoring .env file", log.FieldError, envErr)
	}

	cfg, err := cli.LoadAndValidateConfig((*config.Config).Validate)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Backend cleanup failed", log.FieldError, err)
		}
	}()

	var reports *services.Reports
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithChangeHook(func(months ...finance.MonthKey) {
			if reports != nil {
				reports.Invalidate(months...)
			}
		}),
	}
	// A nil *amqp.Client must not become a non-nil publisher.
	if res.Events != nil {
		opts = append(opts, services.WithPublisher(res.Events))
	}
	ledger := services.NewLedger(res.Store, opts...)
	reports = services.NewReports(ledger, cfg.ReportCacheSize, cfg.ReportCacheTTL)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DefaultPageSize:    cfg.DefaultPageSize,
	}, ledger, reports, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// A failed load keeps /readyz at 503; the server still starts.
		if err := ledger.Load(gctx); err != nil {
			logger.ErrorContext(gctx, "Initial load failed", log.FieldOperation, log.OpLoad, log.FieldError, err)
		}
		return nil
	})

	g.Go(func() error {
		return cache.NewManager(reports.Cache()).Run(gctx, cacheCleanupInterval)
	})

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting kakeibo server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		m := srv.Metrics()
		logger.InfoContext(shutdownCtx, "Shutting down server",
			log.FieldOperation, log.OpShutdown,
			"requests", m.Trace.TotalRequests,
			"server_errors", m.Trace.ServerErrors,
			"rate_limited", m.RateLimit.TotalHits,
			"blocked", m.Security.BlockedRequests)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
