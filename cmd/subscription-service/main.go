package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/api"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/cache"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/config"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/pricing"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/repository"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/service"
	"github.com/Cheertaboi/farmshop-subscription-service/pkg/db"
)

func main() {
	sweepOnce := flag.Bool("sweep", false, "run one due-deliveries sweep and exit")
	asOf := flag.String("as-of", "", "sweep date (YYYY-MM-DD), defaults to today")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stdout)
	slog.SetDefault(log)

	if cfg.Migrations || *migrateOnly {
		if err := db.Migrate(cfg.DB); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
		if *migrateOnly {
			return
		}
	}

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	discounts, err := pricing.LoadDiscounts(cfg.DiscountsFile)
	if err != nil {
		log.Error("load discounts", "error", err)
		os.Exit(1)
	}
	calc := pricing.NewCalculator(discounts)
	collector := metrics.New()

	deps := service.Deps{
		DB:       conn,
		Clients:  repository.NewClientRepo(conn),
		Pricing:  calc,
		Metrics:  collector,
		Logger:   log,
		Location: cfg.Location,
	}
	subs := service.NewSubscriptionService(deps)
	defer subs.Wait()
	deliveries := service.NewDeliveryService(deps)
	sweeper := service.NewSweeper(deliveries, cfg.SweepWorkers)

	if *sweepOnce {
		date, err := civil.ParseDate(*asOf)
		if *asOf != "" && err != nil {
			log.Error("invalid -as-of", "value", *asOf, "error", err)
			os.Exit(1)
		}
		report, err := sweeper.Run(context.Background(), date)
		if err != nil {
			log.Error("sweep", "error", err)
			os.Exit(1)
		}
		if report.Failed > 0 {
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SweepInterval > 0 {
		log.Info("in-process sweeps enabled", "interval", cfg.SweepInterval.String())
		go sweeper.Start(ctx, cfg.SweepInterval)
	}

	handler := api.NewRouter(api.Deps{
		Subscriptions: subs,
		Deliveries:    deliveries,
		Sweeper:       sweeper,
		Catalog:       cache.NewCatalogCache(repository.NewCatalogRepo(conn), cfg.CatalogCacheTTL),
		Pricing:       calc,
		Metrics:       collector,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server Shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	log.Info("starting subscription-service", "addr", srv.Addr, "db_driver", cfg.DB.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("listen", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	log.Info("server stopped")
}
