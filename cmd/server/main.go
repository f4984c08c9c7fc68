// Package main is the entry point for the stayledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stayledger/internal/config"
	"stayledger/internal/domain/billing"
	"stayledger/internal/domain/checkout"
	"stayledger/internal/domain/ledger"
	v1 "stayledger/internal/infrastructure/http/v1"
	"stayledger/internal/infrastructure/storage/postgres"
	"stayledger/pkg/logger"
	"stayledger/pkg/numerator"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stayledger server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	requestRepo := postgres.NewRequestRepo(txManager)
	checkoutRepo := postgres.NewCheckoutRepo(txManager)
	bookingRepo := postgres.NewBookingRepo(txManager)
	orderRepo := postgres.NewOrderRepo(txManager)
	inventoryRepo := postgres.NewInventoryRepo(txManager, cfg.Checkout.DefaultReturnLocation)
	ledgerRepo := postgres.NewLedgerRepo(txManager)

	// --- Services ---
	numeratorService := numerator.New(txManager)

	taxPolicy := billing.Policy{
		BracketLower: config.MustMoney(cfg.Tax.BracketLower),
		BracketUpper: config.MustMoney(cfg.Tax.BracketUpper),
		RateLow:      config.MustMoney(cfg.Tax.RateLow),
		RateMid:      config.MustMoney(cfg.Tax.RateMid),
		RateHigh:     config.MustMoney(cfg.Tax.RateHigh),
		RateFlatFood: config.MustMoney(cfg.Tax.RateFlatFood),
	}

	checkoutService := checkout.NewService(
		requestRepo,
		checkoutRepo,
		bookingRepo,
		orderRepo,
		inventoryRepo,
		taxPolicy,
		numeratorService,
		txManager,
	)
	ledgerService := ledger.NewService(ledgerRepo, txManager, numeratorService)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool.Pool,
		Logger:          log,
		CheckoutService: checkoutService,
		LedgerService:   ledgerService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
