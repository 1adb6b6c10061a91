// Package main provides the local HTTP server for NDT Connect.
// It serves the same handlers as the Lambda functions behind a single net/http mux.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"ndt-connect/internal/config"
	"ndt-connect/internal/handlers"
	"ndt-connect/internal/metrics"
	"ndt-connect/internal/services/cache"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/matcher"
	"ndt-connect/internal/services/payout"
	s3service "ndt-connect/internal/services/s3"
	"ndt-connect/internal/services/ses"
	"ndt-connect/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx := context.Background()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	providerRepo := database.NewProviderRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	withdrawalRepo := database.NewWithdrawalRepository(db)

	var providerSource matcher.ProviderSource = providerRepo
	var cachePinger handlers.Pinger
	var cacheInvalidator handlers.CacheInvalidator
	if cfg.CacheEnabled() {
		providerCache := cache.NewProviderCache(cache.NewRedisClient(cfg), providerRepo, cfg.CacheTTL, utils.Named("cache"))
		providerSource = providerCache
		cachePinger = providerCache
		cacheInvalidator = providerCache
		logger.Info("Provider cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	var notifier payout.Notifier
	if cfg.SESSenderEmail != "" {
		emailService, err := ses.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("Withdrawal emails disabled", zap.Error(err))
		} else {
			notifier = emailService
		}
	}

	recommender := matcher.NewService(providerSource, utils.Named("matcher"))
	payouts := payout.NewService(withdrawalRepo, settingsRepo, providerRepo, notifier, utils.Named("payout"))

	health := handlers.NewHealthHandler(handlers.PingFunc(db.HealthCheck), cachePinger)
	recommendations := handlers.NewRecommendationsHandler(recommender)
	feesHandler := handlers.NewFeesHandler(settingsRepo)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)
	withdrawals := handlers.NewWithdrawalsHandler(payouts)
	providers := handlers.NewProvidersHandler(providerRepo, cacheInvalidator)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.HTTPHandler(health.Handle))
	mux.HandleFunc("/api/health", handlers.HTTPHandler(health.Handle))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/recommendations", handlers.HTTPHandler(recommendations.Handle))
	mux.HandleFunc("/api/fees/calculate", handlers.HTTPHandler(feesHandler.Calculate))
	mux.HandleFunc("/api/regions", handlers.HTTPHandler(feesHandler.Regions))
	mux.HandleFunc("/api/admin/settings", handlers.HTTPHandler(settingsHandler.Handle))
	mux.HandleFunc("/api/admin/providers", handlers.HTTPHandler(providers.Get))
	mux.HandleFunc("/api/admin/providers/deactivate", handlers.HTTPHandler(providers.Deactivate))
	mux.HandleFunc("/api/withdrawals", handlers.HTTPHandler(withdrawals.Handle))
	mux.HandleFunc("/api/withdrawals/status", handlers.HTTPHandler(withdrawals.UpdateStatus))

	if storage, err := s3service.NewService(ctx, cfg); err != nil {
		logger.Warn("Certificate uploads disabled", zap.Error(err))
	} else {
		presigned := handlers.NewPresignedURLHandler(storage)
		mux.HandleFunc("/api/certificates", handlers.HTTPHandler(presigned.List))
		mux.HandleFunc("/api/certificates/upload-url", handlers.HTTPHandler(presigned.Handle))
	}

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           metrics.Middleware(c.Handler(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info("NDT Connect API server listening",
			zap.String("addr", server.Addr),
			zap.String("stage", cfg.Stage),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
