// Health Check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"ndt-connect/internal/config"
	"ndt-connect/internal/handlers"
	"ndt-connect/internal/services/cache"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/utils"
)

func main() {
	cfg, _ := config.Load()

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	// A missing database is reported by the health check rather than failing the cold start.
	var db, redisPinger handlers.Pinger
	if conn, err := database.New(cfg); err != nil {
		utils.GetLogger().Warn("Database unavailable", utils.Error(err))
	} else {
		defer conn.Close()
		db = handlers.PingFunc(conn.HealthCheck)
	}

	if cfg.CacheEnabled() {
		client := cache.NewRedisClient(cfg)
		defer client.Close()
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	handler := handlers.NewHealthHandler(db, redisPinger)

	lambda.Start(handler.Handle)
}
