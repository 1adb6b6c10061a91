// Provider Import Lambda entry point, triggered by uploads under imports/
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"ndt-connect/internal/config"
	"ndt-connect/internal/handlers"
	"ndt-connect/internal/services/cache"
	"ndt-connect/internal/services/database"
	s3service "ndt-connect/internal/services/s3"
	"ndt-connect/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	storage, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	db, err := database.New(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer db.Close()

	repo := database.NewProviderRepository(db)

	var invalidator handlers.CacheInvalidator
	if cfg.CacheEnabled() {
		invalidator = cache.NewProviderCache(cache.NewRedisClient(cfg), repo, cfg.CacheTTL, utils.Named("cache"))
	}

	handler := handlers.NewProviderImportHandler(storage, repo, invalidator)

	lambda.Start(handler.Handle)
}
