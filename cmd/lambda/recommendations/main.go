// Recommendations Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"ndt-connect/internal/config"
	"ndt-connect/internal/handlers"
	"ndt-connect/internal/services/cache"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/matcher"
	"ndt-connect/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	db, err := database.New(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer db.Close()

	var source matcher.ProviderSource = database.NewProviderRepository(db)
	if cfg.CacheEnabled() {
		source = cache.NewProviderCache(cache.NewRedisClient(cfg), source, cfg.CacheTTL, utils.Named("cache"))
	}

	handler := handlers.NewRecommendationsHandler(matcher.NewService(source, utils.Named("matcher")))

	lambda.Start(handler.Handle)
}
