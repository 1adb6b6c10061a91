// Certificate upload URL Lambda entry point
package main

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"ndt-connect/internal/config"
	"ndt-connect/internal/handlers"
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

	handler := handlers.NewPresignedURLHandler(storage)

	// One function serves both certificate routes.
	lambda.Start(func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if strings.HasSuffix(request.Path, "/upload-url") {
			return handler.Handle(ctx, request)
		}
		return handler.List(ctx, request)
	})
}
