package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/services/matcher"
	"ndt-connect/internal/utils"
)

// Recommender ranks the provider directory for a client search.
type Recommender interface {
	Recommend(ctx context.Context, req matcher.RecommendationRequest) (*matcher.RecommendationResult, error)
}

// RecommendationsHandler serves ranked provider lists.
type RecommendationsHandler struct {
	recommender Recommender
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(recommender Recommender) *RecommendationsHandler {
	return &RecommendationsHandler{recommender: recommender}
}

// Handle processes POST /api/recommendations.
func (h *RecommendationsHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("POST,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodPost:
	default:
		return methodNotAllowed(headers)
	}

	var req matcher.RecommendationRequest
	if err := decodeBody(request, &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Limit < 0 {
		return errorResponse(headers, http.StatusBadRequest, "limit cannot be negative")
	}

	result, err := h.recommender.Recommend(ctx, req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			utils.GetLogger().Error("Recommendation failed", utils.Error(err))
		}
		return domainError(headers, err, "Failed to load providers")
	}

	return jsonResponse(headers, http.StatusOK, result)
}
