package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/models"
	"ndt-connect/internal/utils"
)

// ProviderDirectory looks up and retires providers by their external user ID.
type ProviderDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*models.Provider, error)
	Deactivate(ctx context.Context, userID string) error
}

// ProvidersHandler serves the admin provider routes.
type ProvidersHandler struct {
	directory ProviderDirectory
	cache     CacheInvalidator
	now       func() time.Time
}

// NewProvidersHandler creates a new providers handler. cache may be nil.
func NewProvidersHandler(directory ProviderDirectory, cache CacheInvalidator) *ProvidersHandler {
	return &ProvidersHandler{directory: directory, cache: cache, now: time.Now}
}

// DeactivateRequest is the body of POST /api/admin/providers/deactivate.
type DeactivateRequest struct {
	UserID string `json:"user_id"`
}

// DeactivateResponse reports the provider that was removed from the directory.
type DeactivateResponse struct {
	Provider models.ProviderSummary `json:"provider"`
	Active   bool                   `json:"active"`
}

// Get processes GET /api/admin/providers?user_id=...
func (h *ProvidersHandler) Get(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodGet:
	default:
		return methodNotAllowed(headers)
	}

	userID := strings.TrimSpace(request.QueryStringParameters["user_id"])
	if userID == "" {
		return errorResponse(headers, http.StatusBadRequest, "user_id is required")
	}

	provider, err := h.directory.GetByUserID(ctx, userID)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			utils.GetLogger().Error("Failed to load provider", utils.String("user_id", userID), utils.Error(err))
		}
		return domainError(headers, err, "Failed to load provider")
	}

	return jsonResponse(headers, http.StatusOK, provider)
}

// Deactivate processes POST /api/admin/providers/deactivate. The provider disappears
// from recommendations immediately because the cached directory is dropped.
func (h *ProvidersHandler) Deactivate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders("POST,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodPost:
	default:
		return methodNotAllowed(headers)
	}

	var req DeactivateRequest
	if err := decodeBody(request, &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return errorResponse(headers, http.StatusBadRequest, "user_id is required")
	}

	provider, err := h.directory.GetByUserID(ctx, userID)
	if err == nil {
		err = h.directory.Deactivate(ctx, userID)
	}
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logger.Error("Failed to deactivate provider", utils.String("user_id", userID), utils.Error(err))
		}
		return domainError(headers, err, "Failed to deactivate provider")
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			logger.Warn("Failed to invalidate provider cache", utils.Error(err))
		}
	}

	logger.Info("Provider deactivated",
		utils.String("user_id", userID),
		utils.String("updated_by", header(request, "X-Admin-User")))

	return jsonResponse(headers, http.StatusOK, DeactivateResponse{
		Provider: provider.ToSummary(h.now()),
		Active:   false,
	})
}
