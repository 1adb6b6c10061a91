package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/models"
	"ndt-connect/internal/utils"
)

// SettingsStore reads and replaces the admin fee settings.
type SettingsStore interface {
	SettingsReader
	Update(ctx context.Context, s *models.FeeSettings, updatedBy string) (*models.FeeSettings, error)
}

// SettingsHandler serves GET and PUT /api/admin/settings.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Handle dispatches on the HTTP method.
func (h *SettingsHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,PUT,OPTIONS")
	logger := utils.GetLogger()

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)

	case http.MethodGet:
		settings, err := h.store.Get(ctx)
		if err != nil {
			logger.Error("Failed to load fee settings", utils.Error(err))
			return errorResponse(headers, http.StatusInternalServerError, "Failed to load fee settings")
		}
		return jsonResponse(headers, http.StatusOK, settings)

	case http.MethodPut:
		body, err := requestBody(request)
		if err != nil {
			return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
		}
		settings, err := models.ParseFeeSettings([]byte(body))
		if err != nil {
			return errorResponse(headers, http.StatusBadRequest, err.Error())
		}

		updatedBy := header(request, "X-Admin-User")
		if updatedBy == "" {
			updatedBy = "admin"
		}

		saved, err := h.store.Update(ctx, settings, updatedBy)
		if err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				logger.Error("Failed to save fee settings", utils.Error(err))
			}
			return domainError(headers, err, "Failed to save fee settings")
		}

		logger.Info("Fee settings updated", utils.String("updated_by", updatedBy))
		return jsonResponse(headers, http.StatusOK, saved)
	}

	return methodNotAllowed(headers)
}
