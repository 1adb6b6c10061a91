package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/models"
	"ndt-connect/internal/utils"
)

// WithdrawalService creates and administers withdrawal requests.
type WithdrawalService interface {
	Request(ctx context.Context, providerID int64, req models.WithdrawalCreate) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	List(ctx context.Context, providerID int64, status models.WithdrawalStatus) ([]*models.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error)
}

// WithdrawalRequestBody is the body of POST /api/withdrawals.
type WithdrawalRequestBody struct {
	ProviderID int64 `json:"provider_id"`
	models.WithdrawalCreate
}

// StatusUpdateBody is the body of POST /api/withdrawals/status.
type StatusUpdateBody struct {
	ID     string                  `json:"id"`
	Status models.WithdrawalStatus `json:"status"`
	Note   string                  `json:"note"`
}

// WithdrawalsHandler serves the withdrawal endpoints.
type WithdrawalsHandler struct {
	service WithdrawalService
}

// NewWithdrawalsHandler creates a new withdrawals handler.
func NewWithdrawalsHandler(service WithdrawalService) *WithdrawalsHandler {
	return &WithdrawalsHandler{service: service}
}

// Handle serves POST /api/withdrawals (create) and GET /api/withdrawals (history).
func (h *WithdrawalsHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,POST,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodPost:
		return h.create(ctx, headers, request)
	case http.MethodGet:
		return h.list(ctx, headers, request)
	}
	return methodNotAllowed(headers)
}

func (h *WithdrawalsHandler) create(ctx context.Context, headers map[string]string, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body WithdrawalRequestBody
	if err := decodeBody(request, &body); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if body.ProviderID <= 0 {
		return errorResponse(headers, http.StatusBadRequest, "provider_id is required")
	}

	withdrawal, err := h.service.Request(ctx, body.ProviderID, body.WithdrawalCreate)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			utils.GetLogger().Error("Withdrawal request failed",
				utils.Int64("provider_id", body.ProviderID),
				utils.Error(err))
		}
		return domainError(headers, err, "Failed to create withdrawal request")
	}

	return jsonResponse(headers, http.StatusCreated, withdrawal)
}

func (h *WithdrawalsHandler) list(ctx context.Context, headers map[string]string, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	if id := params["id"]; id != "" {
		withdrawal, err := h.service.Get(ctx, id)
		if err != nil {
			return domainError(headers, err, "Failed to load withdrawal request")
		}
		return jsonResponse(headers, http.StatusOK, withdrawal)
	}

	var providerID int64
	if raw := params["provider_id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return errorResponse(headers, http.StatusBadRequest, "provider_id must be a positive integer")
		}
		providerID = id
	}

	withdrawals, err := h.service.List(ctx, providerID, models.WithdrawalStatus(params["status"]))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			utils.GetLogger().Error("Failed to list withdrawals", utils.Error(err))
		}
		return domainError(headers, err, "Failed to list withdrawal requests")
	}

	return jsonResponse(headers, http.StatusOK, map[string]interface{}{
		"withdrawals": withdrawals,
		"count":       len(withdrawals),
	})
}

// UpdateStatus serves POST /api/withdrawals/status.
func (h *WithdrawalsHandler) UpdateStatus(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("POST,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodPost:
	default:
		return methodNotAllowed(headers)
	}

	var body StatusUpdateBody
	if err := decodeBody(request, &body); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if body.ID == "" {
		return errorResponse(headers, http.StatusBadRequest, "id is required")
	}

	withdrawal, err := h.service.UpdateStatus(ctx, body.ID, body.Status, body.Note)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			utils.GetLogger().Error("Withdrawal status update failed",
				utils.String("withdrawal_id", body.ID),
				utils.Error(err))
		}
		return domainError(headers, err, "Failed to update withdrawal status")
	}

	return jsonResponse(headers, http.StatusOK, withdrawal)
}
