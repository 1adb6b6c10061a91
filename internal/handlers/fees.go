package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
	"ndt-connect/internal/services/fees"
	"ndt-connect/internal/utils"
)

// SettingsReader supplies the current fee settings.
type SettingsReader interface {
	Get(ctx context.Context) (*models.FeeSettings, error)
}

// FeeCalculationRequest is the body of POST /api/fees/calculate.
type FeeCalculationRequest struct {
	Amount           float64                 `json:"amount"`
	UserType         string                  `json:"user_type"`
	WithdrawalMethod models.WithdrawalMethod `json:"withdrawal_method"`
	Region           string                  `json:"region"`
}

// FeeCalculationResponse is a rounded fee breakdown in the region's currency.
type FeeCalculationResponse struct {
	fees.FeeBreakdown
	TotalFees      float64       `json:"total_fees"`
	Currency       string        `json:"currency"`
	Region         models.Region `json:"region"`
	ProcessingDays int           `json:"withdrawal_processing_days,omitempty"`
}

// FeesHandler serves the fee calculator and the region table.
type FeesHandler struct {
	settings SettingsReader
}

// NewFeesHandler creates a new fees handler.
func NewFeesHandler(settings SettingsReader) *FeesHandler {
	return &FeesHandler{settings: settings}
}

// Calculate processes POST /api/fees/calculate.
func (h *FeesHandler) Calculate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("POST,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodPost:
	default:
		return methodNotAllowed(headers)
	}

	var req FeeCalculationRequest
	if err := decodeBody(request, &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	settings, err := h.settings.Get(ctx)
	if err != nil {
		utils.GetLogger().Error("Failed to load fee settings", utils.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to load fee settings")
	}

	method := models.WithdrawalMethod(strings.ToLower(strings.TrimSpace(string(req.WithdrawalMethod))))
	breakdown, err := fees.ComputeFees(req.Amount, models.NormalizeUserType(req.UserType), method, settings)
	if errors.Is(err, fees.ErrMalformedSettings) {
		metrics.FeeCalculations.WithLabelValues("misconfigured").Inc()
		utils.GetLogger().Error("Fee settings are malformed", utils.Error(err))
		return domainError(headers, err, "Fee settings are misconfigured")
	}
	if err != nil {
		metrics.FeeCalculations.WithLabelValues("rejected").Inc()
		return domainError(headers, err, "Failed to calculate fees")
	}
	metrics.FeeCalculations.WithLabelValues("ok").Inc()

	region, ok := models.LookupRegion(req.Region)
	if !ok {
		region = models.DefaultRegion()
	}

	totalFees, _ := decimal.NewFromFloat(breakdown.TotalFees()).Round(2).Float64()
	resp := FeeCalculationResponse{
		FeeBreakdown: breakdown.Rounded(),
		TotalFees:    totalFees,
		Currency:     region.Currency,
		Region:       region,
	}
	if breakdown.HasWithdrawal() {
		resp.ProcessingDays = settings.WithdrawalProcessingDays
	}
	return jsonResponse(headers, http.StatusOK, resp)
}

// Regions processes GET /api/regions.
func (h *FeesHandler) Regions(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodGet:
	default:
		return methodNotAllowed(headers)
	}

	return jsonResponse(headers, http.StatusOK, map[string]interface{}{
		"regions": models.Regions(),
		"default": models.DefaultRegion().Code,
	})
}
