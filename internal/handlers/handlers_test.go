package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/fees"
	"ndt-connect/internal/services/matcher"
	"ndt-connect/internal/services/payout"
	s3service "ndt-connect/internal/services/s3"
	"ndt-connect/internal/utils"
)

func apiRequest(method, body string, query map[string]string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Body:                  body,
		QueryStringParameters: query,
		Headers:               map[string]string{"content-type": "application/json"},
	}
}

func decodeResponse(t *testing.T, resp events.APIGatewayProxyResponse, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resp.Body), v), resp.Body)
}

func errorMessage(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	var body ErrorBody
	decodeResponse(t, resp, &body)
	return body.Message
}

// Health

func TestHealthHandler(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		db         Pinger
		cache      Pinger
		wantStatus int
		wantHealth HealthResponse
	}{
		{"all connected", up, up, http.StatusOK, HealthResponse{Status: "healthy", Database: "connected", Cache: "connected"}},
		{"cache not configured", up, nil, http.StatusOK, HealthResponse{Status: "healthy", Database: "connected", Cache: "not configured"}},
		{"cache down", up, down, http.StatusOK, HealthResponse{Status: "healthy", Database: "connected", Cache: "disconnected"}},
		{"database down", down, up, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "disconnected", Cache: "connected"}},
		{"no database", nil, nil, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "not configured", Cache: "not configured"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewHealthHandler(tt.db, tt.cache).Handle(context.Background(), apiRequest(http.MethodGet, "", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

			var body HealthResponse
			decodeResponse(t, resp, &body)
			assert.Equal(t, tt.wantHealth.Status, body.Status)
			assert.Equal(t, tt.wantHealth.Database, body.Database)
			assert.Equal(t, tt.wantHealth.Cache, body.Cache)
			assert.Equal(t, "ndt-connect", body.Service)
		})
	}
}

// Recommendations

type staticDirectory []*models.Provider

func (d staticDirectory) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	return d, nil
}

type failingDirectory struct{}

func (failingDirectory) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	return nil, errors.New("pool closed")
}

func directory() staticDirectory {
	return staticDirectory{
		{ID: 1, CompanyName: "Gulf NDT", Rating: 4.8, Verified: true, CompanyLocation: "Dubai",
			Services: []models.ServiceOffering{{ServiceID: "ut", Charge: 400, Currency: "AED"}}},
		{ID: 2, CompanyName: "Houston Inspection", Rating: 3.0, CompanyLocation: "Houston"},
		{ID: 3, CompanyName: "Desert Testing", Rating: 4.1, Verified: true, CompanyLocation: "Abu Dhabi"},
	}
}

func TestRecommendationsHandler(t *testing.T) {
	handler := NewRecommendationsHandler(matcher.NewService(directory(), nil))

	resp, err := handler.Handle(context.Background(), apiRequest(http.MethodPost,
		`{"filters":{"verified":"verified"},"limit":5}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var result matcher.RecommendationResult
	decodeResponse(t, resp, &result)
	assert.Equal(t, 3, result.TotalProviders)
	assert.Equal(t, 1, result.FilteredOut)
	require.Len(t, result.Providers, 2)
	assert.Equal(t, int64(1), result.Providers[0].Provider.ID)
	assert.GreaterOrEqual(t, result.Providers[0].RecommendationScore, result.Providers[1].RecommendationScore)
}

func TestRecommendationsHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    *RecommendationsHandler
		request    events.APIGatewayProxyRequest
		wantStatus int
	}{
		{"preflight", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodOptions, "", nil), http.StatusOK},
		{"wrong method", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodGet, "", nil), http.StatusMethodNotAllowed},
		{"empty body", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodPost, "", nil), http.StatusBadRequest},
		{"malformed body", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodPost, "{", nil), http.StatusBadRequest},
		{"negative limit", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodPost, `{"limit":-1}`, nil), http.StatusBadRequest},
		{"invalid rating", NewRecommendationsHandler(matcher.NewService(directory(), nil)), apiRequest(http.MethodPost, `{"filters":{"min_rating":7}}`, nil), http.StatusBadRequest},
		{"source down", NewRecommendationsHandler(matcher.NewService(failingDirectory{}, nil)), apiRequest(http.MethodPost, `{}`, nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.handler.Handle(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
		})
	}
}

// Fees

type memorySettings struct {
	settings  *models.FeeSettings
	updatedBy string
	getErr    error
}

func (m *memorySettings) Get(ctx context.Context) (*models.FeeSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings, nil
}

func (m *memorySettings) Update(ctx context.Context, s *models.FeeSettings, updatedBy string) (*models.FeeSettings, error) {
	if err := models.ValidateFeeSettings(s); err != nil {
		return nil, err
	}
	s.UpdatedBy = updatedBy
	m.settings = s
	m.updatedBy = updatedBy
	return s, nil
}

func TestFeesHandler_Calculate(t *testing.T) {
	handler := NewFeesHandler(&memorySettings{settings: models.DefaultFeeSettings()})

	resp, err := handler.Calculate(context.Background(), apiRequest(http.MethodPost,
		`{"amount":100,"user_type":"provider","withdrawal_method":"paypal","region":"Dubai"}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body FeeCalculationResponse
	decodeResponse(t, resp, &body)
	assert.Equal(t, 10.0, body.PlatformFee)
	assert.Equal(t, 3.2, body.ProcessingFee)
	assert.Equal(t, 86.8, body.Earnings)
	assert.Equal(t, 2.04, body.WithdrawalFee)
	assert.Equal(t, 84.76, body.NetAmount)
	assert.Equal(t, 15.24, body.TotalFees)
	assert.Equal(t, "AED", body.Currency)
	assert.Equal(t, "AE", body.Region.Code)
	assert.Equal(t, 5, body.ProcessingDays)
}

func TestFeesHandler_CalculateDefaults(t *testing.T) {
	handler := NewFeesHandler(&memorySettings{settings: models.DefaultFeeSettings()})

	resp, err := handler.Calculate(context.Background(), apiRequest(http.MethodPost, `{"amount":200}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body FeeCalculationResponse
	decodeResponse(t, resp, &body)
	assert.Equal(t, models.UserTypeProvider, body.UserType)
	assert.Equal(t, 0.0, body.WithdrawalFee)
	assert.Equal(t, body.Earnings, body.NetAmount)
	assert.Equal(t, models.DefaultRegion().Currency, body.Currency)
	assert.Zero(t, body.ProcessingDays)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	previous := utils.Logger
	utils.Logger = zap.New(core)
	t.Cleanup(func() { utils.Logger = previous })
	return logs
}

func TestFeesHandler_MalformedSettingsLogged(t *testing.T) {
	logs := observeLogs(t)
	broken := models.DefaultFeeSettings()
	broken.PlatformFeePercentage = math.NaN()

	misconfigured := metrics.FeeCalculations.WithLabelValues("misconfigured")
	before := testutil.ToFloat64(misconfigured)

	resp, err := NewFeesHandler(&memorySettings{settings: broken}).Calculate(context.Background(),
		apiRequest(http.MethodPost, `{"amount":100}`, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, resp.Body, "platform_fee_percentage")
	assert.Equal(t, before+1, testutil.ToFloat64(misconfigured))

	entries := logs.FilterMessage("Fee settings are malformed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", fees.ErrInvalidAmount), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", fees.ErrMalformedSettings), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", database.ErrNotFound), http.StatusNotFound},
		{payout.ErrInvalidStatusTransition, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestFeesHandler_CalculateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		settings   *memorySettings
		wantStatus int
	}{
		{"zero amount", `{"amount":0}`, &memorySettings{settings: models.DefaultFeeSettings()}, http.StatusBadRequest},
		{"negative amount", `{"amount":-5}`, &memorySettings{settings: models.DefaultFeeSettings()}, http.StatusBadRequest},
		{"unknown method", `{"amount":100,"withdrawal_method":"cheque"}`, &memorySettings{settings: models.DefaultFeeSettings()}, http.StatusBadRequest},
		{"unknown user type", `{"amount":100,"user_type":"broker"}`, &memorySettings{settings: models.DefaultFeeSettings()}, http.StatusBadRequest},
		{"malformed json", `{"amount":`, &memorySettings{settings: models.DefaultFeeSettings()}, http.StatusBadRequest},
		{"settings unavailable", `{"amount":100}`, &memorySettings{getErr: errors.New("timeout")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewFeesHandler(tt.settings).Calculate(context.Background(), apiRequest(http.MethodPost, tt.body, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
		})
	}
}

func TestFeesHandler_Regions(t *testing.T) {
	resp, err := NewFeesHandler(nil).Regions(context.Background(), apiRequest(http.MethodGet, "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Regions []models.Region `json:"regions"`
		Default string          `json:"default"`
	}
	decodeResponse(t, resp, &body)
	assert.Len(t, body.Regions, len(models.Regions()))
	assert.Equal(t, "US", body.Default)
}

// Settings

func TestSettingsHandler_GetAndPut(t *testing.T) {
	store := &memorySettings{settings: models.DefaultFeeSettings()}
	handler := NewSettingsHandler(store)
	ctx := context.Background()

	resp, err := handler.Handle(ctx, apiRequest(http.MethodGet, "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current models.FeeSettings
	decodeResponse(t, resp, &current)
	assert.Equal(t, 10.0, current.PlatformFeePercentage)

	put := apiRequest(http.MethodPut, `{
		"platform_fee_percentage": 12,
		"processing_fee_percentage": 3,
		"fixed_processing_fee": 0.5,
		"minimum_withdrawal_amount": 25,
		"withdrawal_processing_days": 3,
		"withdrawal_fees": {"paypal": {"percentage": 1.5, "fixed": 0.2}}
	}`, nil)
	put.Headers["X-Admin-User"] = "ops@ndtconnect.example"

	resp, err = handler.Handle(ctx, put)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "ops@ndtconnect.example", store.updatedBy)
	assert.Equal(t, 12.0, store.settings.PlatformFeePercentage)
	assert.Equal(t, models.MethodFee{Percentage: 1.5, Fixed: 0.2}, store.settings.WithdrawalFees[models.WithdrawalMethodPayPal])
}

func TestSettingsHandler_RejectsInvalidSettings(t *testing.T) {
	store := &memorySettings{settings: models.DefaultFeeSettings()}
	handler := NewSettingsHandler(store)

	tests := []struct {
		name string
		body string
	}{
		{"percentage above 100", `{"platform_fee_percentage": 150}`},
		{"negative fixed fee", `{"fixed_processing_fee": -1}`},
		{"unknown method", `{"withdrawal_fees": {"cheque": {"percentage": 1}}}`},
		{"not json", `platform=10`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler.Handle(context.Background(), apiRequest(http.MethodPut, tt.body, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, resp.Body)
			assert.Equal(t, 10.0, store.settings.PlatformFeePercentage)
		})
	}
}

func TestSettingsHandler_MethodNotAllowed(t *testing.T) {
	resp, err := NewSettingsHandler(&memorySettings{}).Handle(context.Background(), apiRequest(http.MethodDelete, "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// Withdrawals

type stubWithdrawals struct {
	requested  models.WithdrawalCreate
	providerID int64
	listed     models.WithdrawalStatus
	err        error
}

func (s *stubWithdrawals) Request(ctx context.Context, providerID int64, req models.WithdrawalCreate) (*models.WithdrawalRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.providerID = providerID
	s.requested = req
	return &models.WithdrawalRequest{
		ID:         "0b4f0a9c-6a63-4f5e-8d0b-3d2f0e8b9c11",
		ProviderID: providerID,
		Amount:     req.Amount,
		Method:     req.Method,
		Status:     models.WithdrawalStatusPending,
	}, nil
}

func (s *stubWithdrawals) Get(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.WithdrawalRequest{ID: id, Status: models.WithdrawalStatusPending}, nil
}

func (s *stubWithdrawals) List(ctx context.Context, providerID int64, status models.WithdrawalStatus) ([]*models.WithdrawalRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.providerID = providerID
	s.listed = status
	return []*models.WithdrawalRequest{{ID: "a", ProviderID: providerID}, {ID: "b", ProviderID: providerID}}, nil
}

func (s *stubWithdrawals) UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.WithdrawalRequest{ID: id, Status: status, Note: note}, nil
}

func TestWithdrawalsHandler_Create(t *testing.T) {
	stub := &stubWithdrawals{}
	handler := NewWithdrawalsHandler(stub)

	resp, err := handler.Handle(context.Background(), apiRequest(http.MethodPost,
		`{"provider_id":7,"amount":100,"withdrawal_method":"paypal","details":{"paypal_email":"payout@example.com"}}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)

	assert.Equal(t, int64(7), stub.providerID)
	assert.Equal(t, 100.0, stub.requested.Amount)
	assert.Equal(t, models.WithdrawalMethodPayPal, stub.requested.Method)
	assert.Equal(t, "payout@example.com", stub.requested.Details.PayPalEmail)
}

func TestWithdrawalsHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"missing provider", `{"amount":100}`, nil, http.StatusBadRequest},
		{"below minimum", `{"provider_id":7,"amount":5}`, fmt.Errorf("%w: 5.00 < 10.00", payout.ErrBelowMinimumWithdrawal), http.StatusBadRequest},
		{"bad details", `{"provider_id":7,"amount":100}`, models.ErrInvalidWithdrawalDetails, http.StatusBadRequest},
		{"unknown provider", `{"provider_id":99,"amount":100}`, payout.ErrProviderNotFound, http.StatusNotFound},
		{"store failure", `{"provider_id":7,"amount":100}`, errors.New("deadlock detected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewWithdrawalsHandler(&stubWithdrawals{err: tt.err})

			resp, err := handler.Handle(context.Background(), apiRequest(http.MethodPost, tt.body, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
		})
	}
}

func TestWithdrawalsHandler_InternalErrorsAreNotLeaked(t *testing.T) {
	handler := NewWithdrawalsHandler(&stubWithdrawals{err: errors.New("password authentication failed")})

	resp, err := handler.Handle(context.Background(), apiRequest(http.MethodPost, `{"provider_id":7,"amount":100}`, nil))
	require.NoError(t, err)
	assert.Equal(t, "Failed to create withdrawal request", errorMessage(t, resp))
}

func TestWithdrawalsHandler_List(t *testing.T) {
	stub := &stubWithdrawals{}
	handler := NewWithdrawalsHandler(stub)

	resp, err := handler.Handle(context.Background(), apiRequest(http.MethodGet, "",
		map[string]string{"provider_id": "7", "status": "pending"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body struct {
		Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
		Count       int                        `json:"count"`
	}
	decodeResponse(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, int64(7), stub.providerID)
	assert.Equal(t, models.WithdrawalStatusPending, stub.listed)

	resp, err = handler.Handle(context.Background(), apiRequest(http.MethodGet, "", map[string]string{"provider_id": "seven"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWithdrawalsHandler_GetByID(t *testing.T) {
	resp, err := NewWithdrawalsHandler(&stubWithdrawals{}).Handle(context.Background(),
		apiRequest(http.MethodGet, "", map[string]string{"id": "abc"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = NewWithdrawalsHandler(&stubWithdrawals{err: payout.ErrWithdrawalNotFound}).Handle(context.Background(),
		apiRequest(http.MethodGet, "", map[string]string{"id": "abc"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWithdrawalsHandler_UpdateStatus(t *testing.T) {
	resp, err := NewWithdrawalsHandler(&stubWithdrawals{}).UpdateStatus(context.Background(), apiRequest(http.MethodPost,
		`{"id":"abc","status":"processing","note":"batch 12"}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body models.WithdrawalRequest
	decodeResponse(t, resp, &body)
	assert.Equal(t, models.WithdrawalStatusProcessing, body.Status)
	assert.Equal(t, "batch 12", body.Note)

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"missing id", `{"status":"processing"}`, nil, http.StatusBadRequest},
		{"invalid transition", `{"id":"abc","status":"completed"}`, payout.ErrInvalidStatusTransition, http.StatusConflict},
		{"unknown status", `{"id":"abc","status":"lost"}`, payout.ErrInvalidStatus, http.StatusBadRequest},
		{"not found", `{"id":"abc","status":"processing"}`, payout.ErrWithdrawalNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewWithdrawalsHandler(&stubWithdrawals{err: tt.err}).UpdateStatus(context.Background(),
				apiRequest(http.MethodPost, tt.body, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
		})
	}
}

// Presigned URLs

type stubPresigner struct {
	providerID string
	filename   string
	stored     []string
	listErr    error
}

func (s *stubPresigner) PresignCertificateUpload(ctx context.Context, providerUserID, filename string, expiry time.Duration) (*s3service.PresignedURLResult, error) {
	contentType, err := s3service.CertificateContentType(filename)
	if err != nil {
		return nil, err
	}
	s.providerID = providerUserID
	s.filename = filename
	key := s3service.CertificateKey(providerUserID, filename, time.Now())
	return &s3service.PresignedURLResult{
		URL:         "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=abc",
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(expiry),
	}, nil
}

func (s *stubPresigner) ListCertificates(ctx context.Context, providerUserID string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.stored, nil
}

func (s *stubPresigner) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*s3service.PresignedURLResult, error) {
	return &s3service.PresignedURLResult{
		URL:       "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=def",
		Key:       key,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

func TestPresignedURLHandler(t *testing.T) {
	stub := &stubPresigner{}
	handler := NewPresignedURLHandler(stub)

	resp, err := handler.Handle(context.Background(), apiRequest(http.MethodGet, "",
		map[string]string{"provider_id": "PRV001", "filename": "asnt-level-2.pdf"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body PresignedURLResponse
	decodeResponse(t, resp, &body)
	assert.Contains(t, body.S3Key, "certificates/PRV001/")
	assert.Equal(t, "application/pdf", body.ContentType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "PRV001", stub.providerID)
}

func TestPresignedURLHandler_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]string
	}{
		{"missing provider", map[string]string{"filename": "cert.pdf"}},
		{"missing filename", map[string]string{"provider_id": "PRV001"}},
		{"unsupported type", map[string]string{"provider_id": "PRV001", "filename": "cert.exe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewPresignedURLHandler(&stubPresigner{}).Handle(context.Background(), apiRequest(http.MethodGet, "", tt.query))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, resp.Body)
		})
	}
}

func TestPresignedURLHandler_List(t *testing.T) {
	stub := &stubPresigner{stored: []string{
		"certificates/PRV001/2026/03/09/a1_asnt-level-2.pdf",
		"certificates/PRV001/2026/03/10/b2_pcn-ut.png",
	}}
	handler := NewPresignedURLHandler(stub)

	resp, err := handler.List(context.Background(), apiRequest(http.MethodGet, "", map[string]string{"provider_id": "PRV001"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body CertificateListResponse
	decodeResponse(t, resp, &body)
	assert.Equal(t, "PRV001", body.ProviderID)
	assert.Equal(t, 900, body.ExpiresIn)
	require.Len(t, body.Certificates, 2)
	assert.Equal(t, stub.stored[1], body.Certificates[1].S3Key)
	assert.Contains(t, body.Certificates[0].DownloadURL, stub.stored[0])

	t.Run("missing provider", func(t *testing.T) {
		resp, err := handler.List(context.Background(), apiRequest(http.MethodGet, "", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("storage failure", func(t *testing.T) {
		failing := &stubPresigner{listErr: errors.New("AccessDenied")}
		resp, err := NewPresignedURLHandler(failing).List(context.Background(), apiRequest(http.MethodGet, "", map[string]string{"provider_id": "PRV001"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, resp.Body, "AccessDenied")
	})
}

// Admin providers

type memoryDirectory struct {
	providers map[string]*models.Provider
	failErr   error
}

func (d *memoryDirectory) GetByUserID(ctx context.Context, userID string) (*models.Provider, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	p, ok := d.providers[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (d *memoryDirectory) Deactivate(ctx context.Context, userID string) error {
	if _, ok := d.providers[userID]; !ok {
		return database.ErrNotFound
	}
	delete(d.providers, userID)
	return nil
}

func newMemoryDirectory() *memoryDirectory {
	expired := time.Now().AddDate(-1, 0, 0)
	return &memoryDirectory{providers: map[string]*models.Provider{
		"PRV001": {
			ID:              1,
			UserID:          "PRV001",
			CompanyName:     "Gulf NDT Services",
			CompanyLocation: "Dubai",
			Certificates: []models.Certificate{
				{Name: "ASNT Level II UT", ExpirationDate: &expired},
				{Name: "PCN Level 2 RT"},
			},
		},
	}}
}

func TestProvidersHandler_Get(t *testing.T) {
	handler := NewProvidersHandler(newMemoryDirectory(), nil)

	resp, err := handler.Get(context.Background(), apiRequest(http.MethodGet, "", map[string]string{"user_id": "PRV001"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body models.Provider
	decodeResponse(t, resp, &body)
	assert.Equal(t, "Gulf NDT Services", body.CompanyName)

	resp, err = handler.Get(context.Background(), apiRequest(http.MethodGet, "", map[string]string{"user_id": "PRV404"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = handler.Get(context.Background(), apiRequest(http.MethodGet, "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProvidersHandler_DeactivateInvalidatesCache(t *testing.T) {
	directory := newMemoryDirectory()
	cache := &countingInvalidator{}
	handler := NewProvidersHandler(directory, cache)

	resp, err := handler.Deactivate(context.Background(), apiRequest(http.MethodPost, `{"user_id":" PRV001 "}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body DeactivateResponse
	decodeResponse(t, resp, &body)
	assert.False(t, body.Active)
	assert.Equal(t, "PRV001", body.Provider.UserID)
	assert.Equal(t, 2, body.Provider.CertificateCount)
	assert.Equal(t, 1, body.Provider.ExpiredCertificates)

	assert.NotContains(t, directory.providers, "PRV001")
	assert.Equal(t, 1, cache.calls)
}

func TestProvidersHandler_DeactivateErrors(t *testing.T) {
	tests := []struct {
		name       string
		directory  *memoryDirectory
		body       string
		method     string
		wantStatus int
	}{
		{"unknown provider", newMemoryDirectory(), `{"user_id":"PRV404"}`, http.MethodPost, http.StatusNotFound},
		{"missing user id", newMemoryDirectory(), `{}`, http.MethodPost, http.StatusBadRequest},
		{"empty body", newMemoryDirectory(), ``, http.MethodPost, http.StatusBadRequest},
		{"wrong method", newMemoryDirectory(), ``, http.MethodDelete, http.StatusMethodNotAllowed},
		{"storage failure", &memoryDirectory{failErr: errors.New("pool closed")}, `{"user_id":"PRV001"}`, http.MethodPost, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &countingInvalidator{}
			resp, err := NewProvidersHandler(tt.directory, cache).Deactivate(context.Background(), apiRequest(tt.method, tt.body, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
			assert.Zero(t, cache.calls)
		})
	}
}

// HTTP adapter

func TestHTTPHandler(t *testing.T) {
	var seen events.APIGatewayProxyRequest
	h := HTTPHandler(func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		seen = request
		return jsonResponse(corsHeaders("POST,OPTIONS"), http.StatusCreated, map[string]string{"ok": "yes"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/withdrawals?provider_id=7", strings.NewReader(`{"amount":100}`))
	req.Header.Set("X-Admin-User", "ops")
	rec := httptest.NewRecorder()

	h(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.MethodPost, seen.HTTPMethod)
	assert.Equal(t, "/api/withdrawals", seen.Path)
	assert.Equal(t, `{"amount":100}`, seen.Body)
	assert.Equal(t, "7", seen.QueryStringParameters["provider_id"])
	assert.Equal(t, "ops", header(seen, "x-admin-user"))
}

func TestHTTPHandler_HandlerError(t *testing.T) {
	h := HTTPHandler(func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{}, errors.New("boom")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
