package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	s3service "ndt-connect/internal/services/s3"
	"ndt-connect/internal/utils"
)

const (
	certificateUploadExpiry   = time.Hour
	certificateDownloadExpiry = 15 * time.Minute
)

// CertificatePresigner issues upload and review URLs for certificate documents.
type CertificatePresigner interface {
	PresignCertificateUpload(ctx context.Context, providerUserID, filename string, expiry time.Duration) (*s3service.PresignedURLResult, error)
	ListCertificates(ctx context.Context, providerUserID string) ([]string, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (*s3service.PresignedURLResult, error)
}

// PresignedURLHandler handles requests for presigned certificate upload URLs.
type PresignedURLHandler struct {
	presigner CertificatePresigner
}

// NewPresignedURLHandler creates a new presigned URL handler.
func NewPresignedURLHandler(presigner CertificatePresigner) *PresignedURLHandler {
	return &PresignedURLHandler{presigner: presigner}
}

// PresignedURLResponse is the response structure for presigned URL requests.
type PresignedURLResponse struct {
	UploadURL   string `json:"uploadUrl"`
	S3Key       string `json:"s3Key"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// CertificateDocument is a stored certificate with a temporary download link.
type CertificateDocument struct {
	S3Key       string `json:"s3Key"`
	DownloadURL string `json:"downloadUrl"`
}

// CertificateListResponse is the response for GET /api/certificates.
type CertificateListResponse struct {
	ProviderID   string                `json:"provider_id"`
	Certificates []CertificateDocument `json:"certificates"`
	ExpiresIn    int                   `json:"expiresIn"`
}

// Handle processes GET /api/certificates/upload-url?provider_id=...&filename=...
func (h *PresignedURLHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders("GET,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodGet:
	default:
		return methodNotAllowed(headers)
	}

	providerID := strings.TrimSpace(request.QueryStringParameters["provider_id"])
	if providerID == "" {
		return errorResponse(headers, http.StatusBadRequest, "provider_id is required")
	}
	filename := strings.TrimSpace(request.QueryStringParameters["filename"])
	if filename == "" {
		return errorResponse(headers, http.StatusBadRequest, "filename is required")
	}

	result, err := h.presigner.PresignCertificateUpload(ctx, providerID, filename, certificateUploadExpiry)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logger.Error("Failed to generate presigned URL", utils.Error(err))
		}
		return domainError(headers, err, "Failed to generate upload URL")
	}

	return jsonResponse(headers, http.StatusOK, PresignedURLResponse{
		UploadURL:   result.URL,
		S3Key:       result.Key,
		ContentType: result.ContentType,
		ExpiresIn:   int(certificateUploadExpiry.Seconds()),
	})
}

// List processes GET /api/certificates?provider_id=... for admin review of uploaded documents.
func (h *PresignedURLHandler) List(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders("GET,OPTIONS")

	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(headers)
	case http.MethodGet:
	default:
		return methodNotAllowed(headers)
	}

	providerID := strings.TrimSpace(request.QueryStringParameters["provider_id"])
	if providerID == "" {
		return errorResponse(headers, http.StatusBadRequest, "provider_id is required")
	}

	keys, err := h.presigner.ListCertificates(ctx, providerID)
	if err != nil {
		logger.Error("Failed to list certificates", utils.String("provider_id", providerID), utils.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to list certificates")
	}

	docs := make([]CertificateDocument, 0, len(keys))
	for _, key := range keys {
		link, err := h.presigner.PresignDownload(ctx, key, certificateDownloadExpiry)
		if err != nil {
			logger.Error("Failed to presign certificate download", utils.String("key", key), utils.Error(err))
			return errorResponse(headers, http.StatusInternalServerError, "Failed to list certificates")
		}
		docs = append(docs, CertificateDocument{S3Key: key, DownloadURL: link.URL})
	}

	return jsonResponse(headers, http.StatusOK, CertificateListResponse{
		ProviderID:   providerID,
		Certificates: docs,
		ExpiresIn:    int(certificateDownloadExpiry.Seconds()),
	})
}
