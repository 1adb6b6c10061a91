// Package handlers provides the API Gateway and S3 event handlers for NDT Connect.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/models"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/fees"
	"ndt-connect/internal/services/payout"
	s3service "ndt-connect/internal/services/s3"
)

// APIHandler is the signature shared by every API Gateway handler.
type APIHandler func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func corsHeaders(methods string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization,X-Admin-User",
		"Access-Control-Allow-Methods": methods,
		"Content-Type":                 "application/json",
	}
}

// preflight answers CORS OPTIONS requests.
func preflight(headers map[string]string) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
	}, nil
}

// jsonResponse creates a response with a JSON-encoded body.
func jsonResponse(headers map[string]string, statusCode int, v interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(headers, http.StatusInternalServerError, "Failed to encode response")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(ErrorBody{
		Error:   http.StatusText(statusCode),
		Message: message,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// methodNotAllowed rejects an unsupported HTTP method.
func methodNotAllowed(headers map[string]string) (events.APIGatewayProxyResponse, error) {
	return errorResponse(headers, http.StatusMethodNotAllowed, "Method not allowed")
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, payout.ErrWithdrawalNotFound),
		errors.Is(err, payout.ErrProviderNotFound),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fees.ErrMalformedSettings):
		// Stored settings are broken; the caller cannot fix this.
		return http.StatusInternalServerError
	case errors.Is(err, payout.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, fees.ErrInvalidAmount),
		errors.Is(err, fees.ErrUnknownMethod),
		errors.Is(err, fees.ErrUnknownUserType),
		errors.Is(err, payout.ErrBelowMinimumWithdrawal),
		errors.Is(err, payout.ErrInvalidStatus),
		errors.Is(err, models.ErrUnsupportedWithdrawalMethod),
		errors.Is(err, models.ErrInvalidWithdrawalDetails),
		errors.Is(err, models.ErrInvalidFeeSettings),
		errors.Is(err, models.ErrInvalidMinRating),
		errors.Is(err, models.ErrInvalidBudget),
		errors.Is(err, models.ErrInvalidVerifiedFilter),
		errors.Is(err, s3service.ErrUnsupportedFileType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// domainError responds with the status for err. Internal errors get a generic message.
func domainError(headers map[string]string, err error, internalMessage string) (events.APIGatewayProxyResponse, error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return errorResponse(headers, status, internalMessage)
	}
	return errorResponse(headers, status, err.Error())
}

// requestBody returns the raw body, decoding base64 payloads from API Gateway.
func requestBody(request events.APIGatewayProxyRequest) (string, error) {
	body := request.Body
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", err
		}
		body = string(decoded)
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("request body is empty")
	}
	return body, nil
}

// decodeBody unmarshals the JSON request body into v.
func decodeBody(request events.APIGatewayProxyRequest, v interface{}) error {
	body, err := requestBody(request)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), v)
}

// header returns a request header, ignoring case.
func header(request events.APIGatewayProxyRequest, name string) string {
	if v, ok := request.Headers[name]; ok {
		return v
	}
	for k, v := range request.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
