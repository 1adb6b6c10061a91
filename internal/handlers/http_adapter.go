package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"ndt-connect/internal/utils"
)

const maxRequestBody = 1 << 20

// HTTPHandler serves an API Gateway handler over net/http for the local server.
func HTTPHandler(h APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		request := events.APIGatewayProxyRequest{
			HTTPMethod:            r.Method,
			Path:                  r.URL.Path,
			Body:                  string(body),
			Headers:               make(map[string]string, len(r.Header)),
			QueryStringParameters: make(map[string]string),
		}
		for name := range r.Header {
			request.Headers[name] = r.Header.Get(name)
		}
		for name := range r.URL.Query() {
			request.QueryStringParameters[name] = r.URL.Query().Get(name)
		}

		resp, err := h(r.Context(), request)
		if err != nil {
			utils.GetLogger().Error("Handler failed", utils.String("path", r.URL.Path), utils.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		for name, value := range resp.Headers {
			// CORS is applied by the server middleware.
			if strings.HasPrefix(name, "Access-Control-") {
				continue
			}
			w.Header().Set(name, value)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.WriteString(w, resp.Body)
	}
}
