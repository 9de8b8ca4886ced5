package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware lets browser clients call the JSON API from any origin. The
// identity travels in X-User-Id, so credentials are not needed.
func CORSMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			UserIDHeader,
			"X-Correlation-Id",
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders: []string{UserIDHeader, "X-Correlation-Id", "Location"},
		MaxAge:         600,
	})

	return c.Handler(next)
}
