package http

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkquota/internal/config"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkquota/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var spanNames = map[string]string{
	"GET /{$}":                    "home",
	"GET /health":                 "health",
	"GET /metrics":                "metrics",
	"POST /api/identities":        "identities.create",
	"GET /api/identities/me":      "identities.me",
	"POST /api/links":             "links.create",
	"GET /api/links/{code}/stats": "links.stats",
	"DELETE /api/links/{code}":    "links.delete",
	"GET /{code}":                 "links.redirect",
}

// ReservedCodes are the single path segments served by fixed routes. A link
// with one of these codes would be unreachable through GET /{code}.
func ReservedCodes() []string {
	return []string{"health", "metrics"}
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
	Logger        *zap.Logger
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, linkSvc LinkService, identities IdentityService) http.Handler {
	return NewRouterWithOptions(cfg, linkSvc, identities, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkSvc LinkService, identities IdentityService, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	handlerOpts := LinksHandlerOptions{
		BaseURL:           cfg.Shortener.BaseURL,
		DefaultClickLimit: cfg.Shortener.DefaultClickLimit,
		DefaultTTL:        cfg.Shortener.DefaultTTL,
	}

	healthHandler := NewHealthHandler(linkSvc, identities)
	linksHandler := NewLinksHandler(linkSvc, identities, handlerOpts)
	identityHandler := NewIdentityHandler(identities, linkSvc)

	optionalIdentity := middleware.IdentityMiddleware(false)
	requiredIdentity := middleware.IdentityMiddleware(true)

	mux.Handle("GET /{$}", NewHomeHandler(cfg.App.Name, handlerOpts))
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	mux.HandleFunc("POST /api/identities", identityHandler.Create)
	mux.Handle("GET /api/identities/me", middleware.Chain(http.HandlerFunc(identityHandler.Me), requiredIdentity))

	mux.Handle("POST /api/links", middleware.Chain(http.HandlerFunc(linksHandler.Create), optionalIdentity))
	mux.Handle("GET /api/links/{code}/stats", middleware.Chain(http.HandlerFunc(linksHandler.Stats), requiredIdentity))
	mux.Handle("DELETE /api/links/{code}", middleware.Chain(http.HandlerFunc(linksHandler.Delete), requiredIdentity))

	mux.HandleFunc("GET /{code}", linksHandler.Redirect)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(opts.Logger)(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
