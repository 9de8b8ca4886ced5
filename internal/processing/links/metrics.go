package links

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "links_created_total",
		Help: "Total number of short links created",
	})

	linkRedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_redirects_total",
			Help: "Redirect attempts by outcome",
		},
		[]string{"outcome"},
	)

	linksDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "links_deleted_total",
		Help: "Total number of links deleted by their owner",
	})

	linksReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "links_reclaimed_total",
		Help: "Total number of expired links removed by sweeps",
	})

	linksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "links_registered",
		Help: "Number of links currently held by the registry",
	})

	codeGenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "link_code_generation_attempts",
		Help:    "Attempts needed to find a free short code",
		Buckets: []float64{1, 2, 3, 5, 10, 50, 100, 1000},
	})
)

func redirectOutcome(err error) string {
	switch {
	case err == nil:
		return "redirected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrInactive):
		return "inactive"
	default:
		return "error"
	}
}
