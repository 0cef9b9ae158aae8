package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsTotal counts submissions by how they resolved: completed,
	// pending, validation_error, staging_error, dispatch_error.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_submissions_total",
		Help: "Submissions by outcome.",
	}, []string{"outcome"})

	// RedemptionsTotal counts redemption calls by resolved status.
	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_redemptions_total",
		Help: "Redemption calls by status.",
	}, []string{"status"})

	// ResultPollsTotal counts result store checks across all wait phases
	// and redemptions.
	ResultPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_result_polls_total",
		Help: "Result store checks performed.",
	})

	// WaitDuration observes how long submissions spent in the wait phase.
	WaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_wait_duration_seconds",
		Help:    "Time spent waiting for a result before responding.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
