package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProfilesCreated  prometheus.Counter
	ProfilesSkipped  prometheus.Counter
	ConsentsGranted  prometheus.Counter
	ConsentsRevoked  prometheus.Counter
	TokenPairsIssued prometheus.Counter
	SwitchesDenied   prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTest registers metrics on a private registry so parallel tests do
// not collide on the default registerer.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_profiles_created_total",
			Help: "Total number of profiles created",
		}),
		ProfilesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_profiles_skipped_total",
			Help: "Total number of onboarding selections skipped for age",
		}),
		ConsentsGranted: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_consents_granted_total",
			Help: "Total number of guardian consent grants",
		}),
		ConsentsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_consents_revoked_total",
			Help: "Total number of guardian consent revocations",
		}),
		TokenPairsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_token_pairs_issued_total",
			Help: "Total number of access/refresh token pairs minted",
		}),
		SwitchesDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "familygate_profile_switches_denied_total",
			Help: "Total number of profile switches denied",
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "familygate_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
