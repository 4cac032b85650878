package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the login path.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	LoginVerdicts    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ProfilesAssigned prometheus.Counter
}

// NewMetrics registers the login metrics on reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyauth_login_attempts_total",
			Help: "Login packets received, by kind (remote, local, empty)",
		}, []string{"kind"}),
		LoginVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyauth_login_verdicts_total",
			Help: "Login outcomes, by outcome (success, a deny reason, or discarded)",
		}, []string{"outcome"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skyauth_provider_request_duration_seconds",
			Help:    "Duration of identity provider calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ProfilesAssigned: f.NewCounter(prometheus.CounterOpts{
			Name: "skyauth_profiles_assigned_total",
			Help: "New profile ids allocated",
		}),
	}
}

func (m *Metrics) IncrementAttempt(kind string) {
	m.LoginAttempts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementVerdict(outcome string) {
	m.LoginVerdicts.WithLabelValues(outcome).Inc()
}

// ObserveProvider records a provider call. Call with time.Now() taken
// before the request.
func (m *Metrics) ObserveProvider(endpoint string, start time.Time) {
	m.ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementProfilesAssigned() {
	m.ProfilesAssigned.Inc()
}
