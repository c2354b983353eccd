package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent-lifecycle operations.
type Metrics struct {
	AccessRequests      prometheus.Counter
	RequestsApproved    prometheus.Counter
	RequestsRejected    prometheus.Counter
	ConsentsGranted     prometheus.Counter
	ConsentsRevoked     prometheus.Counter
	ActiveConsentsTotal prometheus.Gauge
	ConsentCheckPassed  prometheus.Counter
	ConsentCheckFailed  *prometheus.CounterVec
	TransitionLatency   *prometheus.HistogramVec
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		AccessRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_access_requests_total",
			Help: "Total number of access requests created",
		}),
		RequestsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_access_requests_approved_total",
			Help: "Total number of access requests approved",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_access_requests_rejected_total",
			Help: "Total number of access requests rejected",
		}),
		ConsentsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_consents_granted_total",
			Help: "Total number of consents granted",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_consents_revoked_total",
			Help: "Total number of consents revoked",
		}),
		ActiveConsentsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "afyalink_active_consents_total",
			Help: "Current number of granted consents system-wide",
		}),
		ConsentCheckPassed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_consent_checks_passed_total",
			Help: "Total number of consent checks that passed",
		}),
		ConsentCheckFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "afyalink_consent_checks_failed_total",
			Help: "Total number of consent checks that failed, labeled by reason",
		}, []string{"reason"}),
		TransitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "afyalink_consent_transition_latency_seconds",
			Help:    "Latency of consent lifecycle transitions in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementAccessRequests() {
	m.AccessRequests.Inc()
}

func (m *Metrics) IncrementRequestsApproved() {
	m.RequestsApproved.Inc()
}

func (m *Metrics) IncrementRequestsRejected() {
	m.RequestsRejected.Inc()
}

func (m *Metrics) IncrementConsentsGranted() {
	m.ConsentsGranted.Inc()
}

func (m *Metrics) IncrementConsentsRevoked() {
	m.ConsentsRevoked.Inc()
}

// IncActiveConsents moves the active-consent gauge when a pair transitions
// into the granted state; DecActiveConsents when it leaves it.
func (m *Metrics) IncActiveConsents() {
	m.ActiveConsentsTotal.Inc()
}

func (m *Metrics) DecActiveConsents() {
	m.ActiveConsentsTotal.Dec()
}

func (m *Metrics) IncrementConsentCheckPassed() {
	m.ConsentCheckPassed.Inc()
}

func (m *Metrics) IncrementConsentCheckFailed(reason string) {
	m.ConsentCheckFailed.WithLabelValues(reason).Inc()
}

// ObserveTransitionLatency records the latency of a lifecycle transition.
func (m *Metrics) ObserveTransitionLatency(operation string, seconds float64) {
	m.TransitionLatency.WithLabelValues(operation).Observe(seconds)
}
