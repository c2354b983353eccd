package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for record operations.
type Metrics struct {
	RecordsCreated     prometheus.Counter
	RecordsDeactivated prometheus.Counter
	RecordReadsDenied  prometheus.Counter
	LedgerVerified     prometheus.Counter
	LedgerUnverified   prometheus.Counter
	RecordListDuration prometheus.Histogram
}

// New registers and returns record metrics collectors.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_records_created_total",
			Help: "Total number of health records created",
		}),
		RecordsDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_records_deactivated_total",
			Help: "Total number of health records soft-deleted",
		}),
		RecordReadsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_record_reads_denied_total",
			Help: "Total number of record reads denied by the visibility gate",
		}),
		LedgerVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_ledger_verifications_passed_total",
			Help: "Total number of records that verified against the ledger",
		}),
		LedgerUnverified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "afyalink_ledger_verifications_unverified_total",
			Help: "Total number of records read as unverified",
		}),
		RecordListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "afyalink_record_list_duration_seconds",
			Help:    "Duration of record list operations including verification",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRecordsCreated() {
	m.RecordsCreated.Inc()
}

func (m *Metrics) IncrementRecordsDeactivated() {
	m.RecordsDeactivated.Inc()
}

func (m *Metrics) IncrementRecordReadsDenied() {
	m.RecordReadsDenied.Inc()
}

func (m *Metrics) IncrementLedgerVerified() {
	m.LedgerVerified.Inc()
}

func (m *Metrics) IncrementLedgerUnverified() {
	m.LedgerUnverified.Inc()
}

func (m *Metrics) ObserveListDuration(seconds float64) {
	m.RecordListDuration.Observe(seconds)
}
