package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics tracks pipeline throughput and degradation. All methods are
// nil-safe so the pipeline can run without a registry.
type metrics struct {
	enqueued  prometheus.Counter
	rejected  prometheus.Counter
	persisted prometheus.Counter
	retried   prometheus.Counter
	dropped   prometheus.Counter
	fallback  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		enqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "jobs_enqueued_total",
			Help:      "Audit jobs accepted into the queue.",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "jobs_rejected_total",
			Help:      "Enqueue attempts rejected because the queue was full.",
		}),
		persisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "entries_persisted_total",
			Help:      "Audit entries durably written.",
		}),
		retried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "jobs_retried_total",
			Help:      "Jobs re-enqueued after a persistence failure.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "jobs_dropped_total",
			Help:      "Jobs dropped after exhausting retries or on re-enqueue overflow.",
		}),
		fallback: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audittrail",
			Name:      "sync_fallbacks_total",
			Help:      "Saturated-queue jobs persisted inline on the request path.",
		}),
	}
}

func (m *metrics) incEnqueued() {
	if m != nil {
		m.enqueued.Inc()
	}
}

func (m *metrics) incRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *metrics) incPersisted() {
	if m != nil {
		m.persisted.Inc()
	}
}

func (m *metrics) incRetried() {
	if m != nil {
		m.retried.Inc()
	}
}

func (m *metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *metrics) incFallback() {
	if m != nil {
		m.fallback.Inc()
	}
}
