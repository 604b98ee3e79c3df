package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "metacatalog"

// Metrics holds the catalog collectors. A nil *Metrics records nothing.
type Metrics struct {
	LifecycleOps        *prometheus.CounterVec
	LifecycleOpDuration *prometheus.HistogramVec
	ReconcileScheduled  prometheus.Counter
	ReconcileDeleted    prometheus.Counter
	IndexedDocuments    *prometheus.CounterVec
	IndexBatchesRunning prometheus.Gauge
	TransformCacheHits  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LifecycleOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_operations_total",
				Help:      "Lifecycle operations by operation and outcome",
			},
			[]string{"op", "status"},
		),
		LifecycleOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lifecycle_operation_duration_seconds",
				Help:      "Lifecycle operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		ReconcileScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_scheduled_total",
			Help:      "Records scheduled for indexing by reconciliation",
		}),
		ReconcileDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_deleted_total",
			Help:      "Orphan index documents removed by reconciliation",
		}),
		IndexedDocuments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_documents_total",
				Help:      "Index writes by outcome",
			},
			[]string{"status"},
		),
		IndexBatchesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_batches_running",
			Help:      "Background index batches in flight",
		}),
		TransformCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_cache_hits_total",
			Help:      "Stylesheet applications served from memory",
		}),
	}
}

func (m *Metrics) ObserveOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LifecycleOps.WithLabelValues(op, status).Inc()
	m.LifecycleOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Reconciled(scheduled, deleted int) {
	if m == nil {
		return
	}
	m.ReconcileScheduled.Add(float64(scheduled))
	m.ReconcileDeleted.Add(float64(deleted))
}

func (m *Metrics) Indexed(n int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.IndexedDocuments.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.IndexBatchesRunning.Inc()
}

func (m *Metrics) BatchFinished() {
	if m == nil {
		return
	}
	m.IndexBatchesRunning.Dec()
}

func (m *Metrics) TransformCacheHit() {
	if m == nil {
		return
	}
	m.TransformCacheHits.Inc()
}
