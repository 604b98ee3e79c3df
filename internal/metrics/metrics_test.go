package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOp(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOp("update", time.Now(), nil)
	m.ObserveOp("update", time.Now(), errors.New("boom"))
	m.ObserveOp("update", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LifecycleOps.WithLabelValues("update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LifecycleOps.WithLabelValues("update", "error")))
}

func TestReconciled(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Reconciled(3, 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReconcileScheduled))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReconcileDeleted))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOp("delete", time.Now(), nil)
	m.Reconciled(1, 1)
	m.Indexed(1, nil)
	m.BatchStarted()
	m.BatchFinished()
	m.TransformCacheHit()
}
