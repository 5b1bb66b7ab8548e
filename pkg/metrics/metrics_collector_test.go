package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRedemption(t *testing.T) {
	mc := NewMetricsCollector(prometheus.NewRegistry())

	mc.RecordRedemption("success", "", "live", 10*time.Millisecond)
	mc.RecordRedemption("success", "", "live", 12*time.Millisecond)
	mc.RecordRedemption("blocked", "duplicate_scan", "offline", time.Millisecond)
	mc.RecordDecrementConflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.redemptionsTotal.WithLabelValues("success", "", "live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.redemptionsTotal.WithLabelValues("blocked", "duplicate_scan", "offline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.decrementConflicts))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var mc *MetricsCollector
	assert.NotPanics(t, func() {
		mc.RecordRedemption("success", "", "live", time.Millisecond)
		mc.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
		mc.RecordTask("notify", "ok")
		mc.SetQueueDepth(3)
		mc.RecordBatch(4)
		mc.RecordDecrementConflict()
	})
}
