package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// 所有方法对 nil 接收者安全，测试里可以不注入
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 核销指标
	redemptionsTotal   *prometheus.CounterVec
	redemptionDuration *prometheus.HistogramVec
	decrementConflicts prometheus.Counter
	batchSize          prometheus.Histogram

	// 异步任务指标
	tasksTotal *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

// NewMetricsCollector 创建指标收集器，reg 为空时注册到默认 Registerer
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		redemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_redemptions_total",
				Help: "Meal redemption attempts by outcome",
			},
			[]string{"status", "reason", "source"},
		),

		redemptionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meal_redemption_duration_seconds",
				Help:    "End-to-end redemption latency",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"source"},
		),

		decrementConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meal_decrement_conflicts_total",
				Help: "Conditional balance decrements that matched no row",
			},
		),

		batchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meal_sync_batch_size",
				Help:    "Number of scans per offline sync batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),

		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_tasks_total",
				Help: "Async tasks by kind and result",
			},
			[]string{"kind", "result"},
		),

		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worker_queue_depth",
				Help: "Pending tasks in the async worker queue",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (mc *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRedemption 记录一次核销结果
func (mc *MetricsCollector) RecordRedemption(status, reason, source string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.redemptionsTotal.WithLabelValues(status, reason, source).Inc()
	mc.redemptionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordDecrementConflict 条件扣减未命中 (并发抢最后一份)
func (mc *MetricsCollector) RecordDecrementConflict() {
	if mc == nil {
		return
	}
	mc.decrementConflicts.Inc()
}

// RecordBatch 记录离线批次大小
func (mc *MetricsCollector) RecordBatch(size int) {
	if mc == nil {
		return
	}
	mc.batchSize.Observe(float64(size))
}

// RecordTask 记录异步任务执行结果
func (mc *MetricsCollector) RecordTask(kind, result string) {
	if mc == nil {
		return
	}
	mc.tasksTotal.WithLabelValues(kind, result).Inc()
}

// SetQueueDepth 更新队列长度
func (mc *MetricsCollector) SetQueueDepth(n int) {
	if mc == nil {
		return
	}
	mc.queueDepth.Set(float64(n))
}
