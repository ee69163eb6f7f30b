// Package metrics exposes Prometheus collectors for the thread pool,
// task lifecycle, channels, and evaluator call latency, adapted from the
// teacher's PrometheusMetrics/InitPrometheus registry-of-collectors
// shape (Go/process collectors plus a namespaced custom set).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps every Prometheus collector the runtime exposes.
type Metrics struct {
	registry *prometheus.Registry

	poolWorkers    prometheus.Gauge
	poolQueueDepth prometheus.Gauge
	poolSteals     prometheus.Counter

	tasksSpawned   prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	taskJoinWait   prometheus.Histogram

	channelDepth *prometheus.GaugeVec

	evalCallDuration prometheus.Histogram

	environmentInUse     prometheus.Gauge
	environmentOverflows prometheus.Counter
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500}

var global *Metrics

// Init initializes the global Metrics registry under the given
// namespace (typically "hemlock").
func Init(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		poolWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pool_workers", Help: "Number of worker goroutines in the thread pool.",
		}),
		poolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pool_queue_depth", Help: "Total items waiting across all deques and the global queue.",
		}),
		poolSteals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pool_steals_total", Help: "Total successful work-stealing steals.",
		}),
		tasksSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_spawned_total", Help: "Total tasks spawned.",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_completed_total", Help: "Total tasks completed, by status.",
		}, []string{"status"}),
		taskJoinWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "task_join_wait_seconds", Help: "Time spent blocked in Join waiting for a task.", Buckets: prometheus.DefBuckets,
		}),
		channelDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channel_depth", Help: "Buffered values held by a channel.",
		}, []string{"channel_id"}),
		evalCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "eval_call_duration_ms", Help: "Duration of evaluator function calls in milliseconds.", Buckets: defaultBuckets,
		}),
		environmentInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "environment_frames_in_use", Help: "Frames currently checked out of the environment pool.",
		}),
		environmentOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "environment_pool_overflow_total", Help: "Frame allocations beyond the pool's configured capacity.",
		}),
	}

	registry.MustRegister(m.poolWorkers, m.poolQueueDepth, m.poolSteals,
		m.tasksSpawned, m.tasksCompleted, m.taskJoinWait,
		m.channelDepth, m.evalCallDuration,
		m.environmentInUse, m.environmentOverflows)

	global = m
	return m
}

// Global returns the process-wide Metrics instance, or nil if Init has
// not been called (metrics are opt-in).
func Global() *Metrics { return global }

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetPoolWorkers(n int)      { m.poolWorkers.Set(float64(n)) }
func (m *Metrics) SetPoolQueueDepth(n int)   { m.poolQueueDepth.Set(float64(n)) }
func (m *Metrics) AddPoolSteals(n int64)     { m.poolSteals.Add(float64(n)) }
func (m *Metrics) IncTasksSpawned()          { m.tasksSpawned.Inc() }
func (m *Metrics) IncTasksCompleted(status string) { m.tasksCompleted.WithLabelValues(status).Inc() }
func (m *Metrics) ObserveTaskJoinWaitSeconds(s float64) { m.taskJoinWait.Observe(s) }
func (m *Metrics) SetChannelDepth(id string, depth int) { m.channelDepth.WithLabelValues(id).Set(float64(depth)) }
func (m *Metrics) ObserveEvalCallMs(ms float64)    { m.evalCallDuration.Observe(ms) }
func (m *Metrics) SetEnvironmentInUse(n int64)     { m.environmentInUse.Set(float64(n)) }
func (m *Metrics) AddEnvironmentOverflow(n int64)  { m.environmentOverflows.Add(float64(n)) }
