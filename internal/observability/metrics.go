package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueSize    *prometheus.GaugeVec
	enqueueTotal *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	toolInvocationTotal    *prometheus.CounterVec
	toolInvocationDuration *prometheus.HistogramVec
	toolVerifyAttempts     *prometheus.HistogramVec

	conversationTotal *prometheus.CounterVec
	conversationTurns prometheus.Histogram

	collaboratorCallTotal *prometheus.CounterVec
	collaboratorDuration  *prometheus.HistogramVec

	askTotal    *prometheus.CounterVec
	askDuration *prometheus.HistogramVec

	virtualToolPromotions prometheus.Counter
	virtualToolsActive    prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueSize: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "queue_size",
					Help: "Current queue size by lane.",
				},
				[]string{"lane"},
			),
			enqueueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "enqueue_total",
					Help: "Total enqueue operations by lane.",
				},
				[]string{"lane"},
			),
			taskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "task_duration_seconds",
					Help:    "Task execution duration in seconds by status.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"status"},
			),
			toolInvocationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_invocation_total",
					Help: "Total tool invocations by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolInvocationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_invocation_duration_seconds",
					Help:    "Tool invocation duration in seconds by tool, verification included.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolVerifyAttempts: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_verification_attempts",
					Help:    "Attempts spent per invocation of an unreliable tool.",
					Buckets: []float64{1, 2, 3, 4, 5, 8},
				},
				[]string{"tool"},
			),
			conversationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "conversation_total",
					Help: "Total collaborator conversations by terminal status.",
				},
				[]string{"status"},
			),
			conversationTurns: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "conversation_turns",
					Help:    "Collaborator turns consumed per conversation.",
					Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 20, 32},
				},
			),
			collaboratorCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "collaborator_call_total",
					Help: "Total collaborator calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			collaboratorDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "collaborator_call_duration_seconds",
					Help:    "Collaborator call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			askTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ask_total",
					Help: "Total questions answered by origin and status.",
				},
				[]string{"origin", "status"},
			),
			askDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ask_duration_seconds",
					Help:    "Question answering duration in seconds by origin.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"origin"},
			),
			virtualToolPromotions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "virtual_tool_promotions_total",
					Help: "Total signatures promoted to active virtual tools.",
				},
			),
			virtualToolsActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "virtual_tools_active",
					Help: "Current number of active virtual tools.",
				},
			),
		}

		prometheus.MustRegister(
			m.queueSize,
			m.enqueueTotal,
			m.taskDuration,
			m.toolInvocationTotal,
			m.toolInvocationDuration,
			m.toolVerifyAttempts,
			m.conversationTotal,
			m.conversationTurns,
			m.collaboratorCallTotal,
			m.collaboratorDuration,
			m.askTotal,
			m.askDuration,
			m.virtualToolPromotions,
			m.virtualToolsActive,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func RecordQueueEnqueue(lane string, queueSize int) {
	m := getMetrics()
	m.enqueueTotal.WithLabelValues(lane).Inc()
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

// RecordQueueCompletion records a finished task. The lane gauge is removed
// once the lane drains so per-signature lanes do not accumulate series.
func RecordQueueCompletion(lane string, duration time.Duration, success bool, queueSize int) {
	m := getMetrics()
	m.taskDuration.WithLabelValues(status(success)).Observe(duration.Seconds())
	if queueSize == 0 {
		m.queueSize.DeleteLabelValues(lane)
		return
	}
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func RecordToolInvocation(tool string, duration time.Duration, attempts int, success bool, unreliable bool) {
	m := getMetrics()
	m.toolInvocationTotal.WithLabelValues(tool, status(success)).Inc()
	m.toolInvocationDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if unreliable {
		m.toolVerifyAttempts.WithLabelValues(tool).Observe(float64(attempts))
	}
}

// RecordConversation records a terminal conversation state ("final", "turn_budget",
// "failed", "inconsistent").
func RecordConversation(outcome string, turns int) {
	m := getMetrics()
	m.conversationTotal.WithLabelValues(outcome).Inc()
	m.conversationTurns.Observe(float64(turns))
}

func RecordCollaboratorCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	m.collaboratorCallTotal.WithLabelValues(provider, status(success)).Inc()
	m.collaboratorDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordAsk(origin string, duration time.Duration, success bool) {
	m := getMetrics()
	m.askTotal.WithLabelValues(origin, status(success)).Inc()
	m.askDuration.WithLabelValues(origin).Observe(duration.Seconds())
}

func RecordPromotion(activeTotal int) {
	m := getMetrics()
	m.virtualToolPromotions.Inc()
	m.virtualToolsActive.Set(float64(activeTotal))
}
