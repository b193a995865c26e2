package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	promNamespace = "commentsweep"

	promCommandSubsystem = "command"
	promRetrySubsystem   = "retry"
	promTimeoutSubsystem = "timeout"
	promGateSubsystem    = "gate"
	promPaceSubsystem    = "pace"
	promSweepSubsystem   = "sweep"
)

type prometheusRec struct {
	// Metrics.
	cmdExecutionDuration *prometheus.HistogramVec
	retryRetries         *prometheus.CounterVec
	retryExhausted       *prometheus.CounterVec
	retryRateLimited     *prometheus.CounterVec
	timeoutTimeouts      *prometheus.CounterVec
	gateQueued           *prometheus.CounterVec
	gateInflight         *prometheus.GaugeVec
	paceWaits            *prometheus.CounterVec
	sweepProcessed       *prometheus.CounterVec
	sweepReported        *prometheus.CounterVec

	id  string
	reg prometheus.Registerer
}

// NewPrometheusRecorder returns a new Recorder that knows how to measure
// using Prometheus kind metrics.
func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	p := &prometheusRec{
		reg: reg,
	}

	p.registerMetrics()
	return p
}

func (p prometheusRec) WithID(id string) Recorder {
	return &prometheusRec{
		cmdExecutionDuration: p.cmdExecutionDuration,
		retryRetries:         p.retryRetries,
		retryExhausted:       p.retryExhausted,
		retryRateLimited:     p.retryRateLimited,
		timeoutTimeouts:      p.timeoutTimeouts,
		gateQueued:           p.gateQueued,
		gateInflight:         p.gateInflight,
		paceWaits:            p.paceWaits,
		sweepProcessed:       p.sweepProcessed,
		sweepReported:        p.sweepReported,

		id:  id,
		reg: p.reg,
	}
}

func (p *prometheusRec) registerMetrics() {
	p.cmdExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Subsystem: promCommandSubsystem,
		Name:      "execution_duration_seconds",
		Help:      "The duration of the command execution in seconds.",
	}, []string{"id", "success"})

	p.retryRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promRetrySubsystem,
		Name:      "retries_total",
		Help:      "Total number of retries made by the retry runner.",
	}, []string{"id"})

	p.retryExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promRetrySubsystem,
		Name:      "exhausted_total",
		Help:      "Total number of calls that consumed every retry before giving up.",
	}, []string{"id"})

	p.retryRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promRetrySubsystem,
		Name:      "rate_limited_total",
		Help:      "Total number of rate limited responses received from the platform.",
	}, []string{"id"})

	p.timeoutTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promTimeoutSubsystem,
		Name:      "timeouts_total",
		Help:      "Total number of timeouts made by the timeout runner.",
	}, []string{"id"})

	p.gateQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promGateSubsystem,
		Name:      "queued_total",
		Help:      "Total number of funcs that asked the gate for a slot.",
	}, []string{"id"})

	p.gateInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promGateSubsystem,
		Name:      "inflight_executions",
		Help:      "Number of executions currently past the gate.",
	}, []string{"id"})

	p.paceWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promPaceSubsystem,
		Name:      "waits_total",
		Help:      "Total number of executions delayed by the pacer.",
	}, []string{"id"})

	p.sweepProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSweepSubsystem,
		Name:      "submissions_processed_total",
		Help:      "Total number of submissions fetched from the platform.",
	}, []string{"id"})

	p.sweepReported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSweepSubsystem,
		Name:      "submissions_reported_total",
		Help:      "Total number of rows written to the report per sheet.",
	}, []string{"id", "sheet"})

	p.reg.MustRegister(p.cmdExecutionDuration,
		p.retryRetries,
		p.retryExhausted,
		p.retryRateLimited,
		p.timeoutTimeouts,
		p.gateQueued,
		p.gateInflight,
		p.paceWaits,
		p.sweepProcessed,
		p.sweepReported,
	)
}

func (p prometheusRec) ObserveCommandExecution(start time.Time, success bool) {
	secs := time.Since(start).Seconds()
	p.cmdExecutionDuration.WithLabelValues(p.id, fmt.Sprintf("%t", success)).Observe(secs)
}

func (p prometheusRec) IncRetry() {
	p.retryRetries.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncRetryExhausted() {
	p.retryExhausted.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncRateLimited() {
	p.retryRateLimited.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncTimeout() {
	p.timeoutTimeouts.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncGateQueued() {
	p.gateQueued.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) SetGateInflight(n int) {
	p.gateInflight.WithLabelValues(p.id).Set(float64(n))
}

func (p prometheusRec) IncPaceWait() {
	p.paceWaits.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncSubmissionProcessed() {
	p.sweepProcessed.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncSubmissionReported(sheet string) {
	p.sweepReported.WithLabelValues(p.id, sheet).Inc()
}
