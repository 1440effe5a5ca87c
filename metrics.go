package qturing

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Metrics tracks search attempts. Plain fields hold the running totals for
ExportMetrics; the same observations feed a private Prometheus registry that
callers may expose.
*/
type Metrics struct {
	mu                    sync.RWMutex
	Attempts              int64
	Accepted              int64
	EmptyRegisters        int64
	StepsEvolved          int64
	PeakConfigurations    int
	LastAcceptProbability float64
	TotalAttemptTime      time.Duration
	AverageAttemptLatency time.Duration

	registry           *prometheus.Registry
	attempts           *prometheus.CounterVec
	steps              prometheus.Counter
	liveConfigurations prometheus.Gauge
	acceptProbability  prometheus.Gauge
	attemptDuration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "qturing",
				Name:      "search_attempts_total",
				Help:      "Search attempts by outcome",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "qturing",
				Name:      "steps_evolved_total",
				Help:      "Machine steps evolved across all attempts",
			},
		),
		liveConfigurations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "qturing",
				Name:      "live_configurations",
				Help:      "Configurations in the register after the last attempt",
			},
		),
		acceptProbability: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "qturing",
				Name:      "accept_probability",
				Help:      "Probability held by accept states after the last attempt",
			},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "qturing",
				Name:      "attempt_duration_seconds",
				Help:      "Wall time of one reset-run-measure attempt",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
	}

	m.registry.MustRegister(
		m.attempts,
		m.steps,
		m.liveConfigurations,
		m.acceptProbability,
		m.attemptDuration,
	)

	return m
}

// Registry returns the Prometheus registry holding the search collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordAttempt(startTime time.Time, attempt Attempt, live int) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Attempts++
	m.StepsEvolved += int64(attempt.Budget)
	m.TotalAttemptTime += duration
	m.AverageAttemptLatency = m.TotalAttemptTime / time.Duration(m.Attempts)
	m.LastAcceptProbability = attempt.AcceptProbability

	switch attempt.Outcome {
	case OutcomeAccepted:
		m.Accepted++
	case OutcomeEmpty:
		m.EmptyRegisters++
	}

	if live > m.PeakConfigurations {
		m.PeakConfigurations = live
	}

	m.attempts.WithLabelValues(string(attempt.Outcome)).Inc()
	m.steps.Add(float64(attempt.Budget))
	m.liveConfigurations.Set(float64(live))
	m.acceptProbability.Set(attempt.AcceptProbability)
	m.attemptDuration.Observe(duration.Seconds())
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"attempts":            m.Attempts,
		"accepted":            m.Accepted,
		"empty_registers":     m.EmptyRegisters,
		"steps_evolved":       m.StepsEvolved,
		"peak_configurations": m.PeakConfigurations,
		"accept_probability":  m.LastAcceptProbability,
		"avg_latency":         m.AverageAttemptLatency.Milliseconds(),
	}
}
