package retry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executor activity.
type Metrics struct {
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	alerts   prometheus.Counter
}

// NewMetrics creates unregistered executor metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ec2fleet",
				Subsystem: "backoff",
				Name:      "attempts_total",
				Help:      "Total number of operation attempts by result",
			},
			[]string{"result"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ec2fleet",
				Subsystem: "backoff",
				Name:      "runs_total",
				Help:      "Total number of runs by final outcome",
			},
			[]string{"outcome"},
		),
		alerts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ec2fleet",
				Subsystem: "backoff",
				Name:      "alerts_total",
				Help:      "Total number of alerts sent by the executor",
			},
		),
	}
}

// Register adds the metrics to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.attempts, m.outcomes, m.alerts} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Attempt results.
const (
	resultSuccess  = "success"
	resultThrottle = "throttle"
	resultError    = "error"
)

// Run outcomes.
const (
	outcomeSuccess   = "success"
	outcomeExpected  = "expected"
	outcomeExhausted = "exhausted"
	outcomeService   = "service_error"
	outcomeOther     = "other_error"
)

func (m *Metrics) attempt(result string) {
	if m != nil {
		m.attempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) outcome(outcome string) {
	if m != nil {
		m.outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) alert() {
	if m != nil {
		m.alerts.Inc()
	}
}
