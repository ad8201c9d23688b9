package lock

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeAcquired = "acquired"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
)

// Metrics records lock acquisition outcomes and waits. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	acquisitions *prometheus.CounterVec
	wait         prometheus.Histogram
}

// NewMetrics registers lock collectors on reg. Collectors already registered
// by a previous call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamup",
			Subsystem: "lock",
			Name:      "acquisitions_total",
			Help:      "Lock acquisition attempts by outcome",
		}, []string{"outcome"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "teamup",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent acquiring a lock, including retries",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	if err := reg.Register(m.acquisitions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.acquisitions = existing
			}
		}
	}
	if err := reg.Register(m.wait); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				m.wait = existing
			}
		}
	}

	return m
}

func (m *Metrics) observe(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(outcome).Inc()
	m.wait.Observe(time.Since(started).Seconds())
}
