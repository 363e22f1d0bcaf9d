package notify

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bus counters.
type Metrics struct {
	Dropped prometheus.Counter // changes not delivered to a full subscription
}

// NewMetrics creates the bus counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deskclock",
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Changes dropped because a subscriber's buffer was full.",
		}),
	}
	if err := reg.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notify metrics: %w", err)
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Dropped.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Dropped.Collect(ch)
}
