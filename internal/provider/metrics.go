package provider

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts facade operations.
type Metrics struct {
	Operations *prometheus.CounterVec // by op and table
}

// NewMetrics creates the provider counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deskclock",
				Subsystem: "provider",
				Name:      "operations_total",
				Help:      "Successful query, insert, update and delete calls by table.",
			},
			[]string{"op", "table"},
		),
	}
	if err := reg.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register provider metrics: %w", err)
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
}

func (m *Metrics) observe(op, table string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, table).Inc()
}
