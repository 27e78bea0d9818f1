// Package metrics counts reported events with Prometheus.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cleared-dev/pricesplit/internal/report"
)

// Metrics is a report.Sink that counts events by component and level.
type Metrics struct {
	events *prometheus.CounterVec
}

// New registers the pricesplit collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricesplit",
			Name:      "events_total",
			Help:      "Events reported by the pricing core, by component and level.",
		}, []string{"component", "level"}),
	}
	if err := reg.Register(m.events); err != nil {
		return nil, fmt.Errorf("registering events counter: %w", err)
	}
	return m, nil
}

// Handle increments the counter for e.
func (m *Metrics) Handle(e report.Event) {
	m.events.WithLabelValues(e.Component, strings.ToLower(e.Level.String())).Inc()
}

// WriteFile writes every metric gathered by g to path in the text
// exposition format.
func WriteFile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
