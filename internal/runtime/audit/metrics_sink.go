package audit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts audit records with Prometheus.
type MetricsSink struct {
	events     *prometheus.CounterVec
	exceptions *prometheus.CounterVec
}

// NewMetricsSink registers the audit counters under namespace. Collectors that
// are already registered are reused, so several sinks may share a registry.
func NewMetricsSink(registerer prometheus.Registerer, namespace string) (*MetricsSink, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Total number of audit events by source and dispatch status",
	}, []string{"source", "status"})
	exceptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "exceptions_total",
		Help:      "Total number of audit exceptions by source",
	}, []string{"source"})

	var err error
	if events, err = registerCounterVec(registerer, events); err != nil {
		return nil, err
	}
	if exceptions, err = registerCounterVec(registerer, exceptions); err != nil {
		return nil, err
	}
	return &MetricsSink{events: events, exceptions: exceptions}, nil
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func (s *MetricsSink) LogEvent(source, _ string, properties Properties) error {
	status := properties[PropDispatchStatus]
	if status == "" {
		status = "none"
	}
	s.events.WithLabelValues(source, status).Inc()
	return nil
}

func (s *MetricsSink) LogException(source string, _ error, _ Properties) error {
	s.exceptions.WithLabelValues(source).Inc()
	return nil
}
