package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// DispatchMetrics tracks coordinator dispatch statistics in Prometheus.
type DispatchMetrics struct {
	mu sync.Mutex

	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	globalFanout     prometheus.Histogram
	storesRegistered prometheus.Gauge
	subscriptions    *prometheus.GaugeVec

	registerer prometheus.Registerer
	registered bool
}

// NewDispatchMetrics creates the collectors under namespace. Call Register
// before recording.
func NewDispatchMetrics(registerer prometheus.Registerer, namespace string) *DispatchMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &DispatchMetrics{
		registerer: registerer,
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Total number of actions applied to containers",
		}, []string{"module", "action", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent applying an action to a container",
			Buckets:   []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"module"}),
		globalFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "global_fanout",
			Help:      "Number of modules that accepted a globally dispatched action",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		storesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stores_registered",
			Help:      "Number of registered module stores",
		}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Live subscriptions by scope",
		}, []string{"scope"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *DispatchMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.dispatchesTotal,
		m.dispatchDuration,
		m.globalFanout,
		m.storesRegistered,
		m.subscriptions,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordDispatch records one container dispatch.
func (m *DispatchMetrics) RecordDispatch(module, actionType string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.dispatchesTotal.WithLabelValues(module, actionType, outcome).Inc()
	m.dispatchDuration.WithLabelValues(module).Observe(d.Seconds())
}

// ObserveGlobalFanout records how many modules accepted a global dispatch.
func (m *DispatchMetrics) ObserveGlobalFanout(accepted int) {
	m.globalFanout.Observe(float64(accepted))
}

// SetStoresRegistered sets the registered store gauge.
func (m *DispatchMetrics) SetStoresRegistered(n int) {
	m.storesRegistered.Set(float64(n))
}

// SetSubscriptions sets the live subscription gauge for scope.
func (m *DispatchMetrics) SetSubscriptions(scope string, n int) {
	m.subscriptions.WithLabelValues(scope).Set(float64(n))
}

// Reset resets all metrics (useful for testing).
func (m *DispatchMetrics) Reset() {
	m.dispatchesTotal.Reset()
	m.dispatchDuration.Reset()
	m.subscriptions.Reset()
	m.storesRegistered.Set(0)
}
