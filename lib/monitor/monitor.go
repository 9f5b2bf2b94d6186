// Package monitor exports Prometheus metrics of the adapters of the wallet service.
package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tarancss/wadp/adapter"
)

// statuses are reported as one gauge per status, set to 1 for the current one.
var statuses = []adapter.Status{adapter.NotReady, adapter.Ready, adapter.Connecting, adapter.Connected} //nolint:gochecknoglobals,lll

// Monitor holds the collectors fed by adapter events.
type Monitor struct {
	status  *prometheus.GaugeVec
	events  *prometheus.CounterVec
	connect *prometheus.HistogramVec

	l     sync.Mutex
	start map[string]time.Time // connection attempts in progress per client id
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Monitor, error) {
	m := &Monitor{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wadp",
			Name:      "adapter_status",
			Help:      "Current status of the adapter of a client id, 1 for the current status.",
		}, []string{"client_id", "status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wadp",
			Name:      "adapter_events_total",
			Help:      "Lifecycle events emitted by the adapter of a client id.",
		}, []string{"client_id", "event"}),
		connect: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wadp",
			Name:      "adapter_connect_seconds",
			Help:      "Duration of connection attempts by result.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		}, []string{"client_id", "result"}),
		start: make(map[string]time.Time),
	}

	for _, c := range []prometheus.Collector{m.status, m.events, m.connect} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Watch records the events of a, the adapter of clientID, until the returned function is called.
func (m *Monitor) Watch(clientID string, a *adapter.Adapter) (off func()) {
	m.setStatus(clientID, a.Status())

	return a.OnAny(func(ev adapter.Event) {
		m.Observe(clientID, ev, a.Status())
	})
}

// Observe records ev, after which the adapter of clientID has status s.
func (m *Monitor) Observe(clientID string, ev adapter.Event, s adapter.Status) {
	m.events.WithLabelValues(clientID, string(ev.Name)).Inc()
	m.setStatus(clientID, s)

	m.l.Lock()
	defer m.l.Unlock()

	switch ev.Name {
	case adapter.EventConnecting:
		m.start[clientID] = time.Now()
	case adapter.EventConnected, adapter.EventErrored:
		result := "connected"
		if ev.Name == adapter.EventErrored {
			result = "errored"
		}

		if t, ok := m.start[clientID]; ok {
			m.connect.WithLabelValues(clientID, result).Observe(time.Since(t).Seconds())
			delete(m.start, clientID)
		}
	}
}

func (m *Monitor) setStatus(clientID string, s adapter.Status) {
	for _, st := range statuses {
		v := 0.0
		if st == s {
			v = 1
		}

		m.status.WithLabelValues(clientID, st.String()).Set(v)
	}
}
