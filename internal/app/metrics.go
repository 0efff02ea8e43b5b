package app

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

// Metrics tracks hub statistics. It observes the dispatcher, the presence
// registry and the call relay.
type Metrics struct {
	mu sync.Mutex

	onlineUsers       prometheus.Gauge
	presenceTotal     *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	callsTotal        *prometheus.CounterVec
	inboundTotal      *prometheus.CounterVec
	connectionsActive prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chathub",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chathub",
		Name:      name,
		Help:      help,
	})
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer:        registerer,
		onlineUsers:       newGauge("online_users", "Users currently online, grace period included"),
		connectionsActive: newGauge("connections_active", "Open transport connections"),
		presenceTotal:     newCounterVec("presence_transitions_total", "Online and offline transitions", []string{"status"}),
		eventsTotal:       newCounterVec("events_total", "Per recipient delivery outcomes", []string{"event", "outcome"}),
		callsTotal:        newCounterVec("call_transitions_total", "Committed call state transitions", []string{"state", "reason"}),
		inboundTotal:      newCounterVec("inbound_requests_total", "Inbound requests by kind and result code", []string{"kind", "code"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		m.onlineUsers,
		m.connectionsActive,
		m.presenceTotal,
		m.eventsTotal,
		m.callsTotal,
		m.inboundTotal,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// OnEmit implements dispatch.Observer.
func (m *Metrics) OnEmit(ev events.Event, res dispatch.Result) {
	name := ev.EventName()
	if n := len(res.Delivered); n > 0 {
		m.eventsTotal.WithLabelValues(name, "delivered").Add(float64(n))
	}
	if n := len(res.Missed); n > 0 {
		m.eventsTotal.WithLabelValues(name, "missed").Add(float64(n))
	}
	if n := len(res.Dropped); n > 0 {
		m.eventsTotal.WithLabelValues(name, "dropped").Add(float64(n))
	}
}

// OnPresence is a presence.Listener.
func (m *Metrics) OnPresence(c presence.Change) {
	m.presenceTotal.WithLabelValues(string(c.Status)).Inc()
	switch c.Status {
	case domain.StatusOnline:
		m.onlineUsers.Inc()
	case domain.StatusOffline:
		m.onlineUsers.Dec()
	}
}

// OnCallState implements calls.Observer.
func (m *Metrics) OnCallState(s domain.CallSession) {
	m.callsTotal.WithLabelValues(string(s.State), string(s.EndReason)).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connectionsActive.Inc() }
func (m *Metrics) ConnectionClosed() { m.connectionsActive.Dec() }

// Inbound counts a handled request; code is "ok" or a domain error code.
func (m *Metrics) Inbound(kind, code string) {
	m.inboundTotal.WithLabelValues(kind, code).Inc()
}
