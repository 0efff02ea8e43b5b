// Package natsbridge mirrors hub activity onto NATS subjects so other
// services (history, analytics, push) can follow it without a socket.
// Publishing is fire and forget; a failed publish is logged and the hub
// carries on.
package natsbridge

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

const DefaultPrefix = "chathub"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type EmitRecord struct {
	Type      string          `json:"type"`
	Data      events.Event    `json:"data"`
	Delivered []domain.UserID `json:"delivered,omitempty"`
	Missed    []domain.UserID `json:"missed,omitempty"`
	Dropped   []domain.UserID `json:"dropped,omitempty"`
	At        time.Time       `json:"at"`
}

type PresenceRecord struct {
	UserID domain.UserID         `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
	At     time.Time             `json:"at"`
}

type Bridge struct {
	pub    Publisher
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

func New(pub Publisher, prefix string) *Bridge {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bridge{
		pub:    pub,
		prefix: prefix,
		now:    time.Now,
		log:    log.With().Str("module", "adapters.natsbridge").Logger(),
	}
}

// Connect dials NATS and keeps reconnecting forever.
func Connect(url, name string) (*nats.Conn, error) {
	l := log.With().Str("module", "adapters.natsbridge").Logger()
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			l.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
}

func (b *Bridge) EventSubject(name string) string { return b.prefix + ".events." + name }
func (b *Bridge) PresenceSubject() string         { return b.prefix + ".presence" }
func (b *Bridge) CallSubject(state domain.CallState) string {
	return b.prefix + ".calls." + string(state)
}

// OnEmit implements dispatch.Observer.
func (b *Bridge) OnEmit(ev events.Event, res dispatch.Result) {
	b.publish(b.EventSubject(ev.EventName()), EmitRecord{
		Type:      ev.EventName(),
		Data:      ev,
		Delivered: res.Delivered,
		Missed:    res.Missed,
		Dropped:   res.Dropped,
		At:        b.now(),
	})
}

// OnPresence is a presence listener.
func (b *Bridge) OnPresence(c presence.Change) {
	b.publish(b.PresenceSubject(), PresenceRecord{UserID: c.User, Status: c.Status, At: c.At})
}

// OnCallState implements calls.Observer.
func (b *Bridge) OnCallState(s domain.CallSession) {
	b.publish(b.CallSubject(s.State), s)
}

func (b *Bridge) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error().Err(err).Str("subject", subject).Msg("marshal")
		return
	}
	if err := b.pub.Publish(subject, data); err != nil {
		b.log.Warn().Err(err).Str("subject", subject).Msg("publish failed")
	}
}
