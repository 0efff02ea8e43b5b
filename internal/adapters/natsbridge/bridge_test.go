package natsbridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core/coretest"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func TestMirrorsEmits(t *testing.T) {
	pub := &fakePublisher{}
	b := New(pub, "test")

	resolver := coretest.NewResolver()
	resolver.Set("alice", coretest.NewConn("a"))
	d := dispatch.New(resolver, dispatch.WithObserver(b))
	d.Emit([]domain.UserID{"alice", "bob"}, events.CallEnded{CallID: "c1", EndedBy: "carol"})

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "test.events.call-ended", msgs[0].subject)

	var got struct {
		Type      string           `json:"type"`
		Data      events.CallEnded `json:"data"`
		Delivered []domain.UserID  `json:"delivered"`
		Missed    []domain.UserID  `json:"missed"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].data, &got))
	assert.Equal(t, events.NameCallEnded, got.Type)
	assert.Equal(t, domain.CallID("c1"), got.Data.CallID)
	assert.Equal(t, []domain.UserID{"alice"}, got.Delivered)
	assert.Equal(t, []domain.UserID{"bob"}, got.Missed)
}

func TestPresenceAndCalls(t *testing.T) {
	pub := &fakePublisher{}
	b := New(pub, "")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	b.OnPresence(presence.Change{User: "alice", Status: domain.StatusOffline, At: at})
	b.OnCallState(domain.CallSession{ID: "c1", CallerID: "alice", State: domain.CallAnswered})

	msgs := pub.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "chathub.presence", msgs[0].subject)
	var pr PresenceRecord
	require.NoError(t, json.Unmarshal(msgs[0].data, &pr))
	assert.Equal(t, PresenceRecord{UserID: "alice", Status: domain.StatusOffline, At: at}, pr)

	assert.Equal(t, "chathub.calls.answered", msgs[1].subject)
	var s domain.CallSession
	require.NoError(t, json.Unmarshal(msgs[1].data, &s))
	assert.Equal(t, domain.CallID("c1"), s.ID)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	b := New(pub, "x")
	assert.NotPanics(t, func() {
		b.OnEmit(events.Pong{}, dispatch.Result{})
	})
	assert.Empty(t, pub.all())
}
