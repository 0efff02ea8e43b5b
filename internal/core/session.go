package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Chathub/internal/domain"
)

// UserContextKey is the request context key holding the upstream
// authenticated user.
const UserContextKey = "user_id"

// Session binds an authenticated user to its transport endpoint and keeps the
// per-connection context the hub reads: identity, liveness and the channels
// (active calls) the connection takes part in.
type Session struct {
	conn SignalConnection

	mu       sync.RWMutex
	user     domain.UserID
	lastSeen time.Time
	channels map[string]struct{}
}

func NewSession(conn SignalConnection) *Session {
	return &Session{
		conn:     conn,
		lastSeen: time.Now(),
		channels: make(map[string]struct{}),
	}
}

func (s *Session) Signal() SignalConnection { return s.conn }
func (s *Session) ConnID() ConnID           { return s.conn.ID() }

// Bind attaches the identity. A session is bound once; rebinding to another
// user is refused.
func (s *Session) Bind(user domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != "" && s.user != user {
		return false
	}
	s.user = user
	s.lastSeen = time.Now()
	return true
}

func (s *Session) User() (domain.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != ""
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) Subscribe(channel string) {
	s.mu.Lock()
	s.channels[channel] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) Unsubscribe(channel string) {
	s.mu.Lock()
	delete(s.channels, channel)
	s.mu.Unlock()
}

// Channels returns a sorted snapshot.
func (s *Session) Channels() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// CallChannel names the session channel of an active call.
func CallChannel(id domain.CallID) string { return "call:" + string(id) }

// CallFromChannel reverses CallChannel.
func CallFromChannel(ch string) (domain.CallID, bool) {
	const prefix = "call:"
	if len(ch) <= len(prefix) || ch[:len(prefix)] != prefix {
		return "", false
	}
	return domain.CallID(ch[len(prefix):]), true
}
