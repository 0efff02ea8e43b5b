// Package coretest provides an in-memory SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

// Conn records every frame it accepts. With a positive capacity it refuses
// frames beyond it with core.ErrBackpressure.
type Conn struct {
	id       core.ConnID
	capacity int

	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func NewConn(id string) *Conn { return &Conn{id: core.ConnID(id)} }

// NewLimitedConn returns a Conn that fills up after capacity frames.
func NewLimitedConn(id string, capacity int) *Conn {
	return &Conn{id: core.ConnID(id), capacity: capacity}
}

func (c *Conn) ID() core.ConnID { return c.id }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.capacity > 0 && len(c.frames) >= c.capacity {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Frame is a decoded envelope.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (f Frame) Decode(v any) error { return json.Unmarshal(f.Data, v) }

func (c *Conn) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			f.Type = "<invalid>"
		}
		out = append(out, f)
	}
	return out
}

// Types lists received event names in arrival order.
func (c *Conn) Types() []string {
	frames := c.Frames()
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

// Named returns the received frames of one event name.
func (c *Conn) Named(name string) []Frame {
	var out []Frame
	for _, f := range c.Frames() {
		if f.Type == name {
			out = append(out, f)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// Resolver is a static user to connection map satisfying the dispatcher's
// Resolver.
type Resolver struct {
	mu    sync.Mutex
	conns map[domain.UserID]core.SignalConnection
}

func NewResolver() *Resolver {
	return &Resolver{conns: make(map[domain.UserID]core.SignalConnection)}
}

func (r *Resolver) Set(user domain.UserID, conn core.SignalConnection) {
	r.mu.Lock()
	r.conns[user] = conn
	r.mu.Unlock()
}

func (r *Resolver) Remove(user domain.UserID) {
	r.mu.Lock()
	delete(r.conns, user)
	r.mu.Unlock()
}

func (r *Resolver) Resolve(user domain.UserID) (core.SignalConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[user]
	return c, ok
}

func (r *Resolver) Online() []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserID, 0, len(r.conns))
	for u := range r.conns {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
