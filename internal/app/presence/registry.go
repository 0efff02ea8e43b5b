// Package presence keeps the authoritative user → connection mapping and
// decides when a user goes online or offline.
package presence

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

const (
	DefaultGracePeriod = 5 * time.Second
	DefaultShards      = 32
)

type Options struct {
	// GracePeriod is how long a closed authoritative connection may stay
	// unanswered before its user is declared offline.
	GracePeriod time.Duration
	Shards      int
}

// Entry is a read-only view of one online user.
type Entry struct {
	User       domain.UserID `json:"userId"`
	ConnID     core.ConnID   `json:"connId"`
	OnlineAt   time.Time     `json:"onlineAt"`
	LastSeenAt time.Time     `json:"lastSeenAt"`
	// Pending is set while the connection is closed and inside its grace period.
	Pending bool `json:"pending"`
}

type entry struct {
	conn     core.SignalConnection
	onlineAt time.Time
	lastSeen time.Time
}

// pendingDisconnect is the scheduled offline transition of one closed
// connection. Its pointer identity is the cancellation token: a timer that
// fires after being cancelled or replaced finds a different (or no) pending
// value in the shard and does nothing.
type pendingDisconnect struct {
	conn  core.SignalConnection
	timer *time.Timer
}

type shard struct {
	mu      sync.Mutex
	entries map[domain.UserID]*entry
	pending map[domain.UserID]*pendingDisconnect
}

// Registry is safe for concurrent use. Every operation on a user runs under
// that user's shard lock, so register/close/maturity for one user are
// linearizable. No lock is held while talking to a connection.
type Registry struct {
	grace  time.Duration
	shards []*shard

	ownersMu sync.Mutex
	owners   map[core.ConnID]domain.UserID

	notify *notifier
}

func NewRegistry(opts Options) *Registry {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Shards <= 0 {
		opts.Shards = DefaultShards
	}
	r := &Registry{
		grace:  opts.GracePeriod,
		shards: make([]*shard, opts.Shards),
		owners: make(map[core.ConnID]domain.UserID),
		notify: newNotifier(),
	}
	for i := range r.shards {
		r.shards[i] = &shard{
			entries: make(map[domain.UserID]*entry),
			pending: make(map[domain.UserID]*pendingDisconnect),
		}
	}
	return r
}

// Subscribe adds a listener for online/offline transitions. Listeners are
// called from a single goroutine in transition order.
func (r *Registry) Subscribe(l Listener) { r.notify.subscribe(l) }

// Run delivers status transitions to listeners until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	r.notify.run(ctx)
	return nil
}

func (r *Registry) shardFor(user domain.UserID) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Register binds user to conn as the authoritative handle and cancels any
// pending disconnect. It reports true only for a real offline → online
// transition; re-registering an online user (second tab, reconnect inside
// the grace period) changes the delivery target silently.
func (r *Registry) Register(user domain.UserID, conn core.SignalConnection) bool {
	r.ownersMu.Lock()
	r.owners[conn.ID()] = user
	r.ownersMu.Unlock()

	now := time.Now()
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	if pd, ok := s.pending[user]; ok {
		pd.timer.Stop()
		delete(s.pending, user)
		log.Info().Str("module", "app.presence").Str("user", string(user)).Msg("pending disconnect cancelled")
	}

	prev, existed := s.entries[user]
	e := &entry{conn: conn, onlineAt: now, lastSeen: now}
	if existed {
		e.onlineAt = prev.onlineAt
		if prev.conn.ID() != conn.ID() {
			log.Info().
				Str("module", "app.presence").
				Str("user", string(user)).
				Str("old_conn", string(prev.conn.ID())).
				Str("conn", string(conn.ID())).
				Msg("connection superseded")
		}
	}
	s.entries[user] = e

	if existed {
		return false
	}
	r.notify.push(Change{User: user, Status: domain.StatusOnline, At: now})
	log.Info().Str("module", "app.presence").Str("user", string(user)).Str("conn", string(conn.ID())).Msg("user online")
	return true
}

// Heartbeat refreshes lastSeen when conn is still authoritative for user.
func (r *Registry) Heartbeat(user domain.UserID, conn core.SignalConnection) bool {
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[user]
	if !ok || e.conn.ID() != conn.ID() {
		return false
	}
	if _, pending := s.pending[user]; pending {
		return false
	}
	e.lastSeen = time.Now()
	return true
}

// OnConnectionClosed starts the grace period for the owner of conn, unless
// conn was already superseded by a newer connection. It reports whether a
// grace period was started.
func (r *Registry) OnConnectionClosed(conn core.SignalConnection) bool {
	r.ownersMu.Lock()
	user, ok := r.owners[conn.ID()]
	delete(r.owners, conn.ID())
	r.ownersMu.Unlock()
	if !ok {
		return false
	}

	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[user]
	if !ok || e.conn.ID() != conn.ID() {
		log.Debug().
			Str("module", "app.presence").
			Str("user", string(user)).
			Str("conn", string(conn.ID())).
			Msg("ignoring close of outdated connection")
		return false
	}
	if old, ok := s.pending[user]; ok {
		old.timer.Stop()
	}

	pd := &pendingDisconnect{conn: conn}
	// The callback needs s.mu, which is held until pd.timer is assigned.
	pd.timer = time.AfterFunc(r.grace, func() { r.mature(user, pd) })
	s.pending[user] = pd
	log.Info().
		Str("module", "app.presence").
		Str("user", string(user)).
		Dur("grace", r.grace).
		Msg("disconnect timer started")
	return true
}

func (r *Registry) mature(user domain.UserID, pd *pendingDisconnect) {
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.pending[user]; !ok || cur != pd {
		return
	}
	delete(s.pending, user)

	e, ok := s.entries[user]
	if !ok || e.conn.ID() != pd.conn.ID() {
		return
	}
	delete(s.entries, user)
	r.notify.push(Change{User: user, Status: domain.StatusOffline, At: time.Now()})
	log.Info().Str("module", "app.presence").Str("user", string(user)).Msg("user offline after grace period")
}

// Resolve returns the authoritative connection of user. Users inside their
// grace period have no deliverable connection.
func (r *Registry) Resolve(user domain.UserID) (core.SignalConnection, bool) {
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[user]
	if !ok {
		return nil, false
	}
	if _, pending := s.pending[user]; pending {
		return nil, false
	}
	return e.conn, true
}

// IsOnline reports presence, grace period included.
func (r *Registry) IsOnline(user domain.UserID) bool {
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[user]
	return ok
}

// Online lists online users, sorted.
func (r *Registry) Online() []domain.UserID {
	var out []domain.UserID
	for _, s := range r.shards {
		s.mu.Lock()
		for u := range s.entries {
			out = append(out, u)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Count() int {
	n := 0
	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Snapshot returns every online entry, sorted by user.
func (r *Registry) Snapshot() []Entry {
	var out []Entry
	for _, s := range r.shards {
		s.mu.Lock()
		for u, e := range s.entries {
			_, pending := s.pending[u]
			out = append(out, Entry{
				User:       u,
				ConnID:     e.conn.ID(),
				OnlineAt:   e.onlineAt,
				LastSeenAt: e.lastSeen,
				Pending:    pending,
			})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// Stop cancels every pending disconnect timer. Entries are kept.
func (r *Registry) Stop() {
	for _, s := range r.shards {
		s.mu.Lock()
		for u, pd := range s.pending {
			pd.timer.Stop()
			delete(s.pending, u)
		}
		s.mu.Unlock()
	}
}
