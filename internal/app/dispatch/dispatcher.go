// Package dispatch routes typed events to the connections of online users.
//
// Delivery is at-most-once and best effort: a recipient that is not online at
// emit time misses the event and catches up from persisted state on its next
// reconnect. Emit never waits on a recipient; each connection owns a bounded
// outbound queue drained by its own writer, which also keeps per-recipient
// order for events emitted one after the other.
package dispatch

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

const (
	DefaultParallelThreshold = 64
	DefaultMaxParallel       = 8
)

// Resolver finds the authoritative connection of a user.
type Resolver interface {
	Resolve(user domain.UserID) (core.SignalConnection, bool)
	Online() []domain.UserID
}

// Observer is told about every emit after delivery was attempted.
type Observer interface {
	OnEmit(ev events.Event, res Result)
}

// Result reports delivery stats/backpressure to the caller.
type Result struct {
	Delivered []domain.UserID
	// Missed recipients were not online. Not an error.
	Missed []domain.UserID
	// Dropped recipients were online but their queue was full or closed.
	Dropped []domain.UserID
}

func (r Result) SentTo(user domain.UserID) bool { return domain.ContainsUser(r.Delivered, user) }

type Option func(*Dispatcher)

func WithPolicy(p Policy) Option { return func(d *Dispatcher) { d.policy = p } }

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// WithParallelism enqueues into target sets of at least threshold users from
// up to max goroutines.
func WithParallelism(threshold, max int) Option {
	return func(d *Dispatcher) {
		if threshold > 0 {
			d.parallelThreshold = threshold
		}
		if max > 0 {
			d.maxParallel = max
		}
	}
}

type Dispatcher struct {
	resolver          Resolver
	policy            Policy
	observers         []Observer
	parallelThreshold int
	maxParallel       int
}

func New(resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:          resolver,
		policy:            DropPolicy{},
		parallelThreshold: DefaultParallelThreshold,
		maxParallel:       DefaultMaxParallel,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type outcome int

const (
	delivered outcome = iota
	missed
	dropped
)

// Emit delivers ev to every online target. Duplicate targets receive it once.
// It returns after every enqueue was attempted, so two Emits made one after
// the other by the same caller reach any shared recipient in that order.
func (d *Dispatcher) Emit(targets []domain.UserID, ev events.Event) Result {
	targets = domain.UniqueUsers(targets)
	res := Result{}
	if len(targets) == 0 {
		return res
	}
	frame, err := events.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("encode event")
		return res
	}

	outcomes := make([]outcome, len(targets))
	conns := make([]core.SignalConnection, len(targets))
	if len(targets) >= d.parallelThreshold {
		p := pool.New().WithMaxGoroutines(d.maxParallel)
		for i, u := range targets {
			p.Go(func() { outcomes[i], conns[i] = d.deliver(u, frame) })
		}
		p.Wait()
	} else {
		for i, u := range targets {
			outcomes[i], conns[i] = d.deliver(u, frame)
		}
	}

	for i, u := range targets {
		switch outcomes[i] {
		case delivered:
			res.Delivered = append(res.Delivered, u)
		case missed:
			res.Missed = append(res.Missed, u)
		case dropped:
			res.Dropped = append(res.Dropped, u)
			d.onBackpressure(u, conns[i])
		}
	}

	log.Debug().
		Str("module", "app.dispatch").
		Str("event", ev.EventName()).
		Int("sent_to", len(res.Delivered)).
		Int("missed", len(res.Missed)).
		Int("dropped", len(res.Dropped)).
		Msg("emit result")

	for _, o := range d.observers {
		o.OnEmit(ev, res)
	}
	return res
}

// EmitTo is Emit for a single recipient.
func (d *Dispatcher) EmitTo(target domain.UserID, ev events.Event) Result {
	return d.Emit([]domain.UserID{target}, ev)
}

// Broadcast emits to every online user except one.
func (d *Dispatcher) Broadcast(except domain.UserID, ev events.Event) Result {
	return d.Emit(domain.WithoutUser(d.resolver.Online(), except), ev)
}

// SendDirect pushes ev to one specific connection, bypassing presence. Used
// for replies to the originating connection, which may not be authoritative.
func SendDirect(conn core.SignalConnection, ev events.Event) error {
	frame, err := events.Encode(ev)
	if err != nil {
		return err
	}
	return conn.TrySend(frame)
}

func (d *Dispatcher) deliver(user domain.UserID, frame []byte) (outcome, core.SignalConnection) {
	conn, ok := d.resolver.Resolve(user)
	if !ok {
		return missed, nil
	}
	err := conn.TrySend(core.Frame(frame))
	switch {
	case err == nil:
		return delivered, conn
	case errors.Is(err, core.ErrConnClosed):
		// In-flight send to a closing connection; the close handler owns it.
		return missed, conn
	default:
		return dropped, conn
	}
}

func (d *Dispatcher) onBackpressure(user domain.UserID, conn core.SignalConnection) {
	if d.policy == nil || conn == nil {
		return
	}
	switch d.policy.OnBackPressure(user, conn) {
	case KickConnection:
		log.Warn().
			Str("module", "app.dispatch").
			Str("user", string(user)).
			Str("conn", string(conn.ID())).
			Msg("kicking slow connection")
		conn.Close()
	case DropEvent, NoAction:
	}
}

// Recorder is an Observer that keeps every emit; handy for tests and
// diagnostics.
type Recorder struct {
	mu    sync.Mutex
	emits []Emitted
}

type Emitted struct {
	Event  events.Event
	Result Result
}

func (r *Recorder) OnEmit(ev events.Event, res Result) {
	r.mu.Lock()
	r.emits = append(r.emits, Emitted{Event: ev, Result: res})
	r.mu.Unlock()
}

func (r *Recorder) Emits() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emitted(nil), r.emits...)
}

// Named returns the emits of one event name, in order.
func (r *Recorder) Named(name string) []Emitted {
	var out []Emitted
	for _, e := range r.Emits() {
		if e.Event.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
