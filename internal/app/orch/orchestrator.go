// Package orch composes presence, dispatch, calls and group fan-out into the
// hub that transports talk to.
package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app"
	"github.com/dkeye/Chathub/internal/app/calls"
	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/fanout"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

type Options struct {
	GracePeriod       time.Duration
	Shards            int
	Policy            dispatch.Policy
	ParallelThreshold int
	MaxParallel       int
	CallRetention     time.Duration
	Clock             func() time.Time
	Metrics           *app.Metrics
	// Observers see every emit, after metrics.
	Observers         []dispatch.Observer
	CallObservers     []calls.Observer
	PresenceListeners []presence.Listener
}

type Orchestrator struct {
	Presence *presence.Registry
	Dispatch *dispatch.Dispatcher
	Calls    *calls.Relay
	Groups   *fanout.Fanout
	Stores   core.Stores
	Metrics  *app.Metrics
}

func New(stores core.Stores, opts Options) *Orchestrator {
	reg := presence.NewRegistry(presence.Options{GracePeriod: opts.GracePeriod, Shards: opts.Shards})

	dopts := []dispatch.Option{dispatch.WithParallelism(opts.ParallelThreshold, opts.MaxParallel)}
	if opts.Policy != nil {
		dopts = append(dopts, dispatch.WithPolicy(opts.Policy))
	}
	var callObservers []calls.Observer
	if opts.Metrics != nil {
		dopts = append(dopts, dispatch.WithObserver(opts.Metrics))
		callObservers = append(callObservers, opts.Metrics)
	}
	for _, ob := range opts.Observers {
		dopts = append(dopts, dispatch.WithObserver(ob))
	}
	callObservers = append(callObservers, opts.CallObservers...)
	d := dispatch.New(reg, dopts...)

	o := &Orchestrator{
		Presence: reg,
		Dispatch: d,
		Calls: calls.NewRelay(stores.CallRecords, stores.Groups, reg, d, calls.Options{
			Retention: opts.CallRetention,
			Clock:     opts.Clock,
			Observers: callObservers,
		}),
		Groups:  fanout.New(stores.Groups, stores.Conversations, d),
		Stores:  stores,
		Metrics: opts.Metrics,
	}
	reg.Subscribe(o.onPresence)
	if opts.Metrics != nil {
		reg.Subscribe(opts.Metrics.OnPresence)
	}
	for _, l := range opts.PresenceListeners {
		reg.Subscribe(l)
	}
	return o
}

// Run delivers presence transitions until ctx is done, then cancels every
// pending timer.
func (o *Orchestrator) Run(ctx context.Context) error {
	err := o.Presence.Run(ctx)
	o.Presence.Stop()
	o.Calls.Stop()
	return err
}

func (o *Orchestrator) onPresence(c presence.Change) {
	o.Dispatch.Broadcast(c.User, events.UserStatusChanged{UserID: c.User, Status: c.Status})
	if c.Status != domain.StatusOffline {
		return
	}
	// A reconnect can land between the grace timer firing and this callback.
	if o.Presence.IsOnline(c.User) {
		return
	}
	if ended := o.Calls.DisconnectUser(context.Background(), c.User); len(ended) > 0 {
		log.Info().
			Str("module", "app.orch").
			Str("user", string(c.User)).
			Int("calls", len(ended)).
			Msg("ended calls of offline user")
	}
}

// RegisterConnection binds sess to user and makes it the user's
// authoritative connection. It reports whether the user just came online.
func (o *Orchestrator) RegisterConnection(sess *core.Session, user domain.UserID) (bool, error) {
	const op = "orch.register"
	user, err := domain.ParseUserID(string(user))
	if err != nil {
		return false, domain.Validation(op, err.Error())
	}
	if !sess.Bind(user) {
		return false, domain.Permission(op, "connection is bound to another user")
	}
	cameOnline := o.Presence.Register(user, sess.Signal())
	// A reconnect inside the grace period picks its live calls back up.
	for _, id := range o.Calls.LiveFor(user) {
		sess.Subscribe(core.CallChannel(id))
	}
	log.Info().
		Str("module", "app.orch").
		Str("user", string(user)).
		Str("conn", string(sess.ConnID())).
		Bool("came_online", cameOnline).
		Msg("connection registered")
	return cameOnline, nil
}

// Heartbeat refreshes liveness of a registered session.
func (o *Orchestrator) Heartbeat(sess *core.Session) bool {
	user, ok := sess.User()
	if !ok {
		return false
	}
	sess.Touch()
	return o.Presence.Heartbeat(user, sess.Signal())
}

// OnDisconnect is called once by the transport when a connection is gone.
func (o *Orchestrator) OnDisconnect(sess *core.Session) {
	user, ok := sess.User()
	if !ok {
		return
	}
	if !o.Presence.OnConnectionClosed(sess.Signal()) {
		return
	}
	if chans := sess.Channels(); len(chans) > 0 {
		log.Info().
			Str("module", "app.orch").
			Str("user", string(user)).
			Strs("channels", chans).
			Msg("calls held for grace period")
	}
}
