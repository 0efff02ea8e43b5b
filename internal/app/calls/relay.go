// Package calls arbitrates call signaling between peers. It owns the
// in-memory call state machine and relays SDP and ICE payloads; media never
// passes through it.
//
//	Ringing  -> Answered | Rejected | Ended(missed, cancelled, disconnected)
//	Answered -> Ended(completed, disconnected)
//
// Every transition is written to the call record store before it is
// committed in memory. A failed write leaves the session untouched.
package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

const (
	DefaultRetention     = time.Minute
	DefaultRejectReason  = "Call was rejected"
	TargetOfflineMessage = "User is not online"
)

// Emitter is the slice of the dispatcher the relay needs.
type Emitter interface {
	Emit(targets []domain.UserID, ev events.Event) dispatch.Result
}

// Presence tells whether a user has a deliverable connection right now.
type Presence interface {
	Resolve(user domain.UserID) (core.SignalConnection, bool)
}

// Observer sees every committed transition.
type Observer interface {
	OnCallState(call domain.CallSession)
}

type Options struct {
	// Retention keeps terminal sessions around so late answers get a stale
	// state error instead of not found.
	Retention time.Duration
	Clock     func() time.Time
	NewID     func() domain.CallID
	Observers []Observer
}

type InitiateRequest struct {
	CallerID   domain.UserID
	CallerName string
	TargetIDs  []domain.UserID
	GroupID    domain.GroupID
	Mode       domain.CallMode
	Signal     *webrtc.SessionDescription
}

type call struct {
	mu    sync.Mutex
	s     domain.CallSession
	evict *time.Timer
}

type Relay struct {
	records  core.CallRecordStore
	groups   core.GroupStore
	presence Presence
	emitter  Emitter

	retention time.Duration
	now       func() time.Time
	newID     func() domain.CallID
	observers []Observer

	mu    sync.Mutex
	calls map[domain.CallID]*call

	log zerolog.Logger
}

func NewRelay(records core.CallRecordStore, groups core.GroupStore, presence Presence, emitter Emitter, opts Options) *Relay {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() domain.CallID { return domain.CallID(uuid.NewString()) }
	}
	return &Relay{
		records:   records,
		groups:    groups,
		presence:  presence,
		emitter:   emitter,
		retention: opts.Retention,
		now:       opts.Clock,
		newID:     opts.NewID,
		observers: opts.Observers,
		calls:     make(map[domain.CallID]*call),
		log:       log.With().Str("module", "app.calls").Logger(),
	}
}

// Initiate starts ringing. A direct call whose target is not online ends
// right away as missed and the caller is told with a failed call-response.
func (r *Relay) Initiate(ctx context.Context, req InitiateRequest) (domain.CallSession, error) {
	const op = "calls.initiate"
	if req.CallerID == "" {
		return domain.CallSession{}, domain.Validation(op, "caller is required")
	}
	if !req.Mode.Valid() {
		return domain.CallSession{}, domain.Validation(op, "mode must be audio or video")
	}
	if err := checkSDP(op, req.Signal, webrtc.SDPTypeOffer); err != nil {
		return domain.CallSession{}, err
	}

	var targets []domain.UserID
	if req.GroupID != "" {
		roster, err := r.groups.Get(ctx, req.GroupID)
		if err != nil {
			return domain.CallSession{}, domain.Persistence(op, err)
		}
		if !roster.Has(req.CallerID) {
			return domain.CallSession{}, domain.Permission(op, "caller is not a group member")
		}
		targets = domain.WithoutUser(roster.MemberIDs(), req.CallerID)
	} else {
		targets = domain.WithoutUser(domain.UniqueUsers(req.TargetIDs), req.CallerID)
		if len(targets) != 1 {
			return domain.CallSession{}, domain.Validation(op, "a direct call needs exactly one other target")
		}
	}
	if len(targets) == 0 {
		return domain.CallSession{}, domain.Validation(op, "nobody to call")
	}

	now := r.now()
	s := domain.CallSession{
		ID:           r.newID(),
		CallerID:     req.CallerID,
		Targets:      targets,
		Participants: []domain.UserID{req.CallerID},
		Mode:         req.Mode,
		GroupID:      req.GroupID,
		State:        domain.CallRinging,
		StartedAt:    now,
	}
	rec := domain.CallRecord{
		ID:        s.ID,
		CallerID:  s.CallerID,
		Receivers: targets,
		Mode:      s.Mode,
		GroupID:   s.GroupID,
		Status:    domain.CallStatusRinging,
		StartTime: now,
	}
	if _, err := r.records.Create(ctx, rec); err != nil {
		return domain.CallSession{}, domain.Persistence(op, err)
	}

	if !s.IsGroup() && !r.reachable(targets[0]) {
		if _, err := r.records.UpdateStatus(ctx, s.ID, domain.CallStatusMissed, now); err != nil {
			return domain.CallSession{}, domain.Persistence(op, err)
		}
		s.State = domain.CallEnded
		s.EndReason = domain.EndMissed
		s.EndedAt = &now
		c := r.commitNew(s)
		r.emitter.Emit([]domain.UserID{s.CallerID}, events.CallResponse{
			CallID:   s.ID,
			Status:   "failed",
			Message:  TargetOfflineMessage,
			TargetID: targets[0],
		})
		r.log.Info().Str("call", string(s.ID)).Str("target", string(targets[0])).Msg("target offline, call missed")
		return c, nil
	}

	out := r.commitNew(s)
	if s.IsGroup() {
		r.emitter.Emit(targets, events.GroupCallIncoming{
			CallID:     s.ID,
			GroupID:    s.GroupID,
			CallerID:   s.CallerID,
			CallerName: req.CallerName,
			Mode:       s.Mode,
		})
	} else {
		r.emitter.Emit(targets, events.IncomingCall{
			CallID:     s.ID,
			CallerID:   s.CallerID,
			CallerName: req.CallerName,
			Mode:       s.Mode,
			SignalData: req.Signal,
		})
	}
	r.log.Info().
		Str("call", string(s.ID)).
		Str("caller", string(s.CallerID)).
		Int("targets", len(targets)).
		Bool("group", s.IsGroup()).
		Msg("call ringing")
	return out, nil
}

// Accept answers a ringing call. In a group call it is the same as joining.
func (r *Relay) Accept(ctx context.Context, id domain.CallID, by domain.UserID, signal *webrtc.SessionDescription) (domain.CallSession, error) {
	const op = "calls.accept"
	if err := checkSDP(op, signal, webrtc.SDPTypeAnswer); err != nil {
		return domain.CallSession{}, err
	}
	c, err := r.lookup(op, id)
	if err != nil {
		return domain.CallSession{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.s.IsTarget(by) {
		return domain.CallSession{}, domain.Permission(op, "only a called user may accept")
	}
	if c.s.IsGroup() {
		return r.joinLocked(ctx, op, c, by, "")
	}
	if c.s.State != domain.CallRinging {
		return domain.CallSession{}, domain.Stale(op, "call is "+string(c.s.State))
	}

	now := r.now()
	if _, err := r.records.UpdateStatus(ctx, id, domain.CallStatusAnswered, now); err != nil {
		return domain.CallSession{}, domain.Persistence(op, err)
	}
	c.s.State = domain.CallAnswered
	c.s.AnsweredAt = &now
	c.s.Participants = domain.UniqueUsers(append(c.s.Participants, by))
	r.committed(c)

	r.emitter.Emit([]domain.UserID{c.s.CallerID}, events.CallAccepted{CallID: id, TargetID: by, Signal: signal})
	r.log.Info().Str("call", string(id)).Str("user", string(by)).Msg("call answered")
	return c.s.Clone(), nil
}

// Reject declines a ringing call. A direct call becomes Rejected; a group
// call only when every target declined.
func (r *Relay) Reject(ctx context.Context, id domain.CallID, by domain.UserID, reason string) (domain.CallSession, error) {
	const op = "calls.reject"
	if reason == "" {
		reason = DefaultRejectReason
	}
	c, err := r.lookup(op, id)
	if err != nil {
		return domain.CallSession{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.rejectLocked(ctx, op, c, by, reason)
}

func (r *Relay) rejectLocked(ctx context.Context, op string, c *call, by domain.UserID, reason string) (domain.CallSession, error) {
	id := c.s.ID
	if !c.s.IsTarget(by) {
		return domain.CallSession{}, domain.Permission(op, "only a called user may reject")
	}
	if c.s.State != domain.CallRinging {
		return domain.CallSession{}, domain.Stale(op, "call is "+string(c.s.State))
	}
	if domain.ContainsUser(c.s.Declined, by) {
		return domain.CallSession{}, domain.Stale(op, "already declined")
	}

	declined := append(append([]domain.UserID(nil), c.s.Declined...), by)
	allDeclined := len(declined) == len(c.s.Targets)
	now := r.now()
	if allDeclined {
		if _, err := r.records.UpdateStatus(ctx, id, domain.CallStatusRejected, now); err != nil {
			return domain.CallSession{}, domain.Persistence(op, err)
		}
		c.s.State = domain.CallRejected
		c.s.EndedAt = &now
	}
	c.s.Declined = declined
	r.committed(c)

	r.emitter.Emit([]domain.UserID{c.s.CallerID}, events.CallRejected{CallID: id, TargetID: by, Reason: reason})
	r.log.Info().Str("call", string(id)).Str("user", string(by)).Bool("final", allDeclined).Msg("call rejected")
	return c.s.Clone(), nil
}

// End hangs up. Ending a ringing call records it as missed; ending an
// answered one records its duration.
func (r *Relay) End(ctx context.Context, id domain.CallID, by domain.UserID) (domain.CallSession, error) {
	const op = "calls.end"
	c, err := r.lookup(op, id)
	if err != nil {
		return domain.CallSession{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.s.IsParty(by) {
		return domain.CallSession{}, domain.Permission(op, "not a party of the call")
	}
	if c.s.State.Terminal() {
		return domain.CallSession{}, domain.Stale(op, "call is "+string(c.s.State))
	}
	if c.s.IsGroup() && by != c.s.CallerID && !domain.ContainsUser(c.s.Participants, by) {
		// Members who never joined can only decline.
		if !domain.ContainsUser(c.s.Pending(), by) {
			return domain.CallSession{}, domain.Permission(op, "not in the call")
		}
		return r.rejectLocked(ctx, op, c, by, DefaultRejectReason)
	}

	reason := domain.EndCompleted
	if c.s.State == domain.CallRinging {
		reason = domain.EndCancelled
	}
	notify := domain.WithoutUser(c.s.Parties(), by)
	if err := r.finishLocked(ctx, op, c, reason); err != nil {
		return domain.CallSession{}, err
	}
	r.emitter.Emit(notify, events.CallEnded{CallID: id, EndedBy: by})
	r.log.Info().Str("call", string(id)).Str("user", string(by)).Str("reason", string(reason)).Msg("call ended")
	return c.s.Clone(), nil
}

// Disconnect handles a party dropping out without hanging up. An answered
// group call keeps going while two participants remain; otherwise the call
// ends and everyone left gets call-disconnected.
func (r *Relay) Disconnect(ctx context.Context, id domain.CallID, by domain.UserID) (domain.CallSession, error) {
	const op = "calls.disconnect"
	c, err := r.lookup(op, id)
	if err != nil {
		return domain.CallSession{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.s.IsParty(by) {
		return domain.CallSession{}, domain.Permission(op, "not a party of the call")
	}
	if c.s.State.Terminal() {
		return domain.CallSession{}, domain.Stale(op, "call is "+string(c.s.State))
	}

	if c.s.IsGroup() {
		inCall := domain.ContainsUser(c.s.Participants, by)
		remaining := domain.WithoutUser(c.s.Participants, by)
		switch {
		case !inCall && (c.s.State == domain.CallAnswered || len(c.s.Pending()) > 1):
			// A rung member went away; treat it as a silent decline.
			c.s.Declined = domain.UniqueUsers(append(c.s.Declined, by))
			r.committed(c)
			return c.s.Clone(), nil
		case inCall && c.s.State == domain.CallAnswered && len(remaining) >= 2:
			c.s.Participants = remaining
			r.committed(c)
			r.emitter.Emit(remaining, events.CallDisconnected{CallID: id, UserID: by})
			r.log.Info().Str("call", string(id)).Str("user", string(by)).Msg("participant left group call")
			return c.s.Clone(), nil
		}
	}

	notify := domain.WithoutUser(c.s.Parties(), by)
	if err := r.finishLocked(ctx, op, c, domain.EndDisconnected); err != nil {
		return domain.CallSession{}, err
	}
	r.emitter.Emit(notify, events.CallDisconnected{CallID: id, UserID: by})
	r.log.Info().Str("call", string(id)).Str("user", string(by)).Msg("call ended by disconnect")
	return c.s.Clone(), nil
}

// DisconnectUser runs Disconnect for every live call user takes part in.
func (r *Relay) DisconnectUser(ctx context.Context, user domain.UserID) []domain.CallID {
	var ended []domain.CallID
	for _, id := range r.LiveFor(user) {
		if _, err := r.Disconnect(ctx, id, user); err != nil {
			if domain.Kind(err) == domain.ErrPersistence {
				r.log.Error().Err(err).Str("call", string(id)).Str("user", string(user)).Msg("disconnect call")
			}
			continue
		}
		ended = append(ended, id)
	}
	return ended
}

// JoinGroupCall adds user to a live group call. The first join answers it.
func (r *Relay) JoinGroupCall(ctx context.Context, id domain.CallID, user domain.UserID, peerID string) (domain.CallSession, error) {
	const op = "calls.join"
	c, err := r.lookup(op, id)
	if err != nil {
		return domain.CallSession{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.joinLocked(ctx, op, c, user, peerID)
}

func (r *Relay) joinLocked(ctx context.Context, op string, c *call, user domain.UserID, peerID string) (domain.CallSession, error) {
	if !c.s.IsGroup() {
		return domain.CallSession{}, domain.Validation(op, "not a group call")
	}
	if c.s.State.Terminal() {
		return domain.CallSession{}, domain.Stale(op, "call is "+string(c.s.State))
	}
	if domain.ContainsUser(c.s.Participants, user) {
		return domain.CallSession{}, domain.Stale(op, "already in the call")
	}
	roster, err := r.groups.Get(ctx, c.s.GroupID)
	if err != nil {
		return domain.CallSession{}, domain.Persistence(op, err)
	}
	if !roster.Has(user) {
		return domain.CallSession{}, domain.Permission(op, "not a group member")
	}

	now := r.now()
	if c.s.State == domain.CallRinging {
		if _, err := r.records.UpdateStatus(ctx, c.s.ID, domain.CallStatusAnswered, now); err != nil {
			return domain.CallSession{}, domain.Persistence(op, err)
		}
	}
	if _, err := r.records.AddParticipant(ctx, c.s.ID, user); err != nil {
		return domain.CallSession{}, domain.Persistence(op, err)
	}

	others := c.s.Participants
	if c.s.State == domain.CallRinging {
		c.s.State = domain.CallAnswered
		c.s.AnsweredAt = &now
	}
	c.s.Participants = append(append([]domain.UserID(nil), others...), user)
	c.s.Declined = domain.WithoutUser(c.s.Declined, user)
	if !c.s.IsTarget(user) {
		c.s.Targets = append(c.s.Targets, user)
	}
	r.committed(c)

	r.emitter.Emit(others, events.UserJoinedCall{CallID: c.s.ID, GroupID: c.s.GroupID, UserID: user, PeerID: peerID})
	r.log.Info().Str("call", string(c.s.ID)).Str("user", string(user)).Msg("joined group call")
	return c.s.Clone(), nil
}

// RelayCandidate forwards an ICE candidate. Nothing is stored and nothing
// is retried; an offline peer simply misses it.
func (r *Relay) RelayCandidate(id domain.CallID, from, to domain.UserID, candidate webrtc.ICECandidateInit) (dispatch.Result, error) {
	const op = "calls.ice"
	if to == "" {
		return dispatch.Result{}, domain.Validation(op, "target is required")
	}
	if candidate.Candidate == "" {
		return dispatch.Result{}, domain.Validation(op, "candidate is empty")
	}
	res := r.emitter.Emit([]domain.UserID{to}, events.ICECandidate{CallID: id, Candidate: candidate, From: from})
	return res, nil
}

// Get returns a copy of a known session.
func (r *Relay) Get(id domain.CallID) (domain.CallSession, bool) {
	r.mu.Lock()
	c, ok := r.calls[id]
	r.mu.Unlock()
	if !ok {
		return domain.CallSession{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Clone(), true
}

// LiveFor lists non-terminal calls user is a party of.
func (r *Relay) LiveFor(user domain.UserID) []domain.CallID {
	var out []domain.CallID
	for _, c := range r.snapshot() {
		c.mu.Lock()
		if !c.s.State.Terminal() && c.s.IsParty(user) {
			out = append(out, c.s.ID)
		}
		c.mu.Unlock()
	}
	return out
}

// Live counts non-terminal calls.
func (r *Relay) Live() int {
	n := 0
	for _, c := range r.snapshot() {
		c.mu.Lock()
		if !c.s.State.Terminal() {
			n++
		}
		c.mu.Unlock()
	}
	return n
}

// Stop cancels pending evictions.
func (r *Relay) Stop() {
	for _, c := range r.snapshot() {
		c.mu.Lock()
		if c.evict != nil {
			c.evict.Stop()
		}
		c.mu.Unlock()
	}
}

func (r *Relay) snapshot() []*call {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*call, 0, len(r.calls))
	for _, c := range r.calls {
		all = append(all, c)
	}
	return all
}

func (r *Relay) finishLocked(ctx context.Context, op string, c *call, reason domain.EndReason) error {
	now := r.now()
	if c.s.State == domain.CallAnswered && c.s.AnsweredAt != nil {
		if _, err := r.records.EndCall(ctx, c.s.ID, now, now.Sub(*c.s.AnsweredAt)); err != nil {
			return domain.Persistence(op, err)
		}
	} else {
		if _, err := r.records.UpdateStatus(ctx, c.s.ID, domain.CallStatusMissed, now); err != nil {
			return domain.Persistence(op, err)
		}
	}
	c.s.State = domain.CallEnded
	c.s.EndReason = reason
	c.s.EndedAt = &now
	r.committed(c)
	return nil
}

func (r *Relay) lookup(op string, id domain.CallID) (*call, error) {
	if id == "" {
		return nil, domain.Validation(op, "call id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return nil, domain.NotFound(op, "unknown call "+string(id))
	}
	return c, nil
}

func (r *Relay) reachable(user domain.UserID) bool {
	_, ok := r.presence.Resolve(user)
	return ok
}

func (r *Relay) commitNew(s domain.CallSession) domain.CallSession {
	c := &call{s: s}
	c.mu.Lock()
	defer c.mu.Unlock()
	r.mu.Lock()
	r.calls[s.ID] = c
	r.mu.Unlock()
	r.committed(c)
	return c.s.Clone()
}

// committed runs after every in-memory transition with c.mu held.
func (r *Relay) committed(c *call) {
	if c.s.State.Terminal() && c.evict == nil {
		id := c.s.ID
		c.evict = time.AfterFunc(r.retention, func() { r.forget(id, c) })
	}
	if len(r.observers) == 0 {
		return
	}
	snap := c.s.Clone()
	for _, o := range r.observers {
		o.OnCallState(snap)
	}
}

func (r *Relay) forget(id domain.CallID, c *call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls[id] == c {
		delete(r.calls, id)
	}
}

func checkSDP(op string, sd *webrtc.SessionDescription, want webrtc.SDPType) error {
	if sd == nil {
		return nil
	}
	if sd.Type != want {
		return domain.Validation(op, "signal must be an "+want.String())
	}
	if sd.SDP == "" {
		return domain.Validation(op, "signal sdp is empty")
	}
	return nil
}
