package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/Chathub/internal/adapters/memstore"
	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/core/coretest"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
	"github.com/dkeye/Chathub/internal/mocks"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	relay    *Relay
	records  *memstore.CallRecords
	groups   *memstore.Groups
	resolver *coretest.Resolver
	clock    *fakeClock
	conns    map[domain.UserID]*coretest.Conn
}

func newFixture(t *testing.T, online ...domain.UserID) *fixture {
	t.Helper()
	f := &fixture{
		records:  memstore.NewCallRecords(),
		resolver: coretest.NewResolver(),
		clock:    newFakeClock(),
		conns:    map[domain.UserID]*coretest.Conn{},
	}
	f.groups = memstore.NewGroups(f.clock.Now, nil)
	for _, u := range online {
		f.connect(u)
	}
	f.relay = NewRelay(f.records, f.groups, f.resolver, dispatch.New(f.resolver), Options{Clock: f.clock.Now})
	t.Cleanup(f.relay.Stop)
	return f
}

func (f *fixture) connect(u domain.UserID) *coretest.Conn {
	c := coretest.NewConn(string(u) + "-conn")
	f.conns[u] = c
	f.resolver.Set(u, c)
	return c
}

func offer() *webrtc.SessionDescription {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}
}

func answer() *webrtc.SessionDescription {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}
}

func (f *fixture) ring(t *testing.T, caller, target domain.UserID) domain.CallSession {
	t.Helper()
	s, err := f.relay.Initiate(context.Background(), InitiateRequest{
		CallerID:  caller,
		TargetIDs: []domain.UserID{target},
		Mode:      domain.CallVideo,
		Signal:    offer(),
	})
	require.NoError(t, err)
	return s
}

func TestInitiateOfflineTargetIsMissed(t *testing.T) {
	f := newFixture(t, "alice")

	s, err := f.relay.Initiate(context.Background(), InitiateRequest{
		CallerID:  "alice",
		TargetIDs: []domain.UserID{"bob"},
		Mode:      domain.CallAudio,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CallEnded, s.State)
	assert.Equal(t, domain.EndMissed, s.EndReason)

	resp := f.conns["alice"].Named(events.NameCallResponse)
	require.Len(t, resp, 1)
	var got events.CallResponse
	require.NoError(t, resp[0].Decode(&got))
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, TargetOfflineMessage, got.Message)
	assert.Equal(t, domain.UserID("bob"), got.TargetID)

	rec, ok := f.records.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, domain.CallStatusMissed, rec.Status)

	_, err = f.relay.Accept(context.Background(), s.ID, "bob", nil)
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestCallAnsweredThenEnded(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	s := f.ring(t, "alice", "bob")

	incoming := f.conns["bob"].Named(events.NameIncomingCall)
	require.Len(t, incoming, 1)
	var ic events.IncomingCall
	require.NoError(t, incoming[0].Decode(&ic))
	assert.Equal(t, s.ID, ic.CallID)
	assert.Equal(t, domain.CallVideo, ic.Mode)
	require.NotNil(t, ic.SignalData)
	assert.Equal(t, webrtc.SDPTypeOffer, ic.SignalData.Type)

	f.clock.Advance(2 * time.Second)
	s, err := f.relay.Accept(ctx, s.ID, "bob", answer())
	require.NoError(t, err)
	assert.Equal(t, domain.CallAnswered, s.State)
	require.Len(t, f.conns["alice"].Named(events.NameCallAccepted), 1)

	f.clock.Advance(3 * time.Second)
	s, err = f.relay.End(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, s.State)
	assert.Equal(t, domain.EndCompleted, s.EndReason)

	ended := f.conns["bob"].Named(events.NameCallEnded)
	require.Len(t, ended, 1)
	var ce events.CallEnded
	require.NoError(t, ended[0].Decode(&ce))
	assert.Equal(t, domain.UserID("alice"), ce.EndedBy)
	assert.Empty(t, f.conns["alice"].Named(events.NameCallEnded))

	rec, _ := f.records.Get(s.ID)
	assert.Equal(t, domain.CallStatusAnswered, rec.Status)
	assert.Equal(t, int64(3), rec.Duration)
	require.NotNil(t, rec.EndTime)

	_, err = f.relay.End(ctx, s.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestAcceptGuards(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	s := f.ring(t, "alice", "bob")

	_, err := f.relay.Accept(ctx, s.ID, "carol", nil)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = f.relay.Accept(ctx, s.ID, "alice", nil)
	assert.ErrorIs(t, err, domain.ErrPermission, "the caller cannot accept")

	_, err = f.relay.Accept(ctx, "nope", "bob", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.relay.Accept(ctx, s.ID, "bob", offer())
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, _ := f.relay.Get(s.ID)
	assert.Equal(t, domain.CallRinging, got.State, "failed operations leave the state alone")

	_, err = f.relay.Accept(ctx, s.ID, "bob", nil)
	require.NoError(t, err)
	_, err = f.relay.Accept(ctx, s.ID, "bob", nil)
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestRejectDefaultsReason(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	s := f.ring(t, "alice", "bob")

	s, err := f.relay.Reject(ctx, s.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CallRejected, s.State)

	frames := f.conns["alice"].Named(events.NameCallRejected)
	require.Len(t, frames, 1)
	var cr events.CallRejected
	require.NoError(t, frames[0].Decode(&cr))
	assert.Equal(t, DefaultRejectReason, cr.Reason)
	assert.Equal(t, domain.UserID("bob"), cr.TargetID)

	rec, _ := f.records.Get(s.ID)
	assert.Equal(t, domain.CallStatusRejected, rec.Status)

	_, err = f.relay.Accept(ctx, s.ID, "bob", nil)
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestEndWhileRingingIsMissed(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	s := f.ring(t, "alice", "bob")

	s, err := f.relay.End(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.EndCancelled, s.EndReason)
	rec, _ := f.records.Get(s.ID)
	assert.Equal(t, domain.CallStatusMissed, rec.Status)
	assert.Equal(t, int64(0), rec.Duration)
	require.Len(t, f.conns["bob"].Named(events.NameCallEnded), 1)
}

func TestDisconnectNotifiesRemainingParty(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	s := f.ring(t, "alice", "bob")
	_, err := f.relay.Accept(ctx, s.ID, "bob", nil)
	require.NoError(t, err)

	ended := f.relay.DisconnectUser(ctx, "bob")
	assert.Equal(t, []domain.CallID{s.ID}, ended)

	frames := f.conns["alice"].Named(events.NameCallDisconnected)
	require.Len(t, frames, 1)
	var cd events.CallDisconnected
	require.NoError(t, frames[0].Decode(&cd))
	assert.Equal(t, domain.UserID("bob"), cd.UserID)

	got, _ := f.relay.Get(s.ID)
	assert.Equal(t, domain.EndDisconnected, got.EndReason)
	assert.Empty(t, f.relay.LiveFor("alice"))
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCallRecordStore(ctrl)
	resolver := coretest.NewResolver()
	caller, target := coretest.NewConn("a"), coretest.NewConn("b")
	resolver.Set("alice", caller)
	resolver.Set("bob", target)
	r := NewRelay(store, nil, resolver, dispatch.New(resolver), Options{NewID: func() domain.CallID { return "call-1" }})
	t.Cleanup(r.Stop)
	ctx := context.Background()

	store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec domain.CallRecord) (domain.CallRecord, error) { return rec, nil })
	_, err := r.Initiate(ctx, InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"bob"}, Mode: domain.CallAudio})
	require.NoError(t, err)

	store.EXPECT().
		UpdateStatus(gomock.Any(), domain.CallID("call-1"), domain.CallStatusAnswered, gomock.Any()).
		Return(domain.CallRecord{}, errors.New("db down"))
	_, err = r.Accept(ctx, "call-1", "bob", nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	s, _ := r.Get("call-1")
	assert.Equal(t, domain.CallRinging, s.State)
	assert.Empty(t, caller.Named(events.NameCallAccepted))
}

func TestInitiateCreateFailureCommitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCallRecordStore(ctrl)
	resolver := coretest.NewResolver()
	target := coretest.NewConn("b")
	resolver.Set("bob", target)
	r := NewRelay(store, nil, resolver, dispatch.New(resolver), Options{NewID: func() domain.CallID { return "call-1" }})
	t.Cleanup(r.Stop)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.CallRecord{}, errors.New("db down"))
	_, err := r.Initiate(context.Background(), InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"bob"}, Mode: domain.CallAudio})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, ok := r.Get("call-1")
	assert.False(t, ok)
	assert.Empty(t, target.Frames())
}

func TestInitiateValidation(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	cases := []struct {
		name string
		req  InitiateRequest
	}{
		{"no caller", InitiateRequest{TargetIDs: []domain.UserID{"bob"}, Mode: domain.CallAudio}},
		{"bad mode", InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"bob"}, Mode: "hologram"}},
		{"self call", InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"alice"}, Mode: domain.CallAudio}},
		{"answer as offer", InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"bob"}, Mode: domain.CallAudio, Signal: answer()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.relay.Initiate(ctx, tc.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestGroupCall(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "team", "alice", []domain.UserID{"bob", "carol", "dave"})
	require.NoError(t, err)

	_, err = f.relay.Initiate(ctx, InitiateRequest{CallerID: "mallory", GroupID: g.ID, Mode: domain.CallAudio})
	assert.ErrorIs(t, err, domain.ErrPermission)

	s, err := f.relay.Initiate(ctx, InitiateRequest{CallerID: "alice", GroupID: g.ID, Mode: domain.CallAudio})
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, s.State, "group calls keep ringing with offline members")
	assert.ElementsMatch(t, []domain.UserID{"bob", "carol", "dave"}, s.Targets)
	assert.Len(t, f.conns["bob"].Named(events.NameGroupCallIncoming), 1)
	assert.Len(t, f.conns["carol"].Named(events.NameGroupCallIncoming), 1)

	_, err = f.relay.Reject(ctx, s.ID, "carol", "busy")
	require.NoError(t, err)
	got, _ := f.relay.Get(s.ID)
	assert.Equal(t, domain.CallRinging, got.State, "one decline does not reject a group call")

	f.clock.Advance(time.Second)
	s, err = f.relay.JoinGroupCall(ctx, s.ID, "bob", "peer-bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallAnswered, s.State)
	joined := f.conns["alice"].Named(events.NameUserJoinedCall)
	require.Len(t, joined, 1)
	var uj events.UserJoinedCall
	require.NoError(t, joined[0].Decode(&uj))
	assert.Equal(t, domain.UserID("bob"), uj.UserID)
	assert.Equal(t, "peer-bob", uj.PeerID)

	_, err = f.relay.JoinGroupCall(ctx, s.ID, "mallory", "")
	assert.ErrorIs(t, err, domain.ErrPermission)
	_, err = f.relay.JoinGroupCall(ctx, s.ID, "bob", "")
	assert.ErrorIs(t, err, domain.ErrStaleState)

	rec, _ := f.records.Get(s.ID)
	assert.Equal(t, domain.CallStatusAnswered, rec.Status)

	// Carol changes her mind and joins; alice leaving keeps the call alive.
	_, err = f.relay.JoinGroupCall(ctx, s.ID, "carol", "")
	require.NoError(t, err)
	s, err = f.relay.Disconnect(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallAnswered, s.State)
	assert.ElementsMatch(t, []domain.UserID{"bob", "carol"}, s.Participants)

	s, err = f.relay.Disconnect(ctx, s.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, s.State)
	require.Len(t, f.conns["carol"].Named(events.NameCallDisconnected), 2)
}

func TestGroupCallEndByMemberWhoNeverJoined(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "team", "alice", []domain.UserID{"bob", "carol", "dave"})
	require.NoError(t, err)
	s, err := f.relay.Initiate(ctx, InitiateRequest{CallerID: "alice", GroupID: g.ID, Mode: domain.CallAudio})
	require.NoError(t, err)

	_, err = f.relay.Reject(ctx, s.ID, "dave", "")
	require.NoError(t, err)
	_, err = f.relay.End(ctx, s.ID, "dave")
	assert.ErrorIs(t, err, domain.ErrPermission, "a declined member cannot end the call")

	// Hanging up while still ringing declines for that member only.
	s, err = f.relay.End(ctx, s.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, s.State)
	assert.ElementsMatch(t, []domain.UserID{"dave", "carol"}, s.Declined)
	assert.Len(t, f.conns["alice"].Named(events.NameCallRejected), 2)
	assert.Empty(t, f.conns["bob"].Named(events.NameCallEnded))

	_, err = f.relay.JoinGroupCall(ctx, s.ID, "bob", "")
	require.NoError(t, err)
	before, _ := f.records.Get(s.ID)

	g, err = f.groups.AddMember(ctx, g.ID, "erin", "alice")
	require.NoError(t, err)
	_, err = f.relay.End(ctx, s.ID, "erin")
	assert.ErrorIs(t, err, domain.ErrPermission)

	got, ok := f.relay.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, domain.CallAnswered, got.State)
	assert.Equal(t, []domain.UserID{"alice", "bob"}, got.Participants)
	after, _ := f.records.Get(s.ID)
	assert.Equal(t, before, after)
	assert.Empty(t, f.conns["alice"].Named(events.NameCallEnded))
}

func TestGroupCallEndByPendingTargetAfterAnswer(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "team", "carol", []domain.UserID{"alice", "bob"})
	require.NoError(t, err)
	s, err := f.relay.Initiate(ctx, InitiateRequest{CallerID: "carol", GroupID: g.ID, Mode: domain.CallAudio})
	require.NoError(t, err)
	_, err = f.relay.JoinGroupCall(ctx, s.ID, "alice", "")
	require.NoError(t, err)

	_, err = f.relay.Reject(ctx, s.ID, "bob", "")
	assert.ErrorIs(t, err, domain.ErrStaleState)
	_, err = f.relay.End(ctx, s.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrStaleState)

	got, _ := f.relay.Get(s.ID)
	assert.Equal(t, domain.CallAnswered, got.State)
	assert.Equal(t, []domain.UserID{"carol", "alice"}, got.Participants)
	assert.Empty(t, f.conns["alice"].Named(events.NameCallEnded))

	s, err = f.relay.End(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, s.State)
	assert.Len(t, f.conns["carol"].Named(events.NameCallEnded), 1)
}

func TestGroupCallRejectedByEveryone(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "team", "alice", []domain.UserID{"bob", "carol"})
	require.NoError(t, err)
	s, err := f.relay.Initiate(ctx, InitiateRequest{CallerID: "alice", GroupID: g.ID, Mode: domain.CallVideo})
	require.NoError(t, err)

	_, err = f.relay.Reject(ctx, s.ID, "bob", "")
	require.NoError(t, err)
	_, err = f.relay.Reject(ctx, s.ID, "bob", "")
	assert.ErrorIs(t, err, domain.ErrStaleState)
	s, err = f.relay.Reject(ctx, s.ID, "carol", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CallRejected, s.State)
	assert.Len(t, f.conns["alice"].Named(events.NameCallRejected), 2)
}

func TestRelayCandidate(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	line := uint16(0)
	cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 UDP 2130706431 10.0.0.1 5000 typ host", SDPMLineIndex: &line}

	res, err := f.relay.RelayCandidate("c1", "alice", "bob", cand)
	require.NoError(t, err)
	assert.True(t, res.SentTo("bob"))

	frames := f.conns["bob"].Named(events.NameICECandidate)
	require.Len(t, frames, 1)
	var ic events.ICECandidate
	require.NoError(t, frames[0].Decode(&ic))
	assert.Equal(t, domain.UserID("alice"), ic.From)
	assert.Equal(t, cand.Candidate, ic.Candidate.Candidate)

	res, err = f.relay.RelayCandidate("c1", "alice", "ghost", cand)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"ghost"}, res.Missed)

	_, err = f.relay.RelayCandidate("c1", "alice", "bob", webrtc.ICECandidateInit{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTerminalSessionsAreEvicted(t *testing.T) {
	resolver := coretest.NewResolver()
	resolver.Set("alice", coretest.NewConn("a"))
	resolver.Set("bob", coretest.NewConn("b"))
	r := NewRelay(memstore.NewCallRecords(), nil, resolver, dispatch.New(resolver), Options{Retention: 20 * time.Millisecond})
	t.Cleanup(r.Stop)
	ctx := context.Background()

	s, err := r.Initiate(ctx, InitiateRequest{CallerID: "alice", TargetIDs: []domain.UserID{"bob"}, Mode: domain.CallAudio})
	require.NoError(t, err)
	_, err = r.Reject(ctx, s.ID, "bob", "")
	require.NoError(t, err)

	_, err = r.Accept(ctx, s.ID, "bob", nil)
	assert.ErrorIs(t, err, domain.ErrStaleState)
	require.Eventually(t, func() bool {
		_, ok := r.Get(s.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
	_, err = r.Accept(ctx, s.ID, "bob", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
