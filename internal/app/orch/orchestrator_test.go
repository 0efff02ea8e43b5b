package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chathub/internal/adapters/memstore"
	"github.com/dkeye/Chathub/internal/app"
	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/coretest"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

const testGrace = 50 * time.Millisecond

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now moves forward one second per reading so consecutive transitions get
// distinct timestamps.
func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type harness struct {
	hub     *Orchestrator
	stores  core.Stores
	records *memstore.CallRecords
	rec     *dispatch.Recorder
	conns   map[domain.UserID]*coretest.Conn
	sess    map[domain.UserID]*core.Session
	seq     int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &steppingClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	stores := memstore.New(clock.Now)
	h := &harness{
		stores:  stores,
		records: stores.CallRecords.(*memstore.CallRecords),
		rec:     &dispatch.Recorder{},
		conns:   map[domain.UserID]*coretest.Conn{},
		sess:    map[domain.UserID]*core.Session{},
	}
	metrics := app.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, metrics.Register())
	h.hub = New(stores, Options{
		GracePeriod: testGrace,
		Clock:       clock.Now,
		Metrics:     metrics,
		Observers:   []dispatch.Observer{h.rec},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) connect(t *testing.T, user domain.UserID) *coretest.Conn {
	t.Helper()
	h.seq++
	c := coretest.NewConn(fmt.Sprintf("%s-%d", user, h.seq))
	s := core.NewSession(c)
	_, err := h.hub.RegisterConnection(s, user)
	require.NoError(t, err)
	h.conns[user] = c
	h.sess[user] = s
	return c
}

func (h *harness) submit(t *testing.T, user domain.UserID, kind string, payload any) (string, error) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	if s, ok := h.sess[user]; ok {
		return h.hub.SubmitFrom(context.Background(), s, kind, raw)
	}
	return h.hub.SubmitEvent(context.Background(), user, kind, raw)
}

func TestPresenceBroadcasts(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	h.connect(t, "bob")

	require.Eventually(t, func() bool { return len(a.Named(events.NameUserStatusChanged)) == 1 }, time.Second, 5*time.Millisecond)
	var ev events.UserStatusChanged
	require.NoError(t, a.Named(events.NameUserStatusChanged)[0].Decode(&ev))
	assert.Equal(t, domain.UserID("bob"), ev.UserID)
	assert.Equal(t, domain.StatusOnline, ev.Status)

	// Bob reconnects inside the grace period: alice hears nothing new.
	h.hub.OnDisconnect(h.sess["bob"])
	h.connect(t, "bob")
	time.Sleep(3 * testGrace)
	assert.Len(t, a.Named(events.NameUserStatusChanged), 1)

	// Bob leaves for good: exactly one offline.
	h.hub.OnDisconnect(h.sess["bob"])
	require.Eventually(t, func() bool { return len(a.Named(events.NameUserStatusChanged)) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * testGrace)
	frames := a.Named(events.NameUserStatusChanged)
	require.Len(t, frames, 2)
	require.NoError(t, frames[1].Decode(&ev))
	assert.Equal(t, domain.StatusOffline, ev.Status)
}

func TestSendMessageToOfflineUser(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")

	id, err := h.submit(t, "alice", KindSendMessage, map[string]any{
		"receiverId":  "bob",
		"messageType": "text",
		"content":     "hi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Equal(t, []string{
		events.NameNewConversation,
		events.NameReceiveMessage,
		events.NameUpdateLastMessage,
	}, a.Types())

	for _, name := range []string{events.NameNewConversation, events.NameUpdateLastMessage} {
		emits := h.rec.Named(name)
		require.Len(t, emits, 1)
		assert.Equal(t, []domain.UserID{"alice"}, emits[0].Result.Delivered)
		assert.Equal(t, []domain.UserID{"bob"}, emits[0].Result.Missed)
	}

	msg, err := h.stores.Messages.Get(context.Background(), domain.MessageID(id))
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)

	// Second message reuses the conversation.
	a.Reset()
	_, err = h.submit(t, "alice", KindSendMessage, map[string]any{"receiverId": "bob", "content": "again"})
	require.NoError(t, err)
	assert.Equal(t, []string{events.NameReceiveMessage, events.NameUpdateLastMessage}, a.Types())
}

func TestSendMessageIdentityComesFromConnection(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "alice")
	b := h.connect(t, "bob")

	_, err := h.submit(t, "alice", KindSendMessage, map[string]any{
		"senderId":   "mallory",
		"receiverId": "bob",
		"content":    "hi",
	})
	require.NoError(t, err)
	var got events.ReceiveMessage
	require.NoError(t, b.Named(events.NameReceiveMessage)[0].Decode(&got))
	assert.Equal(t, domain.UserID("alice"), got.SenderID)
}

func TestValidationErrorsAreNotBroadcast(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "alice")
	b := h.connect(t, "bob")

	_, err := h.submit(t, "alice", KindSendMessage, map[string]any{"receiverId": "bob"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.hub.SubmitEvent(context.Background(), "alice", KindSendMessage, json.RawMessage(`{"receiverId":`))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.submit(t, "alice", "teleport", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, b.Named(events.NameReceiveMessage))
	assert.Empty(t, h.rec.Named(events.NameReceiveMessage))
}

func TestRevokeAndMarkMessage(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindSendMessage, map[string]any{"receiverId": "bob", "content": "oops"})
	require.NoError(t, err)

	_, err = h.submit(t, "bob", KindRevokeMessage, map[string]any{"messageId": id})
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = h.submit(t, "bob", KindMessageSeen, map[string]any{"messageId": id})
	require.NoError(t, err)
	frames := a.Named(events.NameMessageStatusUpdated)
	require.Len(t, frames, 1)
	var st events.MessageStatusUpdated
	require.NoError(t, frames[0].Decode(&st))
	assert.Equal(t, domain.MessageSeen, st.Status)

	_, err = h.submit(t, "alice", KindRevokeMessage, map[string]any{"messageId": id})
	require.NoError(t, err)
	assert.Len(t, a.Named(events.NameMessageRevoked), 1)
	assert.Len(t, b.Named(events.NameMessageRevoked), 1)
}

func TestFriendRequestFlow(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")

	id, err := h.submit(t, "alice", KindSendFriendRequest, map[string]any{"receiverId": "bob", "message": "hey"})
	require.NoError(t, err)
	require.Len(t, b.Named(events.NameNewFriendRequest), 1)

	_, err = h.submit(t, "alice", KindRespondFriendRequest, map[string]any{"requestId": id, "status": "accepted"})
	assert.ErrorIs(t, err, domain.ErrPermission, "only the receiver answers")

	_, err = h.submit(t, "bob", KindRespondFriendRequest, map[string]any{"requestId": id, "status": "accepted"})
	require.NoError(t, err)
	assert.Len(t, a.Named(events.NameFriendRequestResponse), 1)
	assert.Len(t, b.Named(events.NameFriendRequestResponse), 1)
	var nf events.NewFriend
	require.NoError(t, a.Named(events.NameNewFriend)[0].Decode(&nf))
	assert.Equal(t, domain.UserID("bob"), nf.FriendID)

	_, err = h.submit(t, "bob", KindRespondFriendRequest, map[string]any{"requestId": id, "status": "rejected"})
	assert.ErrorIs(t, err, domain.ErrStaleState)

	_, err = h.submit(t, "bob", KindRespondFriendRequest, map[string]any{"requestId": "missing", "status": "rejected"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetSentFriendRequests(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindSendFriendRequest, map[string]any{"receiverId": "bob"})
	require.NoError(t, err)
	_, err = h.submit(t, "alice", KindSendFriendRequest, map[string]any{"receiverId": "carol"})
	require.NoError(t, err)

	_, err = h.submit(t, "alice", KindGetSentFriendRequests, map[string]any{"userId": "bob"})
	require.NoError(t, err)
	frames := a.Named(events.NameSentFriendRequests)
	require.Len(t, frames, 1)
	var sent events.SentFriendRequests
	require.NoError(t, frames[0].Decode(&sent))
	require.Len(t, sent.Requests, 2)
	assert.Equal(t, domain.FriendRequestID(id), sent.Requests[0].ID)
	assert.Equal(t, domain.UserID("carol"), sent.Requests[1].ReceiverID)
	assert.Empty(t, b.Named(events.NameSentFriendRequests))
}

func TestCancelFriendRequest(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "alice")
	b := h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindSendFriendRequest, map[string]any{"receiverId": "bob"})
	require.NoError(t, err)

	_, err = h.submit(t, "alice", KindCancelFriendRequest, map[string]any{"requestId": id})
	require.NoError(t, err)
	require.Len(t, b.Named(events.NameFriendRequestCancelled), 1)
}

func TestVideoCallEndToEnd(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")

	id, err := h.submit(t, "alice", KindCallUser, map[string]any{
		"targetId":   "bob",
		"mediaType":  "video",
		"signalData": webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"},
	})
	require.NoError(t, err)
	incoming := b.Named(events.NameIncomingCall)
	require.Len(t, incoming, 1)
	var ic events.IncomingCall
	require.NoError(t, incoming[0].Decode(&ic))
	assert.Equal(t, domain.CallID(id), ic.CallID)
	assert.Contains(t, h.sess["alice"].Channels(), core.CallChannel(ic.CallID))

	_, err = h.submit(t, "bob", KindCallAccepted, map[string]any{
		"callId": id,
		"signal": webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"},
	})
	require.NoError(t, err)
	require.Len(t, a.Named(events.NameCallAccepted), 1)
	assert.Contains(t, h.sess["bob"].Channels(), core.CallChannel(ic.CallID))

	_, err = h.submit(t, "bob", KindEndCall, map[string]any{"callId": id})
	require.NoError(t, err)
	require.Len(t, a.Named(events.NameCallEnded), 1)
	assert.NotContains(t, h.sess["bob"].Channels(), core.CallChannel(ic.CallID))

	s, ok := h.hub.Calls.Get(domain.CallID(id))
	require.True(t, ok)
	assert.Equal(t, domain.CallEnded, s.State)
	require.NotNil(t, s.EndedAt)
	assert.True(t, s.EndedAt.After(s.StartedAt))

	rec, ok := h.records.Get(domain.CallID(id))
	require.True(t, ok)
	require.NotNil(t, rec.EndTime)
	assert.True(t, rec.EndTime.After(rec.StartTime))
	assert.Positive(t, rec.Duration)

	// Terminal: late answers are stale and the record does not move.
	before := rec
	_, err = h.submit(t, "bob", KindCallAccepted, map[string]any{"callId": id})
	assert.ErrorIs(t, err, domain.ErrStaleState)
	_, err = h.submit(t, "bob", KindCallRejected, map[string]any{"callId": id})
	assert.ErrorIs(t, err, domain.ErrStaleState)
	after, _ := h.records.Get(domain.CallID(id))
	assert.Equal(t, before, after)
}

func TestCallToOfflineUser(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")

	id, err := h.submit(t, "alice", KindCallUser, map[string]any{"targetId": "bob", "mediaType": "audio"})
	require.NoError(t, err)
	require.Len(t, a.Named(events.NameCallResponse), 1)
	assert.Empty(t, h.rec.Named(events.NameIncomingCall))
	assert.NotContains(t, h.sess["alice"].Channels(), core.CallChannel(domain.CallID(id)))

	rec, _ := h.records.Get(domain.CallID(id))
	assert.Equal(t, domain.CallStatusMissed, rec.Status)
}

func TestOfflineMaturityEndsCalls(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindCallUser, map[string]any{"targetId": "bob", "mediaType": "audio"})
	require.NoError(t, err)
	_, err = h.submit(t, "bob", KindCallAccepted, map[string]any{"callId": id})
	require.NoError(t, err)

	h.hub.OnDisconnect(h.sess["bob"])
	require.Eventually(t, func() bool { return len(a.Named(events.NameCallDisconnected)) == 1 }, time.Second, 5*time.Millisecond)
	s, _ := h.hub.Calls.Get(domain.CallID(id))
	assert.Equal(t, domain.EndDisconnected, s.EndReason)
}

func TestReconnectKeepsCall(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "alice")
	h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindCallUser, map[string]any{"targetId": "bob", "mediaType": "audio"})
	require.NoError(t, err)
	_, err = h.submit(t, "bob", KindCallAccepted, map[string]any{"callId": id})
	require.NoError(t, err)

	h.hub.OnDisconnect(h.sess["bob"])
	h.connect(t, "bob")
	time.Sleep(3 * testGrace)

	s, _ := h.hub.Calls.Get(domain.CallID(id))
	assert.Equal(t, domain.CallAnswered, s.State)
	assert.Contains(t, h.sess["bob"].Channels(), core.CallChannel(domain.CallID(id)))
}

func TestLateOfflineChangeKeepsCallOfReconnectedUser(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	h.connect(t, "bob")
	id, err := h.submit(t, "alice", KindCallUser, map[string]any{"targetId": "bob", "mediaType": "audio"})
	require.NoError(t, err)
	_, err = h.submit(t, "bob", KindCallAccepted, map[string]any{"callId": id})
	require.NoError(t, err)

	h.hub.onPresence(presence.Change{User: "bob", Status: domain.StatusOffline, At: time.Now()})

	s, _ := h.hub.Calls.Get(domain.CallID(id))
	assert.Equal(t, domain.CallAnswered, s.State)
	assert.Empty(t, a.Named(events.NameCallDisconnected))
}

func TestICECandidateRelay(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "alice")
	b := h.connect(t, "bob")

	_, err := h.submit(t, "alice", KindICECandidate, map[string]any{
		"targetId":  "bob",
		"candidate": map[string]any{"candidate": "candidate:1 1 UDP 1 10.0.0.1 9 typ host", "sdpMid": "0"},
	})
	require.NoError(t, err)
	frames := b.Named(events.NameICECandidate)
	require.Len(t, frames, 1)
	var ic events.ICECandidate
	require.NoError(t, frames[0].Decode(&ic))
	assert.Equal(t, domain.UserID("alice"), ic.From)

	_, err = h.submit(t, "alice", KindICECandidate, map[string]any{"targetId": "bob"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGroupFlow(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")
	c := h.connect(t, "carol")

	gid, err := h.submit(t, "alice", KindCreateGroup, map[string]any{"name": "team", "members": []string{"bob", "carol"}})
	require.NoError(t, err)
	for _, conn := range []*coretest.Conn{a, b, c} {
		assert.Len(t, conn.Named(events.NameNewGroupCreated), 1)
		assert.Len(t, conn.Named(events.NameNewConversation), 1)
	}

	g, err := h.stores.Groups.Get(context.Background(), domain.GroupID(gid))
	require.NoError(t, err)
	_, err = h.submit(t, "bob", KindSendMessage, map[string]any{"conversationId": g.ConversationID, "content": "hello team"})
	require.NoError(t, err)
	assert.Len(t, c.Named(events.NameReceiveMessage), 1)

	_, err = h.submit(t, "dave", KindSendMessage, map[string]any{"conversationId": g.ConversationID, "content": "let me in"})
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = h.submit(t, "alice", KindChangeRole, map[string]any{"groupId": gid, "memberId": "bob", "role": "admin"})
	require.NoError(t, err)
	assert.Len(t, c.Named(events.NameMemberRoleChanged), 2)

	_, err = h.submit(t, "carol", KindLeaveGroup, map[string]any{"groupId": gid})
	require.NoError(t, err)
	assert.Len(t, c.Named(events.NameRemovedFromGroup), 1)
	assert.Len(t, a.Named(events.NameMemberRemovedFromGroup), 1)
	assert.Empty(t, c.Named(events.NameMemberRemovedFromGroup))

	_, err = h.submit(t, "carol", KindUpdateGroup, map[string]any{"groupId": gid, "updateData": map[string]any{"name": "x"}})
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestGroupCallFlow(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "alice")
	b := h.connect(t, "bob")
	h.connect(t, "carol")
	gid, err := h.submit(t, "alice", KindCreateGroup, map[string]any{"name": "team", "members": []string{"bob", "carol"}})
	require.NoError(t, err)

	_, err = h.submit(t, "alice", KindGroupCallStart, map[string]any{"mediaType": "audio"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	id, err := h.submit(t, "alice", KindGroupCallStart, map[string]any{"groupId": gid, "mediaType": "audio"})
	require.NoError(t, err)
	require.Len(t, b.Named(events.NameGroupCallIncoming), 1)

	_, err = h.submit(t, "bob", KindJoinGroupCall, map[string]any{"callId": id, "peerId": "p-bob"})
	require.NoError(t, err)
	require.Len(t, a.Named(events.NameUserJoinedCall), 1)
	assert.Contains(t, h.sess["bob"].Channels(), core.CallChannel(domain.CallID(id)))
}

func TestRegisterConnectionGuards(t *testing.T) {
	h := newHarness(t)
	s := core.NewSession(coretest.NewConn("x"))
	_, err := h.hub.RegisterConnection(s, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.hub.RegisterConnection(s, "alice")
	require.NoError(t, err)
	_, err = h.hub.RegisterConnection(s, "bob")
	assert.ErrorIs(t, err, domain.ErrPermission)

	assert.True(t, h.hub.Heartbeat(s))
	_, err = h.hub.SubmitFrom(context.Background(), core.NewSession(coretest.NewConn("y")), KindSendMessage, nil)
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestInboundMetricsFoldUnknownKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := app.NewMetrics(reg)
	require.NoError(t, metrics.Register())
	hub := New(memstore.New(nil), Options{Metrics: metrics})

	for _, kind := range []string{"x1", "x2", "x3"} {
		_, err := hub.SubmitEvent(context.Background(), "alice", kind, json.RawMessage(`{}`))
		require.Error(t, err)
	}
	_, err := hub.SubmitEvent(context.Background(), "alice", KindSendFriendRequest, json.RawMessage(`{"receiverId":"bob"}`))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var series []string
	for _, f := range families {
		if f.GetName() != "chathub_inbound_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			var kind, code string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "kind":
					kind = l.GetValue()
				case "code":
					code = l.GetValue()
				}
			}
			series = append(series, fmt.Sprintf("%s/%s=%v", kind, code, m.GetCounter().GetValue()))
		}
	}
	assert.ElementsMatch(t, []string{"unknown/validation=3", "sendFriendRequest/ok=1"}, series)
}
