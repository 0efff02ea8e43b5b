package orch

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/calls"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

// Inbound request kinds.
const (
	KindSendMessage           = "sendMessage"
	KindRevokeMessage         = "revokeMessage"
	KindMessageDelivered      = "messageDelivered"
	KindMessageSeen           = "messageSeen"
	KindSendFriendRequest     = "sendFriendRequest"
	KindRespondFriendRequest  = "respondToFriendRequest"
	KindCancelFriendRequest   = "cancelFriendRequest"
	KindGetSentFriendRequests = "getSentFriendRequests"
	KindCreateGroup           = "createGroup"
	KindAddMember             = "addMemberToGroup"
	KindRemoveMember          = "removeMemberFromGroup"
	KindLeaveGroup            = "leaveGroup"
	KindChangeRole            = "changeRoleMember"
	KindUpdateGroup           = "updateGroup"
	KindCallUser              = "call-user"
	KindGroupCallStart        = "group-call-start"
	KindCallAccepted          = "call-accepted"
	KindCallRejected          = "call-rejected"
	KindEndCall               = "end-call"
	KindDisconnectCall        = "disconnect-call"
	KindICECandidate          = "ice-candidate"
	KindJoinGroupCall         = "join-group-call"
)

var kinds = map[string]struct{}{
	KindSendMessage: {}, KindRevokeMessage: {}, KindMessageDelivered: {}, KindMessageSeen: {},
	KindSendFriendRequest: {}, KindRespondFriendRequest: {}, KindCancelFriendRequest: {},
	KindGetSentFriendRequests: {},
	KindCreateGroup:           {}, KindAddMember: {}, KindRemoveMember: {}, KindLeaveGroup: {},
	KindChangeRole: {}, KindUpdateGroup: {},
	KindCallUser: {}, KindGroupCallStart: {}, KindCallAccepted: {}, KindCallRejected: {},
	KindEndCall: {}, KindDisconnectCall: {}, KindICECandidate: {}, KindJoinGroupCall: {},
}

func knownKind(kind string) bool {
	_, ok := kinds[kind]
	return ok
}

type SendMessageRequest struct {
	ReceiverID     domain.UserID         `json:"receiverId"`
	ConversationID domain.ConversationID `json:"conversationId"`
	MessageType    domain.MessageType    `json:"messageType"`
	Content        string                `json:"content"`
	File           *domain.FileMeta      `json:"fileMeta"`
	Mentions       []domain.UserID       `json:"mentions"`
}

type messageRef struct {
	MessageID domain.MessageID `json:"messageId"`
}

type friendRequestBody struct {
	ReceiverID domain.UserID `json:"receiverId"`
	Message    string        `json:"message"`
}

type friendResponseBody struct {
	RequestID domain.FriendRequestID     `json:"requestId"`
	Status    domain.FriendRequestStatus `json:"status"`
}

type createGroupBody struct {
	Name    string          `json:"name"`
	Members []domain.UserID `json:"members"`
}

type memberBody struct {
	GroupID  domain.GroupID `json:"groupId"`
	MemberID domain.UserID  `json:"memberId"`
	Role     domain.Role    `json:"role"`
}

type updateGroupBody struct {
	GroupID    domain.GroupID     `json:"groupId"`
	UpdateData domain.GroupUpdate `json:"updateData"`
}

type callUserBody struct {
	TargetID   domain.UserID              `json:"targetId"`
	TargetIDs  []domain.UserID            `json:"targetIds"`
	GroupID    domain.GroupID             `json:"groupId"`
	CallerName string                     `json:"callerName"`
	MediaType  domain.CallMode            `json:"mediaType"`
	SignalData *webrtc.SessionDescription `json:"signalData"`
}

type callRefBody struct {
	CallID domain.CallID              `json:"callId"`
	Signal *webrtc.SessionDescription `json:"signal"`
	Reason string                     `json:"reason"`
	PeerID string                     `json:"peerId"`
}

type iceBody struct {
	CallID    domain.CallID            `json:"callId"`
	TargetID  domain.UserID            `json:"targetId"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}

// SubmitEvent runs one inbound request on behalf of user. The returned id
// names the resource the request created or touched, if any. Identity is
// always the caller's; ids in the payload never override it.
func (o *Orchestrator) SubmitEvent(ctx context.Context, user domain.UserID, kind string, payload json.RawMessage) (string, error) {
	id, err := o.submit(ctx, user, kind, payload)
	code := "ok"
	if err != nil {
		code = domain.Code(err)
		ev := log.Warn()
		if code == "persistence" || code == "internal" {
			ev = log.Error()
		}
		ev.Err(err).
			Str("module", "app.orch").
			Str("user", string(user)).
			Str("kind", kind).
			Msg("request failed")
	}
	if o.Metrics != nil {
		label := kind
		if !knownKind(kind) {
			label = "unknown"
		}
		o.Metrics.Inbound(label, code)
	}
	return id, err
}

// SubmitFrom is SubmitEvent for a transport session. It also keeps the
// session's call channels current.
func (o *Orchestrator) SubmitFrom(ctx context.Context, sess *core.Session, kind string, payload json.RawMessage) (string, error) {
	user, ok := sess.User()
	if !ok {
		return "", domain.Permission("orch.submit", "connection is not registered")
	}
	id, err := o.SubmitEvent(ctx, user, kind, payload)
	if err != nil || id == "" {
		return id, err
	}
	ch := core.CallChannel(domain.CallID(id))
	switch kind {
	case KindCallUser, KindGroupCallStart, KindCallAccepted, KindJoinGroupCall:
		if s, ok := o.Calls.Get(domain.CallID(id)); ok && !s.State.Terminal() {
			sess.Subscribe(ch)
		}
	case KindCallRejected, KindEndCall, KindDisconnectCall:
		sess.Unsubscribe(ch)
	}
	return id, nil
}

func (o *Orchestrator) submit(ctx context.Context, user domain.UserID, kind string, payload json.RawMessage) (string, error) {
	const op = "orch.submit"
	if user == "" {
		return "", domain.Permission(op, "anonymous request")
	}
	switch kind {
	case KindSendMessage:
		var req SendMessageRequest
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		m, err := o.SendMessage(ctx, user, req)
		return string(m.ID), err

	case KindRevokeMessage:
		var req messageRef
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		m, err := o.RevokeMessage(ctx, user, req.MessageID)
		return string(m.ID), err

	case KindMessageDelivered, KindMessageSeen:
		var req messageRef
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		status := domain.MessageDelivered
		if kind == KindMessageSeen {
			status = domain.MessageSeen
		}
		m, err := o.MarkMessage(ctx, user, req.MessageID, status)
		return string(m.ID), err

	case KindSendFriendRequest:
		var req friendRequestBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		fr, err := o.SendFriendRequest(ctx, user, req.ReceiverID, req.Message)
		return string(fr.ID), err

	case KindRespondFriendRequest:
		var req friendResponseBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		fr, err := o.RespondFriendRequest(ctx, user, req.RequestID, req.Status)
		return string(fr.ID), err

	case KindCancelFriendRequest:
		var req friendResponseBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		fr, err := o.CancelFriendRequest(ctx, user, req.RequestID)
		return string(fr.ID), err

	case KindGetSentFriendRequests:
		// The requester is the connection's user; a userId in the body is ignored.
		_, err := o.SentFriendRequests(ctx, user)
		return "", err

	case KindCreateGroup:
		var req createGroupBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		g, err := o.Groups.Create(ctx, req.Name, user, req.Members)
		return string(g.ID), err

	case KindAddMember, KindRemoveMember, KindLeaveGroup, KindChangeRole:
		var req memberBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		var err error
		switch kind {
		case KindAddMember:
			_, err = o.Groups.AddMember(ctx, req.GroupID, req.MemberID, user)
		case KindRemoveMember:
			_, err = o.Groups.RemoveMember(ctx, req.GroupID, req.MemberID, user)
		case KindLeaveGroup:
			_, err = o.Groups.RemoveMember(ctx, req.GroupID, user, user)
		case KindChangeRole:
			_, err = o.Groups.ChangeRole(ctx, req.GroupID, req.MemberID, req.Role, user)
		}
		return string(req.GroupID), err

	case KindUpdateGroup:
		var req updateGroupBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		g, err := o.Groups.UpdateInfo(ctx, req.GroupID, req.UpdateData, user)
		return string(g.ID), err

	case KindCallUser, KindGroupCallStart:
		var req callUserBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		targets := req.TargetIDs
		if req.TargetID != "" {
			targets = append(targets, req.TargetID)
		}
		if kind == KindGroupCallStart && req.GroupID == "" {
			return "", domain.Validation(op, "groupId is required")
		}
		s, err := o.Calls.Initiate(ctx, calls.InitiateRequest{
			CallerID:   user,
			CallerName: req.CallerName,
			TargetIDs:  targets,
			GroupID:    req.GroupID,
			Mode:       req.MediaType,
			Signal:     req.SignalData,
		})
		return string(s.ID), err

	case KindCallAccepted, KindCallRejected, KindEndCall, KindDisconnectCall, KindJoinGroupCall:
		var req callRefBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		var err error
		switch kind {
		case KindCallAccepted:
			_, err = o.Calls.Accept(ctx, req.CallID, user, req.Signal)
		case KindCallRejected:
			_, err = o.Calls.Reject(ctx, req.CallID, user, req.Reason)
		case KindEndCall:
			_, err = o.Calls.End(ctx, req.CallID, user)
		case KindDisconnectCall:
			_, err = o.Calls.Disconnect(ctx, req.CallID, user)
		case KindJoinGroupCall:
			_, err = o.Calls.JoinGroupCall(ctx, req.CallID, user, req.PeerID)
		}
		return string(req.CallID), err

	case KindICECandidate:
		var req iceBody
		if err := decode(op, payload, &req); err != nil {
			return "", err
		}
		if req.Candidate == nil {
			return "", domain.Validation(op, "candidate is required")
		}
		_, err := o.Calls.RelayCandidate(req.CallID, user, req.TargetID, *req.Candidate)
		return "", err

	default:
		return "", domain.Validation(op, "unknown request kind "+kind)
	}
}

func decode(op string, payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return domain.Validation(op, "empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &domain.Error{Kind: domain.ErrValidation, Op: op, Msg: "malformed payload", Err: err}
	}
	return nil
}
