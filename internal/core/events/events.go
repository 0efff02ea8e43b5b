// Package events defines every event the hub pushes to clients. Each event
// name has exactly one payload struct.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Chathub/internal/domain"
)

// Event is a typed outbound payload with a fixed wire name.
type Event interface {
	EventName() string
}

// Envelope is the wire framing: a named event plus its JSON payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Encode frames ev for the transport.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	b, err := json.Marshal(Envelope{Type: ev.EventName(), Data: ev})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return b, nil
}

const (
	NameUserStatusChanged       = "userStatusChanged"
	NameReceiveMessage          = "receiveMessage"
	NameUpdateLastMessage       = "updateLastMessage"
	NameNewConversation         = "newConversation"
	NameMessageRevoked          = "messageRevoked"
	NameMessageStatusUpdated    = "messageStatusUpdated"
	NameNewFriendRequest        = "newFriendRequest"
	NameFriendRequestResponse   = "friendRequestResponse"
	NameFriendRequestCancelled  = "friendRequestCancelled"
	NameSentFriendRequests      = "sentFriendRequests"
	NameNewFriend               = "newFriend"
	NameNewGroupCreated         = "newGroupCreated"
	NameMemberAddedToGroup      = "memberAddedToGroup"
	NameAddedToGroup            = "addedToGroup"
	NameMemberRemovedFromGroup  = "memberRemovedFromGroup"
	NameRemovedFromGroup        = "removedFromGroup"
	NameMemberRoleChanged       = "memberRoleChanged"
	NameGroupInfoUpdated        = "groupInfoUpdated"
	NameConversationInfoUpdated = "conversationInfoUpdated"
	NameIncomingCall            = "incoming-call"
	NameCallResponse            = "call-response"
	NameCallAccepted            = "call-accepted"
	NameCallRejected            = "call-rejected"
	NameCallEnded               = "call-ended"
	NameCallDisconnected        = "call-disconnected"
	NameICECandidate            = "ice-candidate"
	NameGroupCallIncoming       = "group-call-incoming"
	NameUserJoinedCall          = "user-joined-call"
	NameAck                     = "ack"
	NameError                   = "error"
	NamePong                    = "pong"
)

// Presence

type UserStatusChanged struct {
	UserID domain.UserID         `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
}

func (UserStatusChanged) EventName() string { return NameUserStatusChanged }

// Messages and conversations

type ReceiveMessage struct {
	domain.Message
}

func (ReceiveMessage) EventName() string { return NameReceiveMessage }

type UpdateLastMessage struct {
	Conversation domain.Conversation `json:"conversation"`
}

func (UpdateLastMessage) EventName() string { return NameUpdateLastMessage }

type NewConversation struct {
	Conversation domain.Conversation `json:"conversation"`
	Group        *domain.GroupRoster `json:"group,omitempty"`
}

func (NewConversation) EventName() string { return NameNewConversation }

type MessageRevoked struct {
	MessageID domain.MessageID `json:"messageId"`
	IsRevoked bool             `json:"isRevoked"`
}

func (MessageRevoked) EventName() string { return NameMessageRevoked }

type MessageStatusUpdated struct {
	MessageID domain.MessageID     `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
}

func (MessageStatusUpdated) EventName() string { return NameMessageStatusUpdated }

// Friend requests

type NewFriendRequest struct {
	Request domain.FriendRequest `json:"request"`
}

func (NewFriendRequest) EventName() string { return NameNewFriendRequest }

type FriendRequestResponse struct {
	Request      domain.FriendRequest       `json:"request"`
	Status       domain.FriendRequestStatus `json:"status"`
	Message      string                     `json:"message,omitempty"`
	CanSendAgain bool                       `json:"canSendAgain,omitempty"`
}

func (FriendRequestResponse) EventName() string { return NameFriendRequestResponse }

type FriendRequestCancelled struct {
	RequestID domain.FriendRequestID `json:"requestId"`
	SenderID  domain.UserID          `json:"senderId"`
}

func (FriendRequestCancelled) EventName() string { return NameFriendRequestCancelled }

// SentFriendRequests answers getSentFriendRequests with the caller's
// pending outgoing requests.
type SentFriendRequests struct {
	Requests []domain.FriendRequest `json:"requests"`
}

func (SentFriendRequests) EventName() string { return NameSentFriendRequests }

type NewFriend struct {
	FriendID domain.UserID `json:"friendId"`
}

func (NewFriend) EventName() string { return NameNewFriend }

// Groups

type NewGroupCreated struct {
	Group domain.GroupRoster `json:"group"`
}

func (NewGroupCreated) EventName() string { return NameNewGroupCreated }

type MemberAddedToGroup struct {
	GroupID   domain.GroupID     `json:"groupId"`
	NewMember domain.UserID      `json:"newMember"`
	AddedBy   domain.UserID      `json:"addedBy"`
	Group     domain.GroupRoster `json:"group"`
}

func (MemberAddedToGroup) EventName() string { return NameMemberAddedToGroup }

type AddedToGroup struct {
	Group domain.GroupRoster `json:"group"`
}

func (AddedToGroup) EventName() string { return NameAddedToGroup }

type MemberRemovedFromGroup struct {
	GroupID       domain.GroupID     `json:"groupId"`
	RemovedMember domain.UserID      `json:"removedMember"`
	RemovedBy     domain.UserID      `json:"removedBy"`
	Group         domain.GroupRoster `json:"group"`
}

func (MemberRemovedFromGroup) EventName() string { return NameMemberRemovedFromGroup }

type RemovedFromGroup struct {
	GroupID domain.GroupID `json:"groupId"`
}

func (RemovedFromGroup) EventName() string { return NameRemovedFromGroup }

type MemberRoleChanged struct {
	GroupID   domain.GroupID     `json:"groupId"`
	MemberID  domain.UserID      `json:"memberId"`
	NewRole   domain.Role        `json:"newRole"`
	ChangedBy domain.UserID      `json:"changedBy"`
	Group     domain.GroupRoster `json:"group"`
}

func (MemberRoleChanged) EventName() string { return NameMemberRoleChanged }

type GroupInfoUpdated struct {
	GroupID   domain.GroupID     `json:"groupId"`
	UpdatedBy domain.UserID      `json:"updatedBy"`
	Group     domain.GroupRoster `json:"group"`
}

func (GroupInfoUpdated) EventName() string { return NameGroupInfoUpdated }

// ConversationInfoUpdated mirrors a group rename or new avatar onto the
// group's conversation for clients that key their lists by conversation.
type ConversationInfoUpdated struct {
	ConversationID domain.ConversationID `json:"conversationId"`
	Name           string                `json:"name"`
	Avatar         string                `json:"avatar,omitempty"`
	Conversation   domain.Conversation   `json:"conversation"`
}

func (ConversationInfoUpdated) EventName() string { return NameConversationInfoUpdated }

// Calls

type IncomingCall struct {
	CallID     domain.CallID              `json:"callId"`
	CallerID   domain.UserID              `json:"callerId"`
	CallerName string                     `json:"callerName,omitempty"`
	Mode       domain.CallMode            `json:"mediaType"`
	SignalData *webrtc.SessionDescription `json:"signalData,omitempty"`
}

func (IncomingCall) EventName() string { return NameIncomingCall }

type CallResponse struct {
	CallID   domain.CallID `json:"callId"`
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	TargetID domain.UserID `json:"targetId,omitempty"`
}

func (CallResponse) EventName() string { return NameCallResponse }

type CallAccepted struct {
	CallID   domain.CallID              `json:"callId"`
	TargetID domain.UserID              `json:"targetId"`
	Signal   *webrtc.SessionDescription `json:"signal,omitempty"`
}

func (CallAccepted) EventName() string { return NameCallAccepted }

type CallRejected struct {
	CallID   domain.CallID `json:"callId"`
	TargetID domain.UserID `json:"targetId"`
	Reason   string        `json:"reason"`
}

func (CallRejected) EventName() string { return NameCallRejected }

type CallEnded struct {
	CallID  domain.CallID `json:"callId"`
	EndedBy domain.UserID `json:"endedBy"`
}

func (CallEnded) EventName() string { return NameCallEnded }

type CallDisconnected struct {
	CallID domain.CallID `json:"callId"`
	UserID domain.UserID `json:"userId"`
}

func (CallDisconnected) EventName() string { return NameCallDisconnected }

type ICECandidate struct {
	CallID    domain.CallID           `json:"callId,omitempty"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      domain.UserID           `json:"from"`
}

func (ICECandidate) EventName() string { return NameICECandidate }

type GroupCallIncoming struct {
	CallID     domain.CallID   `json:"callId"`
	GroupID    domain.GroupID  `json:"groupId"`
	CallerID   domain.UserID   `json:"callerId"`
	CallerName string          `json:"callerName,omitempty"`
	Mode       domain.CallMode `json:"mediaType"`
}

func (GroupCallIncoming) EventName() string { return NameGroupCallIncoming }

type UserJoinedCall struct {
	CallID  domain.CallID  `json:"callId"`
	GroupID domain.GroupID `json:"groupId,omitempty"`
	UserID  domain.UserID  `json:"userId"`
	PeerID  string         `json:"peerId,omitempty"`
}

func (UserJoinedCall) EventName() string { return NameUserJoinedCall }

// Replies to the originating connection only

// Ack confirms an inbound request. ID names the resource it created or
// touched, when there is one.
type Ack struct {
	RequestID string `json:"requestId,omitempty"`
	Kind      string `json:"kind"`
	ID        string `json:"id,omitempty"`
}

func (Ack) EventName() string { return NameAck }

type Error struct {
	RequestID string `json:"requestId,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (Error) EventName() string { return NameError }

type Pong struct{}

func (Pong) EventName() string { return NamePong }
