package core

//go:generate mockgen -source=stores.go -destination=../mocks/stores_mock.go -package=mocks

import (
	"context"
	"time"

	"github.com/dkeye/Chathub/internal/domain"
)

// The stores below are implemented by the persistence layer. The hub calls
// them synchronously and never reimplements them. Implementations report
// domain errors (domain.NotFound, domain.Permission, ...) for business
// failures; anything else is treated as a persistence failure.

type MessageStore interface {
	Create(ctx context.Context, msg domain.NewMessage) (domain.Message, error)
	Get(ctx context.Context, id domain.MessageID) (domain.Message, error)
	// Revoke marks the message revoked; only its sender may do so.
	Revoke(ctx context.Context, id domain.MessageID, by domain.UserID) (domain.Message, error)
	UpdateStatus(ctx context.Context, id domain.MessageID, status domain.MessageStatus) (domain.Message, error)
}

type ConversationStore interface {
	// UpsertBetween returns the personal conversation of users, creating it
	// when missing. created reports whether it was created by this call.
	UpsertBetween(ctx context.Context, users []domain.UserID) (conv domain.Conversation, created bool, err error)
	AppendMessage(ctx context.Context, id domain.ConversationID, msg domain.Message) (domain.Conversation, error)
	Get(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
}

type FriendRequestStore interface {
	Create(ctx context.Context, sender, receiver domain.UserID, message string) (domain.FriendRequest, error)
	Respond(ctx context.Context, id domain.FriendRequestID, by domain.UserID, status domain.FriendRequestStatus) (domain.FriendRequest, error)
	Cancel(ctx context.Context, id domain.FriendRequestID, by domain.UserID) (domain.FriendRequest, error)
	Get(ctx context.Context, id domain.FriendRequestID) (domain.FriendRequest, error)
	// ListSent returns the sender's pending requests, oldest first.
	ListSent(ctx context.Context, sender domain.UserID) ([]domain.FriendRequest, error)
}

// GroupStore mutations return the post-mutation roster. ChangeRole also
// reports who it demoted within the same mutation.
type GroupStore interface {
	Create(ctx context.Context, name string, creator domain.UserID, members []domain.UserID) (domain.GroupRoster, error)
	Get(ctx context.Context, id domain.GroupID) (domain.GroupRoster, error)
	AddMember(ctx context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error)
	RemoveMember(ctx context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error)
	ChangeRole(ctx context.Context, id domain.GroupID, member domain.UserID, role domain.Role, by domain.UserID) (domain.RoleChange, error)
	UpdateInfo(ctx context.Context, id domain.GroupID, update domain.GroupUpdate, by domain.UserID) (domain.GroupRoster, error)
}

type CallRecordStore interface {
	Create(ctx context.Context, rec domain.CallRecord) (domain.CallRecord, error)
	UpdateStatus(ctx context.Context, id domain.CallID, status domain.CallStatus, at time.Time) (domain.CallRecord, error)
	AddParticipant(ctx context.Context, id domain.CallID, user domain.UserID) (domain.CallRecord, error)
	EndCall(ctx context.Context, id domain.CallID, endedAt time.Time, duration time.Duration) (domain.CallRecord, error)
}

// Stores groups every collaborator the hub talks to.
type Stores struct {
	Messages       MessageStore
	Conversations  ConversationStore
	FriendRequests FriendRequestStore
	Groups         GroupStore
	CallRecords    CallRecordStore
}
