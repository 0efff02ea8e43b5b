package domain

import "time"

type FriendRequestID string

type FriendRequestStatus string

const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

// Resolved reports whether the request can no longer be answered.
func (s FriendRequestStatus) Resolved() bool {
	return s != FriendRequestPending
}

type FriendRequest struct {
	ID         FriendRequestID     `json:"id"`
	SenderID   UserID              `json:"senderId"`
	ReceiverID UserID              `json:"receiverId"`
	Message    string              `json:"message,omitempty"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}
