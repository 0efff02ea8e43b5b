package orch

import (
	"context"

	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

func (o *Orchestrator) SendFriendRequest(ctx context.Context, sender, receiver domain.UserID, message string) (domain.FriendRequest, error) {
	const op = "orch.send_friend_request"
	if receiver == "" {
		return domain.FriendRequest{}, domain.Validation(op, "receiverId is required")
	}
	if receiver == sender {
		return domain.FriendRequest{}, domain.Validation(op, "cannot befriend yourself")
	}
	fr, err := o.Stores.FriendRequests.Create(ctx, sender, receiver, message)
	if err != nil {
		return domain.FriendRequest{}, domain.Persistence(op, err)
	}
	o.Dispatch.EmitTo(receiver, events.NewFriendRequest{Request: fr})
	return fr, nil
}

// RespondFriendRequest answers a pending request. Both sides hear about it;
// on acceptance each side also gets newFriend naming the other.
func (o *Orchestrator) RespondFriendRequest(ctx context.Context, by domain.UserID, id domain.FriendRequestID, status domain.FriendRequestStatus) (domain.FriendRequest, error) {
	const op = "orch.respond_friend_request"
	if id == "" {
		return domain.FriendRequest{}, domain.Validation(op, "requestId is required")
	}
	if status != domain.FriendRequestAccepted && status != domain.FriendRequestRejected {
		return domain.FriendRequest{}, domain.Validation(op, "status must be accepted or rejected")
	}
	fr, err := o.Stores.FriendRequests.Respond(ctx, id, by, status)
	if err != nil {
		return domain.FriendRequest{}, domain.Persistence(op, err)
	}

	ev := events.FriendRequestResponse{Request: fr, Status: fr.Status}
	if fr.Status == domain.FriendRequestAccepted {
		ev.Message = "Friend request accepted"
	} else {
		ev.Message = "Friend request rejected"
		ev.CanSendAgain = true
	}
	o.Dispatch.Emit([]domain.UserID{fr.SenderID, fr.ReceiverID}, ev)
	if fr.Status == domain.FriendRequestAccepted {
		o.Dispatch.EmitTo(fr.SenderID, events.NewFriend{FriendID: fr.ReceiverID})
		o.Dispatch.EmitTo(fr.ReceiverID, events.NewFriend{FriendID: fr.SenderID})
	}
	return fr, nil
}

// SentFriendRequests replies to user alone with their pending outgoing
// requests.
func (o *Orchestrator) SentFriendRequests(ctx context.Context, user domain.UserID) ([]domain.FriendRequest, error) {
	const op = "orch.sent_friend_requests"
	reqs, err := o.Stores.FriendRequests.ListSent(ctx, user)
	if err != nil {
		return nil, domain.Persistence(op, err)
	}
	o.Dispatch.EmitTo(user, events.SentFriendRequests{Requests: reqs})
	return reqs, nil
}

func (o *Orchestrator) CancelFriendRequest(ctx context.Context, by domain.UserID, id domain.FriendRequestID) (domain.FriendRequest, error) {
	const op = "orch.cancel_friend_request"
	if id == "" {
		return domain.FriendRequest{}, domain.Validation(op, "requestId is required")
	}
	fr, err := o.Stores.FriendRequests.Cancel(ctx, id, by)
	if err != nil {
		return domain.FriendRequest{}, domain.Persistence(op, err)
	}
	o.Dispatch.EmitTo(fr.ReceiverID, events.FriendRequestCancelled{RequestID: fr.ID, SenderID: fr.SenderID})
	return fr, nil
}
