package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/Chathub/internal/domain"
)

type FriendRequests struct {
	now  Clock
	mu   sync.Mutex
	reqs map[domain.FriendRequestID]domain.FriendRequest
}

func NewFriendRequests(clock Clock) *FriendRequests {
	return &FriendRequests{now: clock, reqs: make(map[domain.FriendRequestID]domain.FriendRequest)}
}

func (s *FriendRequests) Create(_ context.Context, sender, receiver domain.UserID, message string) (domain.FriendRequest, error) {
	const op = "memstore.friends.create"
	if sender == "" || receiver == "" {
		return domain.FriendRequest{}, domain.Validation(op, "sender and receiver are required")
	}
	if sender == receiver {
		return domain.FriendRequest{}, domain.Validation(op, "cannot befriend yourself")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.Status == domain.FriendRequestPending &&
			((r.SenderID == sender && r.ReceiverID == receiver) || (r.SenderID == receiver && r.ReceiverID == sender)) {
			return domain.FriendRequest{}, domain.Stale(op, "a request between these users is already pending")
		}
	}
	now := s.now()
	r := domain.FriendRequest{
		ID:         domain.FriendRequestID(uuid.NewString()),
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    message,
		Status:     domain.FriendRequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.reqs[r.ID] = r
	return r, nil
}

func (s *FriendRequests) Respond(_ context.Context, id domain.FriendRequestID, by domain.UserID, status domain.FriendRequestStatus) (domain.FriendRequest, error) {
	const op = "memstore.friends.respond"
	if status != domain.FriendRequestAccepted && status != domain.FriendRequestRejected {
		return domain.FriendRequest{}, domain.Validation(op, "status must be accepted or rejected")
	}
	return s.resolve(op, id, status, func(r domain.FriendRequest) bool { return r.ReceiverID == by })
}

func (s *FriendRequests) Cancel(_ context.Context, id domain.FriendRequestID, by domain.UserID) (domain.FriendRequest, error) {
	return s.resolve("memstore.friends.cancel", id, domain.FriendRequestCancelled, func(r domain.FriendRequest) bool { return r.SenderID == by })
}

func (s *FriendRequests) resolve(op string, id domain.FriendRequestID, status domain.FriendRequestStatus, allowed func(domain.FriendRequest) bool) (domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return domain.FriendRequest{}, domain.NotFound(op, "friend request "+string(id))
	}
	if !allowed(r) {
		return domain.FriendRequest{}, domain.Permission(op, "not allowed on this request")
	}
	if r.Status.Resolved() {
		return domain.FriendRequest{}, domain.Stale(op, "request already "+string(r.Status))
	}
	r.Status = status
	r.UpdatedAt = s.now()
	s.reqs[id] = r
	return r, nil
}

func (s *FriendRequests) Get(_ context.Context, id domain.FriendRequestID) (domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return domain.FriendRequest{}, domain.NotFound("memstore.friends.get", "friend request "+string(id))
	}
	return r, nil
}

func (s *FriendRequests) ListSent(_ context.Context, sender domain.UserID) ([]domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.FriendRequest{}
	for _, r := range s.reqs {
		if r.SenderID == sender && r.Status == domain.FriendRequestPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
