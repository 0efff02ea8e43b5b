package memstore

import (
	"context"
	"sync"

	"github.com/dkeye/Chathub/internal/domain"
)

type Messages struct {
	now  Clock
	mu   sync.RWMutex
	msgs map[domain.MessageID]domain.Message
}

func NewMessages(clock Clock) *Messages {
	return &Messages{now: clock, msgs: make(map[domain.MessageID]domain.Message)}
}

func (s *Messages) Create(_ context.Context, in domain.NewMessage) (domain.Message, error) {
	const op = "memstore.messages.create"
	if in.SenderID == "" {
		return domain.Message{}, domain.Validation(op, "sender is required")
	}
	if in.ReceiverID == "" && in.ConversationID == "" {
		return domain.Message{}, domain.Validation(op, "receiver or conversation is required")
	}
	if !in.Type.Valid() {
		return domain.Message{}, domain.Validation(op, "unknown message type")
	}
	if in.Type == domain.MessageText && in.Content == "" {
		return domain.Message{}, domain.Validation(op, "empty text message")
	}
	if in.Type != domain.MessageText && (in.File == nil || in.File.URL == "") {
		return domain.Message{}, domain.Validation(op, "file message without file")
	}
	now := s.now()
	m := domain.Message{
		ID:             domain.MessageID(newULID(now)),
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		ConversationID: in.ConversationID,
		Type:           in.Type,
		Content:        in.Content,
		File:           in.File,
		Mentions:       in.Mentions,
		Status:         domain.MessageSent,
		Timestamp:      now,
	}
	s.mu.Lock()
	s.msgs[m.ID] = m
	s.mu.Unlock()
	return m, nil
}

func (s *Messages) Get(_ context.Context, id domain.MessageID) (domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.msgs[id]
	if !ok {
		return domain.Message{}, domain.NotFound("memstore.messages.get", "message "+string(id))
	}
	return m, nil
}

func (s *Messages) Revoke(_ context.Context, id domain.MessageID, by domain.UserID) (domain.Message, error) {
	const op = "memstore.messages.revoke"
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return domain.Message{}, domain.NotFound(op, "message "+string(id))
	}
	if m.SenderID != by {
		return domain.Message{}, domain.Permission(op, "only the sender may revoke a message")
	}
	m.Revoked = true
	s.msgs[id] = m
	return m, nil
}

func (s *Messages) UpdateStatus(_ context.Context, id domain.MessageID, status domain.MessageStatus) (domain.Message, error) {
	const op = "memstore.messages.status"
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return domain.Message{}, domain.NotFound(op, "message "+string(id))
	}
	if rank(status) < rank(m.Status) {
		return domain.Message{}, domain.Stale(op, "message already "+string(m.Status))
	}
	m.Status = status
	s.msgs[id] = m
	return m, nil
}

func rank(s domain.MessageStatus) int {
	switch s {
	case domain.MessageSent:
		return 0
	case domain.MessageDelivered:
		return 1
	case domain.MessageSeen:
		return 2
	}
	return -1
}
