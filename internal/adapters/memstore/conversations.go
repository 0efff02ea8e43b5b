package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/Chathub/internal/domain"
)

type Conversations struct {
	now      Clock
	mu       sync.RWMutex
	convs    map[domain.ConversationID]domain.Conversation
	personal map[string]domain.ConversationID
}

func NewConversations(clock Clock) *Conversations {
	return &Conversations{
		now:      clock,
		convs:    make(map[domain.ConversationID]domain.Conversation),
		personal: make(map[string]domain.ConversationID),
	}
}

func pairKey(users []domain.UserID) string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = string(u)
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

func (s *Conversations) UpsertBetween(_ context.Context, users []domain.UserID) (domain.Conversation, bool, error) {
	users = domain.UniqueUsers(users)
	if len(users) != 2 {
		return domain.Conversation{}, false, domain.Validation("memstore.conversations.upsert", "a personal conversation has two participants")
	}
	key := pairKey(users)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.personal[key]; ok {
		return s.convs[id], false, nil
	}
	c := domain.Conversation{
		ID:           domain.ConversationID(uuid.NewString()),
		Type:         domain.ConversationPersonal,
		Participants: users,
		UpdatedAt:    s.now(),
	}
	s.convs[c.ID] = c
	s.personal[key] = c.ID
	return c, true, nil
}

// CreateGroup registers the conversation of a group.
func (s *Conversations) CreateGroup(group domain.GroupID, members []domain.UserID) domain.Conversation {
	c := domain.Conversation{
		ID:           domain.ConversationID(uuid.NewString()),
		Type:         domain.ConversationGroup,
		Participants: members,
		GroupID:      group,
		UpdatedAt:    s.now(),
	}
	s.mu.Lock()
	s.convs[c.ID] = c
	s.mu.Unlock()
	return c
}

func (s *Conversations) AppendMessage(_ context.Context, id domain.ConversationID, msg domain.Message) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, domain.NotFound("memstore.conversations.append", "conversation "+string(id))
	}
	m := msg
	c.LastMessage = &m
	c.UpdatedAt = msg.Timestamp
	s.convs[id] = c
	return c, nil
}

func (s *Conversations) Get(_ context.Context, id domain.ConversationID) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, domain.NotFound("memstore.conversations.get", "conversation "+string(id))
	}
	return c, nil
}
