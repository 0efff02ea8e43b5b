package orch

import (
	"context"

	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

// SendMessage stores a message and tells everybody in its conversation.
// Sender and receiver get, in this order: newConversation (only when the
// conversation was just created), receiveMessage and updateLastMessage.
func (o *Orchestrator) SendMessage(ctx context.Context, sender domain.UserID, req SendMessageRequest) (domain.Message, error) {
	const op = "orch.send_message"
	if req.MessageType == "" {
		req.MessageType = domain.MessageText
	}
	switch {
	case !req.MessageType.Valid():
		return domain.Message{}, domain.Validation(op, "unknown message type")
	case req.MessageType == domain.MessageText && req.Content == "":
		return domain.Message{}, domain.Validation(op, "message content is empty")
	case req.MessageType != domain.MessageText && (req.File == nil || req.File.URL == ""):
		return domain.Message{}, domain.Validation(op, "file message needs fileMeta.url")
	case (req.ReceiverID == "") == (req.ConversationID == ""):
		return domain.Message{}, domain.Validation(op, "exactly one of receiverId and conversationId is required")
	case req.ReceiverID == sender:
		return domain.Message{}, domain.Validation(op, "cannot message yourself")
	}

	if req.ReceiverID != "" {
		return o.sendDirect(ctx, op, sender, req)
	}
	return o.sendToConversation(ctx, op, sender, req)
}

func (o *Orchestrator) sendDirect(ctx context.Context, op string, sender domain.UserID, req SendMessageRequest) (domain.Message, error) {
	msg, err := o.Stores.Messages.Create(ctx, domain.NewMessage{
		SenderID:   sender,
		ReceiverID: req.ReceiverID,
		Type:       req.MessageType,
		Content:    req.Content,
		File:       req.File,
		Mentions:   req.Mentions,
	})
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	conv, created, err := o.Stores.Conversations.UpsertBetween(ctx, []domain.UserID{sender, req.ReceiverID})
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	msg.ConversationID = conv.ID
	conv, err = o.Stores.Conversations.AppendMessage(ctx, conv.ID, msg)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}

	to := []domain.UserID{sender, req.ReceiverID}
	if created {
		o.Dispatch.Emit(to, events.NewConversation{Conversation: conv})
	}
	o.Dispatch.Emit(to, events.ReceiveMessage{Message: msg})
	o.Dispatch.Emit(to, events.UpdateLastMessage{Conversation: conv})
	return msg, nil
}

func (o *Orchestrator) sendToConversation(ctx context.Context, op string, sender domain.UserID, req SendMessageRequest) (domain.Message, error) {
	conv, err := o.Stores.Conversations.Get(ctx, req.ConversationID)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	to, err := o.audience(ctx, op, conv)
	if err != nil {
		return domain.Message{}, err
	}
	if !domain.ContainsUser(to, sender) {
		return domain.Message{}, domain.Permission(op, "not a participant of the conversation")
	}

	msg, err := o.Stores.Messages.Create(ctx, domain.NewMessage{
		SenderID:       sender,
		ConversationID: conv.ID,
		Type:           req.MessageType,
		Content:        req.Content,
		File:           req.File,
		Mentions:       req.Mentions,
	})
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	conv, err = o.Stores.Conversations.AppendMessage(ctx, conv.ID, msg)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	o.Dispatch.Emit(to, events.ReceiveMessage{Message: msg})
	o.Dispatch.Emit(to, events.UpdateLastMessage{Conversation: conv})
	return msg, nil
}

// audience is everyone a conversation event goes to. Group conversations
// use the current roster.
func (o *Orchestrator) audience(ctx context.Context, op string, conv domain.Conversation) ([]domain.UserID, error) {
	if conv.Type != domain.ConversationGroup || conv.GroupID == "" {
		return conv.Participants, nil
	}
	g, err := o.Stores.Groups.Get(ctx, conv.GroupID)
	if err != nil {
		return nil, domain.Persistence(op, err)
	}
	return g.MemberIDs(), nil
}

// RevokeMessage lets the sender take a message back.
func (o *Orchestrator) RevokeMessage(ctx context.Context, by domain.UserID, id domain.MessageID) (domain.Message, error) {
	const op = "orch.revoke_message"
	if id == "" {
		return domain.Message{}, domain.Validation(op, "messageId is required")
	}
	msg, err := o.Stores.Messages.Revoke(ctx, id, by)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}

	to := []domain.UserID{msg.SenderID, msg.ReceiverID}
	if msg.ReceiverID == "" && msg.ConversationID != "" {
		conv, err := o.Stores.Conversations.Get(ctx, msg.ConversationID)
		if err != nil {
			return domain.Message{}, domain.Persistence(op, err)
		}
		if to, err = o.audience(ctx, op, conv); err != nil {
			return domain.Message{}, err
		}
	}
	o.Dispatch.Emit(to, events.MessageRevoked{MessageID: msg.ID, IsRevoked: true})
	return msg, nil
}

// MarkMessage records delivery or read state and tells the sender.
func (o *Orchestrator) MarkMessage(ctx context.Context, by domain.UserID, id domain.MessageID, status domain.MessageStatus) (domain.Message, error) {
	const op = "orch.mark_message"
	if id == "" {
		return domain.Message{}, domain.Validation(op, "messageId is required")
	}
	if status != domain.MessageDelivered && status != domain.MessageSeen {
		return domain.Message{}, domain.Validation(op, "status must be delivered or seen")
	}
	msg, err := o.Stores.Messages.Get(ctx, id)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	if msg.SenderID == by {
		return domain.Message{}, domain.Validation(op, "cannot mark your own message")
	}
	if msg.ReceiverID != "" && msg.ReceiverID != by {
		return domain.Message{}, domain.Permission(op, "not the receiver of the message")
	}
	msg, err = o.Stores.Messages.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Message{}, domain.Persistence(op, err)
	}
	o.Dispatch.EmitTo(msg.SenderID, events.MessageStatusUpdated{MessageID: msg.ID, Status: msg.Status})
	return msg, nil
}
