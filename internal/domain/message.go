package domain

import "time"

type MessageID string

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
	MessageVoice MessageType = "voice"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageFile, MessageVoice:
		return true
	}
	return false
}

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageSeen      MessageStatus = "seen"
)

// FileMeta points at an already uploaded object. The hub never uploads.
type FileMeta struct {
	URL      string `json:"url"`
	FileType string `json:"fileType,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

type Message struct {
	ID             MessageID      `json:"id"`
	SenderID       UserID         `json:"senderId"`
	ReceiverID     UserID         `json:"receiverId,omitempty"`
	ConversationID ConversationID `json:"conversationId,omitempty"`
	Type           MessageType    `json:"messageType"`
	Content        string         `json:"content"`
	File           *FileMeta      `json:"fileMeta,omitempty"`
	Mentions       []UserID       `json:"mentions,omitempty"`
	Status         MessageStatus  `json:"status"`
	Revoked        bool           `json:"isRevoked"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewMessage is the create request handed to the message store.
type NewMessage struct {
	SenderID       UserID
	ReceiverID     UserID
	ConversationID ConversationID
	Type           MessageType
	Content        string
	File           *FileMeta
	Mentions       []UserID
}

type ConversationType string

const (
	ConversationPersonal ConversationType = "personal"
	ConversationGroup    ConversationType = "group"
)

type Conversation struct {
	ID           ConversationID   `json:"id"`
	Type         ConversationType `json:"type"`
	Participants []UserID         `json:"participants"`
	GroupID      GroupID          `json:"groupId,omitempty"`
	LastMessage  *Message         `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
