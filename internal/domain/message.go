package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

const MaxContentLength = 5000

type Attachment struct {
	ID           uuid.UUID
	MessageID    uuid.UUID
	FileName     string
	OriginalName string
	MimeType     string
	Size         int64
	URL          string
	ThumbnailURL *string
	Width        *int
	Height       *int
	Duration     *int
}

// Reaction rows are unique per (MessageID, UserID, Emoji); a repeated
// identical reaction removes the existing row (toggle).
type Reaction struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	Emoji     string
	CreatedAt time.Time
}

type ReadReceipt struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	ReadAt    time.Time
}

type Message struct {
	ID              uuid.UUID
	ConversationID  uuid.UUID
	TenantID        uuid.UUID
	SenderID        uuid.UUID
	Content         string
	Type            MessageType
	ReplyToID       *uuid.UUID
	Status          MessageStatus
	EditedAt        *time.Time
	OriginalContent *string
	CreatedAt       time.Time

	Attachments []Attachment
	Reactions   []Reaction
	ReadBy      []ReadReceipt

	Sender  *User
	ReplyTo *Message
}
