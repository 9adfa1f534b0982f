package model

import "github.com/google/uuid"

type SendMessageRequest struct {
	Content   string     `json:"content" validate:"required,min=1,max=5000"`
	ReplyToID *uuid.UUID `json:"reply_to" validate:"omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,min=1,max=10"`
}

type GetMessagesRequest struct {
	ConversationID uuid.UUID `validate:"required"`
	Limit          int       `validate:"omitempty,gt=0,max=100"`
	Offset         int       `validate:"omitempty,gte=0"`
}

type SearchMessagesRequest struct {
	Query          string     `validate:"required,min=1,max=200"`
	ConversationID *uuid.UUID `validate:"omitempty"`
}

type AttachmentDTO struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	Duration     *int      `json:"duration,omitempty"`
}

type ReactionDTO struct {
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt string    `json:"created_at"`
}

type ReadReceiptDTO struct {
	UserID uuid.UUID `json:"user_id"`
	ReadAt string    `json:"read_at"`
}

type ReplyPreviewDTO struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Type       string    `json:"type"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  string    `json:"created_at"`
}

type MessageResponse struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	SenderID       uuid.UUID        `json:"sender_id"`
	SenderName     string           `json:"sender_name,omitempty"`
	SenderAvatar   string           `json:"sender_avatar,omitempty"`
	Type           string           `json:"type"`
	Content        string           `json:"content"`
	Status         string           `json:"status"`
	Attachments    []AttachmentDTO  `json:"attachments,omitempty"`
	ReplyTo        *ReplyPreviewDTO `json:"reply_to,omitempty"`
	Reactions      []ReactionDTO    `json:"reactions"`
	ReadBy         []ReadReceiptDTO `json:"read_by,omitempty"`
	EditedAt       *string          `json:"edited_at,omitempty"`
	CreatedAt      string           `json:"created_at"`
}
