package model

import "github.com/google/uuid"

type CreateConversationRequest struct {
	Type           string      `json:"type" validate:"required,conversation_type"`
	ParticipantID  *uuid.UUID  `json:"participant_id" validate:"required_if=Type direct"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" validate:"omitempty,dive"`
	Name           string      `json:"name" validate:"omitempty,max=100"`
	Description    string      `json:"description" validate:"omitempty,max=500"`
	ChannelType    string      `json:"channel_type" validate:"omitempty,oneof=general random project custom"`
	IsPublic       *bool       `json:"is_public"`
	ProjectID      *uuid.UUID  `json:"project_id"`
}

type AddParticipantRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"omitempty,oneof=admin member readonly"`
}

type ParticipantDTO struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	JoinedAt   string    `json:"joined_at"`
	LastReadAt string    `json:"last_read_at"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
}

type LastMessageDTO struct {
	Content   string    `json:"content"`
	SenderID  uuid.UUID `json:"sender_id"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
}

type ConversationResponse struct {
	ID           uuid.UUID        `json:"id"`
	Type         string           `json:"type"`
	Name         string           `json:"name,omitempty"`
	Description  string           `json:"description,omitempty"`
	ChannelType  string           `json:"channel_type,omitempty"`
	IsPublic     *bool            `json:"is_public,omitempty"`
	ProjectID    *uuid.UUID       `json:"project_id,omitempty"`
	Participants []ParticipantDTO `json:"participants,omitempty"`
	LastMessage  *LastMessageDTO  `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	CreatedBy    uuid.UUID        `json:"created_by"`
	CreatedAt    string           `json:"created_at"`
}
