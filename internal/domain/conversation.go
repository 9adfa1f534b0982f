package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationChannel ConversationType = "channel"
	ConversationProject ConversationType = "project"
	ConversationSupport ConversationType = "support"
)

type ParticipantRole string

const (
	RoleAdmin    ParticipantRole = "admin"
	RoleMember   ParticipantRole = "member"
	RoleReadonly ParticipantRole = "readonly"
)

type ChannelType string

const (
	ChannelGeneral ChannelType = "general"
	ChannelRandom  ChannelType = "random"
	ChannelProject ChannelType = "project"
	ChannelCustom  ChannelType = "custom"
)

// LastMessage is the denormalized summary a conversation carries about its
// most recently committed message. It is updated with a timestamp guard so a
// slow concurrent append can never overwrite a newer summary.
type LastMessage struct {
	Content   string
	SenderID  uuid.UUID
	Timestamp time.Time
	Type      MessageType
}

type Participant struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           ParticipantRole
	JoinedAt       time.Time
	LastReadAt     time.Time

	User *User
}

type Conversation struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Type        ConversationType
	Name        string
	Description string
	ChannelType ChannelType
	IsPublic    bool
	ProjectID   *uuid.UUID
	LastMessage *LastMessage
	IsActive    bool
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Participants []Participant
}

func (c *Conversation) Participant(userID uuid.UUID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.Participant(userID) != nil
}

// DirectKey builds the canonical unordered-pair key used by the unique index
// that guards against duplicate direct conversations within a tenant.
func DirectKey(a, b uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s", a, b)
}
