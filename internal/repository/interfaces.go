package repository

import (
	"context"
	"errors"
	"time"

	"CollabChatAPI/internal/domain"

	"github.com/google/uuid"
)

// ErrDuplicateDirect is returned by ConversationRepository.Create when the
// unique (tenant, direct pair) index rejects a concurrent direct-conversation
// insert. Callers re-fetch and return the winning row instead of failing.
var ErrDuplicateDirect = errors.New("direct conversation already exists")

// UserRepository reads the directory projection maintained by the external
// user directory. This service never writes it.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.User, error)
	ListByTenant(ctx context.Context, tenantID, excludeUserID uuid.UUID) ([]domain.User, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	// GetByID is tenant-scoped: a cross-tenant id behaves as absent.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error)
	FindDirect(ctx context.Context, tenantID uuid.UUID, directKey string) (*domain.Conversation, error)
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error)
	ListChannels(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error)
	AddParticipant(ctx context.Context, conversationID uuid.UUID, p domain.Participant) error
	RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	// UpdateLastMessage applies the summary only when it is not older than
	// the one currently stored (last-write-wins by message timestamp).
	UpdateLastMessage(ctx context.Context, conversationID uuid.UUID, summary domain.LastMessage) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Message, error)
	// Page returns messages newest-first; callers re-reverse for display.
	Page(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error)
	// MarkAllRead atomically records a read receipt for every message in the
	// conversation not authored by readerID and not already read by them,
	// and advances the reader's participant checkpoint.
	MarkAllRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) error
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string, at time.Time) ([]domain.Reaction, error)
	Edit(ctx context.Context, messageID uuid.UUID, content string, at time.Time) error
	Delete(ctx context.Context, messageID uuid.UUID) error
	Search(ctx context.Context, tenantID uuid.UUID, query string, conversationID *uuid.UUID, limit int) ([]domain.Message, error)
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID) (map[uuid.UUID]int, error)
	UpdateAttachmentPreview(ctx context.Context, attachmentID uuid.UUID, thumbnailURL string, width, height int) error
}
