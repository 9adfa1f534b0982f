package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/model"
	"CollabChatAPI/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	cfg           *config.AppConfig
	validator     *validator.Validate
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	cfg *config.AppConfig,
	validator *validator.Validate,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		cfg:           cfg,
		validator:     validator,
	}
}

func (s *ConversationService) Create(ctx context.Context, user *model.UserDTO, req model.CreateConversationRequest) (*model.ConversationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for Create conversation", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	if domain.ConversationType(req.Type) == domain.ConversationDirect {
		return s.findOrCreateDirect(ctx, user, *req.ParticipantID)
	}

	return s.createGrouped(ctx, user, req)
}

// findOrCreateDirect returns the existing direct conversation for the pair
// when there is one. Two racing creates resolve through the unique pair
// index: the loser re-fetches the winner's row.
func (s *ConversationService) findOrCreateDirect(ctx context.Context, user *model.UserDTO, participantID uuid.UUID) (*model.ConversationResponse, error) {
	if participantID == user.ID {
		return nil, helper.NewBadRequestError("Cannot start a direct conversation with yourself.")
	}

	other, err := s.users.GetByID(ctx, user.TenantID, participantID)
	if err != nil {
		slog.Error("Failed to look up direct participant", "error", err)
		return nil, helper.NewInternalServerError("")
	}
	if other == nil || !other.IsActive {
		return nil, helper.NewBadRequestError("Participant not found.")
	}

	directKey := domain.DirectKey(user.ID, participantID)

	existing, err := s.conversations.FindDirect(ctx, user.TenantID, directKey)
	if err != nil {
		slog.Error("Failed to look up direct conversation", "error", err)
		return nil, helper.NewInternalServerError("")
	}
	if existing != nil {
		return s.toResponse(ctx, user, existing)
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:        uuid.New(),
		TenantID:  user.TenantID,
		Type:      domain.ConversationDirect,
		IsActive:  true,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []domain.Participant{
			{UserID: user.ID, Role: domain.RoleMember, JoinedAt: now, LastReadAt: now},
			{UserID: participantID, Role: domain.RoleMember, JoinedAt: now, LastReadAt: now},
		},
	}

	err = s.conversations.Create(ctx, conv)
	if errors.Is(err, repository.ErrDuplicateDirect) {
		winner, ferr := s.conversations.FindDirect(ctx, user.TenantID, directKey)
		if ferr != nil || winner == nil {
			slog.Error("Failed to fetch direct conversation after conflict", "error", ferr)
			return nil, helper.NewInternalServerError("")
		}
		return s.toResponse(ctx, user, winner)
	}
	if err != nil {
		slog.Error("Failed to create direct conversation", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	return s.toResponse(ctx, user, conv)
}

func (s *ConversationService) createGrouped(ctx context.Context, user *model.UserDTO, req model.CreateConversationRequest) (*model.ConversationResponse, error) {
	if req.Name == "" {
		return nil, helper.NewBadRequestError("Name is required.")
	}

	memberIDs := dedupeIDs(req.ParticipantIDs, user.ID)
	if len(memberIDs) > 0 {
		members, err := s.users.GetByIDs(ctx, user.TenantID, memberIDs)
		if err != nil {
			slog.Error("Failed to query participants for conversation creation", "error", err)
			return nil, helper.NewInternalServerError("")
		}
		if len(members) != len(memberIDs) {
			return nil, helper.NewBadRequestError("One or more participants not found.")
		}
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:          uuid.New(),
		TenantID:    user.TenantID,
		Type:        domain.ConversationType(req.Type),
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		IsActive:    true,
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if conv.Type == domain.ConversationChannel {
		conv.ChannelType = domain.ChannelCustom
		if req.ChannelType != "" {
			conv.ChannelType = domain.ChannelType(req.ChannelType)
		}
		if req.IsPublic != nil {
			conv.IsPublic = *req.IsPublic
		}
	}

	conv.Participants = append(conv.Participants, domain.Participant{
		UserID: user.ID, Role: domain.RoleAdmin, JoinedAt: now, LastReadAt: now,
	})
	for _, id := range memberIDs {
		conv.Participants = append(conv.Participants, domain.Participant{
			UserID: id, Role: domain.RoleMember, JoinedAt: now, LastReadAt: now,
		})
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		slog.Error("Failed to create conversation", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	return s.toResponse(ctx, user, conv)
}

func (s *ConversationService) List(ctx context.Context, user *model.UserDTO) ([]model.ConversationResponse, error) {
	convs, err := s.conversations.ListForUser(ctx, user.TenantID, user.ID)
	if err != nil {
		slog.Error("Failed to list conversations", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	ids := make([]uuid.UUID, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}

	counts, err := s.messages.UnreadCounts(ctx, user.ID, ids)
	if err != nil {
		slog.Error("Failed to compute unread counts", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	responses := make([]model.ConversationResponse, 0, len(convs))
	for i := range convs {
		responses = append(responses, *helper.ToConversationResponse(&convs[i], counts[convs[i].ID]))
	}

	return responses, nil
}

// AvailableChannels lists the tenant's channels the user can see, meaning
// public ones plus any the user already belongs to.
func (s *ConversationService) AvailableChannels(ctx context.Context, user *model.UserDTO) ([]model.ConversationResponse, error) {
	channels, err := s.conversations.ListChannels(ctx, user.TenantID, user.ID)
	if err != nil {
		slog.Error("Failed to list channels", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	responses := make([]model.ConversationResponse, 0, len(channels))
	for i := range channels {
		responses = append(responses, *helper.ToConversationResponse(&channels[i], 0))
	}

	return responses, nil
}

// JoinChannel is idempotent. Only public channels can be joined without an
// invite; everything else is reported as not found so membership of private
// conversations is not leaked.
func (s *ConversationService) JoinChannel(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) (*model.ConversationResponse, error) {
	conv, err := s.conversations.GetByID(ctx, user.TenantID, conversationID)
	if err != nil {
		slog.Error("Failed to fetch channel", "error", err)
		return nil, helper.NewInternalServerError("")
	}
	if conv == nil || conv.Type != domain.ConversationChannel {
		return nil, helper.NewNotFoundError("Channel not found.")
	}

	if conv.HasParticipant(user.ID) {
		return s.toResponse(ctx, user, conv)
	}

	if !conv.IsPublic {
		return nil, helper.NewNotFoundError("Channel not found.")
	}

	now := time.Now()
	participant := domain.Participant{
		ConversationID: conv.ID,
		UserID:         user.ID,
		Role:           domain.RoleMember,
		JoinedAt:       now,
		LastReadAt:     now,
	}
	if err := s.conversations.AddParticipant(ctx, conv.ID, participant); err != nil {
		slog.Error("Failed to join channel", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	conv.Participants = append(conv.Participants, participant)
	return s.toResponse(ctx, user, conv)
}

func (s *ConversationService) AddParticipant(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID, req model.AddParticipantRequest) error {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for AddParticipant", "error", err)
		return helper.NewBadRequestError("")
	}

	conv, err := s.requireMembership(ctx, user, conversationID)
	if err != nil {
		return err
	}

	if conv.Type == domain.ConversationDirect {
		return helper.NewBadRequestError("Direct conversations cannot gain participants.")
	}

	if p := conv.Participant(user.ID); p.Role != domain.RoleAdmin {
		return helper.NewForbiddenError("Only admins can add participants.")
	}

	if conv.HasParticipant(req.UserID) {
		return nil
	}

	target, err := s.users.GetByID(ctx, user.TenantID, req.UserID)
	if err != nil {
		slog.Error("Failed to look up participant", "error", err)
		return helper.NewInternalServerError("")
	}
	if target == nil || !target.IsActive {
		return helper.NewBadRequestError("User not found.")
	}

	role := domain.RoleMember
	if req.Role != "" {
		role = domain.ParticipantRole(req.Role)
	}

	now := time.Now()
	err = s.conversations.AddParticipant(ctx, conv.ID, domain.Participant{
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Role:           role,
		JoinedAt:       now,
		LastReadAt:     now,
	})
	if err != nil {
		slog.Error("Failed to add participant", "error", err)
		return helper.NewInternalServerError("")
	}

	return nil
}

// RemoveParticipant covers both kick and leave. Leaving is always allowed;
// removing someone else requires the admin role.
func (s *ConversationService) RemoveParticipant(ctx context.Context, user *model.UserDTO, conversationID, targetUserID uuid.UUID) error {
	conv, err := s.requireMembership(ctx, user, conversationID)
	if err != nil {
		return err
	}

	if conv.Type == domain.ConversationDirect {
		return helper.NewBadRequestError("Direct conversations cannot lose participants.")
	}

	if targetUserID != user.ID {
		if p := conv.Participant(user.ID); p.Role != domain.RoleAdmin {
			return helper.NewForbiddenError("Only admins can remove participants.")
		}
	}

	if !conv.HasParticipant(targetUserID) {
		return nil
	}

	if err := s.conversations.RemoveParticipant(ctx, conv.ID, targetUserID); err != nil {
		slog.Error("Failed to remove participant", "error", err)
		return helper.NewInternalServerError("")
	}

	return nil
}

// Deactivate soft-deletes a grouped conversation. Admin-only; direct
// conversations cannot be deleted. Message history stays in place, the
// conversation just stops resolving.
func (s *ConversationService) Deactivate(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) error {
	conv, err := s.requireMembership(ctx, user, conversationID)
	if err != nil {
		return err
	}

	if conv.Type == domain.ConversationDirect {
		return helper.NewBadRequestError("Direct conversations cannot be deleted.")
	}

	if p := conv.Participant(user.ID); p.Role != domain.RoleAdmin {
		return helper.NewForbiddenError("Only admins can delete a conversation.")
	}

	if err := s.conversations.Deactivate(ctx, user.TenantID, conv.ID); err != nil {
		slog.Error("Failed to deactivate conversation", "error", err)
		return helper.NewInternalServerError("")
	}

	return nil
}

// AvailableUsers lists the tenant's active users, excluding the requester,
// as direct-conversation candidates.
func (s *ConversationService) AvailableUsers(ctx context.Context, user *model.UserDTO) ([]model.UserResponse, error) {
	users, err := s.users.ListByTenant(ctx, user.TenantID, user.ID)
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	responses := make([]model.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *helper.ToUserResponse(&users[i]))
	}

	return responses, nil
}

// requireMembership fetches the conversation within the caller's tenant and
// rejects non-participants. A conversation in another tenant and a
// conversation that does not exist are indistinguishable to the caller.
func (s *ConversationService) requireMembership(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, user.TenantID, conversationID)
	if err != nil {
		slog.Error("Failed to fetch conversation", "error", err)
		return nil, helper.NewInternalServerError("")
	}
	if conv == nil || !conv.IsActive {
		return nil, helper.NewNotFoundError("Conversation not found.")
	}
	if !conv.HasParticipant(user.ID) {
		return nil, helper.NewForbiddenError("You are not a participant of this conversation.")
	}

	return conv, nil
}

func (s *ConversationService) toResponse(ctx context.Context, user *model.UserDTO, conv *domain.Conversation) (*model.ConversationResponse, error) {
	unread, err := s.messages.UnreadCount(ctx, conv.ID, user.ID)
	if err != nil {
		slog.Error("Failed to compute unread count", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	return helper.ToConversationResponse(conv, unread), nil
}

func dedupeIDs(ids []uuid.UUID, exclude uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == exclude || id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
