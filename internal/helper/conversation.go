package helper

import (
	"time"

	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/model"
)

func ToConversationResponse(conv *domain.Conversation, unreadCount int) *model.ConversationResponse {
	resp := &model.ConversationResponse{
		ID:          conv.ID,
		Type:        string(conv.Type),
		Name:        conv.Name,
		Description: conv.Description,
		ProjectID:   conv.ProjectID,
		UnreadCount: unreadCount,
		CreatedBy:   conv.CreatedBy,
		CreatedAt:   conv.CreatedAt.Format(time.RFC3339),
	}

	if conv.Type == domain.ConversationChannel {
		resp.ChannelType = string(conv.ChannelType)
		isPublic := conv.IsPublic
		resp.IsPublic = &isPublic
	}

	if conv.LastMessage != nil {
		resp.LastMessage = &model.LastMessageDTO{
			Content:   conv.LastMessage.Content,
			SenderID:  conv.LastMessage.SenderID,
			Timestamp: conv.LastMessage.Timestamp.Format(time.RFC3339),
			Type:      string(conv.LastMessage.Type),
		}
	}

	for _, p := range conv.Participants {
		resp.Participants = append(resp.Participants, toParticipantDTO(p))
	}

	return resp
}

func toParticipantDTO(p domain.Participant) model.ParticipantDTO {
	dto := model.ParticipantDTO{
		UserID:     p.UserID,
		Role:       string(p.Role),
		JoinedAt:   p.JoinedAt.Format(time.RFC3339),
		LastReadAt: p.LastReadAt.Format(time.RFC3339),
	}

	if p.User != nil {
		dto.FirstName = p.User.FirstName
		dto.LastName = p.User.LastName
		dto.Email = p.User.Email
		dto.AvatarURL = p.User.AvatarURL
	}

	return dto
}

func ToUserResponse(user *domain.User) *model.UserResponse {
	return &model.UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
	}
}
