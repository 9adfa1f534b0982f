package helper

import (
	"time"

	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/model"
)

func ToMessageResponse(msg *domain.Message) *model.MessageResponse {
	resp := &model.MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Type:           string(msg.Type),
		Content:        msg.Content,
		Status:         string(msg.Status),
		Reactions:      []model.ReactionDTO{},
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
	}

	if msg.Sender != nil {
		resp.SenderName = msg.Sender.FullName()
		resp.SenderAvatar = msg.Sender.AvatarURL
	}

	if msg.EditedAt != nil {
		editedAt := msg.EditedAt.Format(time.RFC3339)
		resp.EditedAt = &editedAt
	}

	for _, att := range msg.Attachments {
		resp.Attachments = append(resp.Attachments, model.AttachmentDTO{
			ID:           att.ID,
			FileName:     att.FileName,
			OriginalName: att.OriginalName,
			MimeType:     att.MimeType,
			Size:         att.Size,
			URL:          att.URL,
			ThumbnailURL: att.ThumbnailURL,
			Width:        att.Width,
			Height:       att.Height,
			Duration:     att.Duration,
		})
	}

	for _, reaction := range msg.Reactions {
		resp.Reactions = append(resp.Reactions, toReactionDTO(reaction))
	}

	for _, receipt := range msg.ReadBy {
		resp.ReadBy = append(resp.ReadBy, model.ReadReceiptDTO{
			UserID: receipt.UserID,
			ReadAt: receipt.ReadAt.Format(time.RFC3339),
		})
	}

	if msg.ReplyTo != nil {
		resp.ReplyTo = toReplyPreview(msg.ReplyTo)
	}

	return resp
}

func toReactionDTO(reaction domain.Reaction) model.ReactionDTO {
	return model.ReactionDTO{
		UserID:    reaction.UserID,
		Emoji:     reaction.Emoji,
		CreatedAt: reaction.CreatedAt.Format(time.RFC3339),
	}
}

func ToReactionDTOs(reactions []domain.Reaction) []model.ReactionDTO {
	out := make([]model.ReactionDTO, 0, len(reactions))
	for _, reaction := range reactions {
		out = append(out, toReactionDTO(reaction))
	}
	return out
}

func toReplyPreview(msg *domain.Message) *model.ReplyPreviewDTO {
	preview := &model.ReplyPreviewDTO{
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Type:      string(msg.Type),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}

	if msg.Sender != nil {
		preview.SenderName = msg.Sender.FullName()
	}

	return preview
}
