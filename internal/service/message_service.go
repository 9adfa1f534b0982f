package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"CollabChatAPI/internal/adapter"
	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/model"
	"CollabChatAPI/internal/repository"
	"CollabChatAPI/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var allowedMimeTypes = map[string]domain.MessageType{
	"image/jpeg": domain.MessageImage,
	"image/png":  domain.MessageImage,
	"image/gif":  domain.MessageImage,
	"image/webp": domain.MessageImage,

	"audio/mpeg": domain.MessageAudio,
	"audio/ogg":  domain.MessageAudio,
	"audio/wav":  domain.MessageAudio,
	"audio/webm": domain.MessageAudio,

	"video/mp4":       domain.MessageVideo,
	"video/webm":      domain.MessageVideo,
	"video/quicktime": domain.MessageVideo,

	"application/pdf":    domain.MessageFile,
	"application/msword": domain.MessageFile,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.MessageFile,
	"application/vnd.ms-excel": domain.MessageFile,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": domain.MessageFile,
	"text/plain": domain.MessageFile,
	"text/csv":   domain.MessageFile,
}

// BlobStore is the attachment storage surface the service depends on. The
// S3 adapter implements it in production.
type BlobStore interface {
	Store(ctx context.Context, file *multipart.FileHeader, key string) error
	StoreBytes(ctx context.Context, data []byte, contentType string, key string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type MessageService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	cfg           *config.AppConfig
	validator     *validator.Validate
	broker        websocket.Broker
	storage       BlobStore
}

func NewMessageService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	cfg *config.AppConfig,
	validator *validator.Validate,
	broker websocket.Broker,
	storage BlobStore,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		cfg:           cfg,
		validator:     validator,
		broker:        broker,
		storage:       storage,
	}
}

func (s *MessageService) Send(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID, req model.SendMessageRequest) (*model.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for Send", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	conv, err := s.requireSender(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		TenantID:       user.TenantID,
		SenderID:       user.ID,
		Content:        req.Content,
		Type:           domain.MessageText,
		Status:         domain.StatusSent,
		CreatedAt:      time.Now(),
	}

	if req.ReplyToID != nil {
		target, err := s.messages.GetByID(ctx, user.TenantID, *req.ReplyToID)
		if err != nil {
			slog.Error("Failed to fetch reply target", "error", err)
			return nil, helper.NewInternalServerError("")
		}
		if target == nil || target.ConversationID != conv.ID {
			return nil, helper.NewBadRequestError("Reply target not found in this conversation.")
		}
		msg.ReplyToID = req.ReplyToID
		msg.ReplyTo = target
	}

	return s.commit(ctx, user, conv, msg)
}

func (s *MessageService) SendFiles(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID, content string, files []*multipart.FileHeader) (*model.MessageResponse, error) {
	if len(files) == 0 {
		return nil, helper.NewBadRequestError("No files provided.")
	}
	if len(files) > s.cfg.MaxFilesPerMessage {
		return nil, helper.NewBadRequestError(fmt.Sprintf("At most %d files per message.", s.cfg.MaxFilesPerMessage))
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return nil, helper.NewBadRequestError("")
	}

	conv, err := s.requireSender(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}

	maxSize := int64(s.cfg.MaxFileSizeMB) << 20
	msgType := domain.MessageFile
	for i, file := range files {
		if file.Size > maxSize {
			return nil, helper.NewBadRequestError(fmt.Sprintf("File exceeds the %dMB limit.", s.cfg.MaxFileSizeMB))
		}
		fileType, ok := allowedMimeTypes[normalizeMime(file.Header.Get("Content-Type"))]
		if !ok {
			return nil, helper.NewBadRequestError("Unsupported file type.")
		}
		if i == 0 {
			msgType = fileType
		}
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		TenantID:       user.TenantID,
		SenderID:       user.ID,
		Content:        content,
		Type:           msgType,
		Status:         domain.StatusSent,
		CreatedAt:      time.Now(),
	}

	var storedKeys []string
	for _, file := range files {
		key := adapter.NewFileKey(file.Filename)
		if err := s.storage.Store(ctx, file, key); err != nil {
			slog.Error("Failed to store attachment", "error", err, "file", file.Filename)
			s.cleanupStored(storedKeys)
			return nil, helper.NewInternalServerError("")
		}
		storedKeys = append(storedKeys, key)

		msg.Attachments = append(msg.Attachments, domain.Attachment{
			ID:           uuid.New(),
			MessageID:    msg.ID,
			FileName:     key,
			OriginalName: file.Filename,
			MimeType:     normalizeMime(file.Header.Get("Content-Type")),
			Size:         file.Size,
			URL:          s.storage.PublicURL(key),
		})
	}

	resp, err := s.commit(ctx, user, conv, msg)
	if err != nil {
		s.cleanupStored(storedKeys)
		return nil, err
	}

	for i := range msg.Attachments {
		att := msg.Attachments[i]
		if !strings.HasPrefix(att.MimeType, "image/") {
			continue
		}
		// The multipart temp files are removed as soon as the handler
		// returns, so the image bytes must be read before replying. Only
		// the preview work itself runs detached.
		data, err := readAll(files[i])
		if err != nil {
			slog.Warn("Failed to read attachment for thumbnail", "error", err, "attachmentID", att.ID)
			continue
		}
		go s.generateThumbnail(data, att)
	}

	return resp, nil
}

func readAll(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// commit persists the message, bumps the conversation summary, and fans the
// event out. Fan-out and summary failures are logged, never surfaced; the
// message is already durable at that point.
func (s *MessageService) commit(ctx context.Context, user *model.UserDTO, conv *domain.Conversation, msg *domain.Message) (*model.MessageResponse, error) {
	if err := s.messages.Create(ctx, msg); err != nil {
		slog.Error("Failed to persist message", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	summary := domain.LastMessage{
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		Timestamp: msg.CreatedAt,
		Type:      msg.Type,
	}
	if err := s.conversations.UpdateLastMessage(ctx, conv.ID, summary); err != nil {
		slog.Error("Failed to update conversation summary", "error", err, "conversationID", conv.ID)
	}

	resp := helper.ToMessageResponse(msg)
	conversationID := conv.ID
	senderID := user.ID

	s.broker.PublishToUser(senderID, websocket.NewEvent(websocket.EventMessageSent, &conversationID, &senderID, resp))
	for _, p := range conv.Participants {
		if p.UserID == senderID {
			continue
		}
		s.broker.PublishToUser(p.UserID, websocket.NewEvent(websocket.EventMessageReceived, &conversationID, &senderID, resp))
	}

	return resp, nil
}

func (s *MessageService) List(ctx context.Context, user *model.UserDTO, req model.GetMessagesRequest) ([]model.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for List messages", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	if _, err := s.requireMembership(ctx, user, req.ConversationID); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	page, err := s.messages.Page(ctx, req.ConversationID, limit, req.Offset)
	if err != nil {
		slog.Error("Failed to load messages", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	// The page is fetched newest-first and returned oldest-first so a
	// client can render it top to bottom.
	responses := make([]model.MessageResponse, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		responses = append(responses, *helper.ToMessageResponse(&page[i]))
	}

	return responses, nil
}

func (s *MessageService) MarkRead(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) error {
	if _, err := s.requireMembership(ctx, user, conversationID); err != nil {
		return err
	}

	if err := s.messages.MarkAllRead(ctx, conversationID, user.ID, time.Now()); err != nil {
		slog.Error("Failed to mark conversation read", "error", err)
		return helper.NewInternalServerError("")
	}

	return nil
}

func (s *MessageService) ToggleReaction(ctx context.Context, user *model.UserDTO, messageID uuid.UUID, req model.ReactionRequest) ([]model.ReactionDTO, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for ToggleReaction", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	msg, err := s.requireMessage(ctx, user, messageID)
	if err != nil {
		return nil, err
	}

	hadReaction := false
	for _, reaction := range msg.Reactions {
		if reaction.UserID == user.ID && reaction.Emoji == req.Emoji {
			hadReaction = true
			break
		}
	}

	reactions, err := s.messages.ToggleReaction(ctx, msg.ID, user.ID, req.Emoji, time.Now())
	if err != nil {
		slog.Error("Failed to toggle reaction", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	eventType := websocket.EventReactionAdded
	if hadReaction {
		eventType = websocket.EventReactionRemoved
	}

	dtos := helper.ToReactionDTOs(reactions)
	conversationID := msg.ConversationID
	senderID := user.ID
	s.broker.PublishToConversation(conversationID, websocket.NewEvent(eventType, &conversationID, &senderID, map[string]interface{}{
		"message_id": msg.ID,
		"user_id":    user.ID,
		"emoji":      req.Emoji,
		"reactions":  dtos,
	}), nil)

	return dtos, nil
}

func (s *MessageService) Edit(ctx context.Context, user *model.UserDTO, messageID uuid.UUID, req model.EditMessageRequest) (*model.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for Edit", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	msg, err := s.requireMessage(ctx, user, messageID)
	if err != nil {
		return nil, err
	}

	if msg.SenderID != user.ID {
		return nil, helper.NewForbiddenError("Only the sender can edit a message.")
	}
	if msg.Type != domain.MessageText {
		return nil, helper.NewBadRequestError("Only text messages can be edited.")
	}

	now := time.Now()
	if err := s.messages.Edit(ctx, msg.ID, req.Content, now); err != nil {
		slog.Error("Failed to edit message", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	msg.Content = req.Content
	msg.EditedAt = &now
	resp := helper.ToMessageResponse(msg)

	conversationID := msg.ConversationID
	senderID := user.ID
	s.broker.PublishToConversation(conversationID, websocket.NewEvent(websocket.EventMessageEdited, &conversationID, &senderID, resp), nil)

	return resp, nil
}

func (s *MessageService) Delete(ctx context.Context, user *model.UserDTO, messageID uuid.UUID) error {
	msg, err := s.requireMessage(ctx, user, messageID)
	if err != nil {
		return err
	}

	if msg.SenderID != user.ID {
		return helper.NewForbiddenError("Only the sender can delete a message.")
	}

	if err := s.messages.Delete(ctx, msg.ID); err != nil {
		slog.Error("Failed to delete message", "error", err)
		return helper.NewInternalServerError("")
	}

	for _, att := range msg.Attachments {
		keys := []string{att.FileName}
		if att.ThumbnailURL != nil {
			keys = append(keys, adapter.ThumbnailKey(att.FileName))
		}
		s.cleanupStored(keys)
	}

	conversationID := msg.ConversationID
	senderID := user.ID
	s.broker.PublishToConversation(conversationID, websocket.NewEvent(websocket.EventMessageDeleted, &conversationID, &senderID, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": conversationID,
	}), nil)

	return nil
}

func (s *MessageService) Search(ctx context.Context, user *model.UserDTO, req model.SearchMessagesRequest) ([]model.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed for Search", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	if req.ConversationID != nil {
		if _, err := s.requireMembership(ctx, user, *req.ConversationID); err != nil {
			return nil, err
		}
	}

	results, err := s.messages.Search(ctx, user.TenantID, req.Query, req.ConversationID, 50)
	if err != nil {
		slog.Error("Failed to search messages", "error", err)
		return nil, helper.NewInternalServerError("")
	}

	responses := make([]model.MessageResponse, 0, len(results))
	for i := range results {
		if req.ConversationID == nil {
			// A tenant-wide search still only surfaces conversations
			// the caller belongs to.
			conv, err := s.conversations.GetByID(ctx, user.TenantID, results[i].ConversationID)
			if err != nil || conv == nil || !conv.HasParticipant(user.ID) {
				continue
			}
		}
		responses = append(responses, *helper.ToMessageResponse(&results[i]))
	}

	return responses, nil
}

func (s *MessageService) requireMembership(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) (*domain.Conversation, error) {
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

func (s *MessageService) requireSender(ctx context.Context, user *model.UserDTO, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.requireMembership(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}

	if p := conv.Participant(user.ID); p.Role == domain.RoleReadonly {
		return nil, helper.NewForbiddenError("You cannot post in this conversation.")
	}

	return conv, nil
}

func (s *MessageService) requireMessage(ctx context.Context, user *model.UserDTO, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, user.TenantID, messageID)
	if err != nil {
		slog.Error("Failed to fetch message", "error", err)
		return nil, helper.NewInternalServerError("")
	}
	if msg == nil {
		return nil, helper.NewNotFoundError("Message not found.")
	}

	if _, err := s.requireMembership(ctx, user, msg.ConversationID); err != nil {
		return nil, err
	}

	return msg, nil
}

func (s *MessageService) generateThumbnail(data []byte, att domain.Attachment) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	preview, err := adapter.GenerateImagePreview(bytes.NewReader(data), s.cfg.ThumbnailMaxEdge)
	if err != nil {
		slog.Warn("Failed to generate thumbnail", "error", err, "attachmentID", att.ID)
		return
	}

	thumbKey := adapter.ThumbnailKey(att.FileName)
	if err := s.storage.StoreBytes(ctx, preview.Data, preview.MimeType, thumbKey); err != nil {
		slog.Error("Failed to store thumbnail", "error", err, "attachmentID", att.ID)
		return
	}

	thumbnailURL := s.storage.PublicURL(thumbKey)
	if err := s.messages.UpdateAttachmentPreview(ctx, att.ID, thumbnailURL, preview.SourceWidth, preview.SourceHeight); err != nil {
		slog.Error("Failed to record thumbnail", "error", err, "attachmentID", att.ID)
	}
}

func (s *MessageService) cleanupStored(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Warn("Failed to delete stored object", "error", err, "key", key)
		}
	}
}

func normalizeMime(contentType string) string {
	mime := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
