package service

import (
	"context"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/model"
	"CollabChatAPI/internal/repository"
	"CollabChatAPI/internal/websocket"

	"github.com/google/uuid"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		MaxFilesPerMessage:    5,
		MaxFileSizeMB:         50,
		ThumbnailMaxEdge:      200,
		MessageRateLimit:      30,
		MessageRateWindowSecs: 60,
	}
}

func testPrincipal(tenantID uuid.UUID) *model.UserDTO {
	return &model.UserDTO{ID: uuid.New(), TenantID: tenantID, Role: "member"}
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memoryUserRepo) add(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = &user
}

func (r *memoryUserRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) GetByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok && user.TenantID == tenantID {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) ListByTenant(_ context.Context, tenantID, excludeUserID uuid.UUID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if user.TenantID == tenantID && user.ID != excludeUserID && user.IsActive {
			out = append(out, *user)
		}
	}
	return out, nil
}

type memoryConversationRepo struct {
	mu     sync.Mutex
	convs  map[uuid.UUID]*domain.Conversation
	direct map[string]uuid.UUID
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{
		convs:  make(map[uuid.UUID]*domain.Conversation),
		direct: make(map[string]uuid.UUID),
	}
}

func directIndexKey(tenantID uuid.UUID, directKey string) string {
	return tenantID.String() + "/" + directKey
}

func (r *memoryConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv.Type == domain.ConversationDirect {
		key := directIndexKey(conv.TenantID, domain.DirectKey(conv.Participants[0].UserID, conv.Participants[1].UserID))
		if _, exists := r.direct[key]; exists {
			return repository.ErrDuplicateDirect
		}
		r.direct[key] = conv.ID
	}

	copied := *conv
	copied.Participants = append([]domain.Participant(nil), conv.Participants...)
	r.convs[conv.ID] = &copied
	return nil
}

func (r *memoryConversationRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.TenantID != tenantID {
		return nil, nil
	}
	return cloneConversation(conv), nil
}

func (r *memoryConversationRepo) FindDirect(_ context.Context, tenantID uuid.UUID, directKey string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.direct[directIndexKey(tenantID, directKey)]
	if !ok {
		return nil, nil
	}
	return cloneConversation(r.convs[id]), nil
}

func (r *memoryConversationRepo) ListForUser(_ context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range r.convs {
		if conv.TenantID == tenantID && conv.IsActive && conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		var ti, tj time.Time
		if out[i].LastMessage != nil {
			ti = out[i].LastMessage.Timestamp
		}
		if out[j].LastMessage != nil {
			tj = out[j].LastMessage.Timestamp
		}
		return ti.After(tj)
	})
	return out, nil
}

func (r *memoryConversationRepo) ListChannels(_ context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range r.convs {
		if conv.TenantID != tenantID || conv.Type != domain.ConversationChannel || !conv.IsActive {
			continue
		}
		if conv.IsPublic || conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	return out, nil
}

func (r *memoryConversationRepo) AddParticipant(_ context.Context, conversationID uuid.UUID, p domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.convs[conversationID]
	if conv == nil || conv.HasParticipant(p.UserID) {
		return nil
	}
	conv.Participants = append(conv.Participants, p)
	return nil
}

func (r *memoryConversationRepo) RemoveParticipant(_ context.Context, conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.convs[conversationID]
	if conv == nil {
		return nil
	}
	kept := conv.Participants[:0]
	for _, p := range conv.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	conv.Participants = kept
	return nil
}

func (r *memoryConversationRepo) updateLastRead(conversationID, userID uuid.UUID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv := r.convs[conversationID]; conv != nil {
		if p := conv.Participant(userID); p != nil {
			p.LastReadAt = at
		}
	}
}

func (r *memoryConversationRepo) UpdateLastMessage(_ context.Context, conversationID uuid.UUID, summary domain.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.convs[conversationID]
	if conv == nil {
		return nil
	}
	if conv.LastMessage == nil || !conv.LastMessage.Timestamp.After(summary.Timestamp) {
		copied := summary
		conv.LastMessage = &copied
	}
	return nil
}

func (r *memoryConversationRepo) Deactivate(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv := r.convs[id]; conv != nil && conv.TenantID == tenantID {
		conv.IsActive = false
	}
	return nil
}

func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	copied := *conv
	copied.Participants = append([]domain.Participant(nil), conv.Participants...)
	if conv.LastMessage != nil {
		lm := *conv.LastMessage
		copied.LastMessage = &lm
	}
	return &copied
}

type memoryMessageRepo struct {
	mu    sync.Mutex
	msgs  map[uuid.UUID]*domain.Message
	order []uuid.UUID

	convs *memoryConversationRepo
}

func newMemoryMessageRepo(convs *memoryConversationRepo) *memoryMessageRepo {
	return &memoryMessageRepo{
		msgs:  make(map[uuid.UUID]*domain.Message),
		convs: convs,
	}
}

func (r *memoryMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	copied.Attachments = append([]domain.Attachment(nil), msg.Attachments...)
	r.msgs[msg.ID] = &copied
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *memoryMessageRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.msgs[id]
	if !ok || msg.TenantID != tenantID {
		return nil, nil
	}
	return cloneMessage(msg), nil
}

func (r *memoryMessageRepo) Page(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newestFirst []domain.Message
	for i := len(r.order) - 1; i >= 0; i-- {
		msg := r.msgs[r.order[i]]
		if msg == nil || msg.ConversationID != conversationID {
			continue
		}
		newestFirst = append(newestFirst, *cloneMessage(msg))
	}
	if offset >= len(newestFirst) {
		return nil, nil
	}
	newestFirst = newestFirst[offset:]
	if limit < len(newestFirst) {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, nil
}

func (r *memoryMessageRepo) MarkAllRead(_ context.Context, conversationID, readerID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	for _, msg := range r.msgs {
		if msg.ConversationID != conversationID || msg.SenderID == readerID {
			continue
		}
		already := false
		for _, receipt := range msg.ReadBy {
			if receipt.UserID == readerID {
				already = true
				break
			}
		}
		if !already {
			msg.ReadBy = append(msg.ReadBy, domain.ReadReceipt{MessageID: msg.ID, UserID: readerID, ReadAt: at})
		}
		msg.Status = domain.StatusRead
	}
	r.mu.Unlock()

	r.convs.updateLastRead(conversationID, readerID, at)
	return nil
}

func (r *memoryMessageRepo) ToggleReaction(_ context.Context, messageID, userID uuid.UUID, emoji string, at time.Time) ([]domain.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.msgs[messageID]
	if msg == nil {
		return nil, nil
	}

	kept := msg.Reactions[:0]
	removed := false
	for _, reaction := range msg.Reactions {
		if reaction.UserID == userID && reaction.Emoji == emoji {
			removed = true
			continue
		}
		kept = append(kept, reaction)
	}
	msg.Reactions = kept
	if !removed {
		msg.Reactions = append(msg.Reactions, domain.Reaction{
			MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: at,
		})
	}

	return append([]domain.Reaction(nil), msg.Reactions...), nil
}

func (r *memoryMessageRepo) Edit(_ context.Context, messageID uuid.UUID, content string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.msgs[messageID]
	if msg == nil {
		return nil
	}
	if msg.OriginalContent == nil {
		original := msg.Content
		msg.OriginalContent = &original
	}
	msg.Content = content
	editedAt := at
	msg.EditedAt = &editedAt
	return nil
}

func (r *memoryMessageRepo) Delete(_ context.Context, messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.msgs, messageID)
	return nil
}

func (r *memoryMessageRepo) Search(_ context.Context, tenantID uuid.UUID, query string, conversationID *uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(query)
	var out []domain.Message
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		msg := r.msgs[r.order[i]]
		if msg == nil || msg.TenantID != tenantID {
			continue
		}
		if conversationID != nil && msg.ConversationID != *conversationID {
			continue
		}
		if strings.Contains(strings.ToLower(msg.Content), needle) {
			out = append(out, *cloneMessage(msg))
		}
	}
	return out, nil
}

func (r *memoryMessageRepo) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	counts, err := r.UnreadCounts(ctx, userID, []uuid.UUID{conversationID})
	if err != nil {
		return 0, err
	}
	return counts[conversationID], nil
}

func (r *memoryMessageRepo) UnreadCounts(_ context.Context, userID uuid.UUID, conversationIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.convs.mu.Lock()
	lastRead := make(map[uuid.UUID]time.Time, len(conversationIDs))
	for _, id := range conversationIDs {
		if conv := r.convs.convs[id]; conv != nil {
			if p := conv.Participant(userID); p != nil {
				lastRead[id] = p.LastReadAt
			}
		}
	}
	r.convs.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[uuid.UUID]int, len(conversationIDs))
	for _, msg := range r.msgs {
		checkpoint, ok := lastRead[msg.ConversationID]
		if !ok || msg.SenderID == userID {
			continue
		}
		if msg.CreatedAt.After(checkpoint) {
			counts[msg.ConversationID]++
		}
	}
	return counts, nil
}

func (r *memoryMessageRepo) UpdateAttachmentPreview(_ context.Context, attachmentID uuid.UUID, thumbnailURL string, width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.msgs {
		for i := range msg.Attachments {
			if msg.Attachments[i].ID == attachmentID {
				url := thumbnailURL
				w, h := width, height
				msg.Attachments[i].ThumbnailURL = &url
				msg.Attachments[i].Width = &w
				msg.Attachments[i].Height = &h
				return nil
			}
		}
	}
	return nil
}

func cloneMessage(msg *domain.Message) *domain.Message {
	copied := *msg
	copied.Attachments = append([]domain.Attachment(nil), msg.Attachments...)
	copied.Reactions = append([]domain.Reaction(nil), msg.Reactions...)
	copied.ReadBy = append([]domain.ReadReceipt(nil), msg.ReadBy...)
	return &copied
}

type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte)}
}

func (s *memoryBlobStore) Store(_ context.Context, file *multipart.FileHeader, key string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryBlobStore) StoreBytes(_ context.Context, data []byte, _ string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryBlobStore) PublicURL(key string) string {
	return "https://blobs.test/" + key
}

func (s *memoryBlobStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type recordedEvent struct {
	target string
	userID uuid.UUID
	event  websocket.Event
}

type recordingBroker struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroker) PublishToUser(userID uuid.UUID, event websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{target: "user", userID: userID, event: event})
}

func (b *recordingBroker) PublishToConversation(conversationID uuid.UUID, event websocket.Event, _ *uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{target: "conversation", userID: conversationID, event: event})
}

func (b *recordingBroker) Broadcast(event websocket.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{target: "broadcast", event: event})
}

func (b *recordingBroker) byType(eventType websocket.EventType) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, recorded := range b.events {
		if recorded.event.Type == eventType {
			out = append(out, recorded)
		}
	}
	return out
}
