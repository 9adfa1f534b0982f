package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"CollabChatAPI/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubConversationRepo struct {
	conv *domain.Conversation
}

func (r *stubConversationRepo) Create(context.Context, *domain.Conversation) error { return nil }

func (r *stubConversationRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	if r.conv != nil && r.conv.ID == id && r.conv.TenantID == tenantID {
		return r.conv, nil
	}
	return nil, nil
}

func (r *stubConversationRepo) FindDirect(context.Context, uuid.UUID, string) (*domain.Conversation, error) {
	return nil, nil
}

func (r *stubConversationRepo) ListForUser(context.Context, uuid.UUID, uuid.UUID) ([]domain.Conversation, error) {
	return nil, nil
}

func (r *stubConversationRepo) ListChannels(context.Context, uuid.UUID, uuid.UUID) ([]domain.Conversation, error) {
	return nil, nil
}

func (r *stubConversationRepo) AddParticipant(context.Context, uuid.UUID, domain.Participant) error {
	return nil
}

func (r *stubConversationRepo) RemoveParticipant(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (r *stubConversationRepo) UpdateLastMessage(context.Context, uuid.UUID, domain.LastMessage) error {
	return nil
}

func (r *stubConversationRepo) Deactivate(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func newTestClient(hub *Hub, userID, tenantID uuid.UUID) *Client {
	return NewClient(hub, nil, userID, tenantID)
}

func receiveEvent(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case data := <-client.Send:
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestPublishToUser(t *testing.T) {
	hub := NewHub(&stubConversationRepo{})
	userID := uuid.New()
	tenantID := uuid.New()

	first := newTestClient(hub, userID, tenantID)
	second := newTestClient(hub, userID, tenantID)
	other := newTestClient(hub, uuid.New(), tenantID)

	hub.clients[first] = true
	hub.clients[second] = true
	hub.clients[other] = true
	hub.userClients[userID] = map[*Client]bool{first: true, second: true}
	hub.userClients[other.UserID] = map[*Client]bool{other: true}

	senderID := uuid.New()
	hub.PublishToUser(userID, NewEvent(EventMessageReceived, nil, &senderID, map[string]string{"content": "hi"}))

	// Every connection of the target user gets the frame.
	assert.Equal(t, EventMessageReceived, receiveEvent(t, first).Type)
	assert.Equal(t, EventMessageReceived, receiveEvent(t, second).Type)
	assert.Empty(t, other.Send)
}

func TestPublishToConversation(t *testing.T) {
	hub := NewHub(&stubConversationRepo{})
	conversationID := uuid.New()
	tenantID := uuid.New()

	subscriber := newTestClient(hub, uuid.New(), tenantID)
	subscriber.subscribe(conversationID)
	excluded := newTestClient(hub, uuid.New(), tenantID)
	excluded.subscribe(conversationID)
	bystander := newTestClient(hub, uuid.New(), tenantID)

	hub.clients[subscriber] = true
	hub.clients[excluded] = true
	hub.clients[bystander] = true

	hub.PublishToConversation(conversationID, NewEvent(EventTypingStart, &conversationID, &excluded.UserID, nil), &excluded.UserID)

	assert.Equal(t, EventTypingStart, receiveEvent(t, subscriber).Type)
	assert.Empty(t, excluded.Send)
	assert.Empty(t, bystander.Send)
}

func TestPresenceOnRegisterUnregister(t *testing.T) {
	hub := NewHub(&stubConversationRepo{})
	go hub.Run()

	tenantID := uuid.New()
	watcher := newTestClient(hub, uuid.New(), tenantID)
	joiner := newTestClient(hub, uuid.New(), tenantID)

	hub.Register <- watcher
	hub.Register <- joiner

	event := receiveEvent(t, watcher)
	assert.Equal(t, EventPresenceOnline, event.Type)

	hub.Unregister <- joiner

	event = receiveEvent(t, watcher)
	assert.Equal(t, EventPresenceAway, event.Type)
}

func TestSubscribeRequiresMembership(t *testing.T) {
	tenantID := uuid.New()
	memberID := uuid.New()
	conversationID := uuid.New()

	repo := &stubConversationRepo{conv: &domain.Conversation{
		ID:       conversationID,
		TenantID: tenantID,
		Type:     domain.ConversationGroup,
		IsActive: true,
		Participants: []domain.Participant{
			{ConversationID: conversationID, UserID: memberID},
		},
	}}
	hub := NewHub(repo)

	member := newTestClient(hub, memberID, tenantID)
	assert.True(t, hub.canSubscribe(member, conversationID))

	outsider := newTestClient(hub, uuid.New(), tenantID)
	assert.False(t, hub.canSubscribe(outsider, conversationID))

	wrongTenant := newTestClient(hub, memberID, uuid.New())
	assert.False(t, hub.canSubscribe(wrongTenant, conversationID))
}
