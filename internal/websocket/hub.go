package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"CollabChatAPI/internal/repository"

	"github.com/google/uuid"
)

type Hub struct {
	clients     map[*Client]bool
	userClients map[uuid.UUID]map[*Client]bool
	Register    chan *Client
	Unregister  chan *Client

	conversations repository.ConversationRepository
	mu            sync.RWMutex
}

func NewHub(conversations repository.ConversationRepository) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[uuid.UUID]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		conversations: conversations,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			if _, ok := h.userClients[client.UserID]; !ok {
				h.userClients[client.UserID] = make(map[*Client]bool)

				go h.broadcastPresence(client.UserID, EventPresenceOnline)
			}
			h.userClients[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				if userSet, ok := h.userClients[client.UserID]; ok {
					delete(userSet, client)
					if len(userSet) == 0 {
						delete(h.userClients, client.UserID)

						go h.broadcastPresence(client.UserID, EventPresenceAway)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) PublishToUser(userID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userClients[userID] {
		h.deliver(client, data)
	}
}

func (h *Hub) PublishToConversation(conversationID uuid.UUID, event Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if excludeUserID != nil && client.UserID == *excludeUserID {
			continue
		}
		if !client.IsSubscribed(conversationID) {
			continue
		}
		h.deliver(client, data)
	}
}

func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		h.deliver(client, data)
	}
}

// deliver drops the frame when the client's buffer is full. The slow
// reader is cut loose by its own write pump timing out, not here.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		slog.Warn("Dropping event for slow client", "userID", client.UserID)
	}
}

// canSubscribe verifies the conversation exists in the client's tenant and
// lists the client as a participant.
func (h *Hub) canSubscribe(client *Client, conversationID uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := h.conversations.GetByID(ctx, client.TenantID, conversationID)
	if err != nil {
		slog.Error("Failed to check conversation membership", "error", err, "conversationID", conversationID)
		return false
	}

	return conv != nil && conv.HasParticipant(client.UserID)
}

func (h *Hub) relayTyping(sender *Client, eventType EventType, conversationID uuid.UUID) {
	if !sender.IsSubscribed(conversationID) {
		return
	}

	senderID := sender.UserID
	event := NewEvent(eventType, &conversationID, &senderID, typingPayload{
		ConversationID: conversationID,
		UserID:         senderID,
	})
	h.PublishToConversation(conversationID, event, &senderID)
}

func (h *Hub) broadcastPresence(userID uuid.UUID, eventType EventType) {
	status := "online"
	if eventType == EventPresenceAway {
		status = "away"
	}

	data, err := json.Marshal(NewEvent(eventType, nil, &userID, presencePayload{
		UserID: userID,
		Status: status,
	}))
	if err != nil {
		slog.Error("Failed to marshal presence event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.UserID == userID {
			continue
		}
		h.deliver(client, data)
	}
}
