package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMessageSent     EventType = "message:sent"
	EventMessageReceived EventType = "message:received"
	EventMessageEdited   EventType = "message:edited"
	EventMessageDeleted  EventType = "message:deleted"

	EventReactionAdded   EventType = "reaction:added"
	EventReactionRemoved EventType = "reaction:removed"

	EventTypingStart EventType = "typing:start"
	EventTypingStop  EventType = "typing:stop"

	EventPresenceOnline EventType = "presence:online"
	EventPresenceAway   EventType = "presence:away"

	EventSubscribe   EventType = "conversation:subscribe"
	EventUnsubscribe EventType = "conversation:unsubscribe"

	EventError EventType = "error"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	Meta    *EventMeta  `json:"meta,omitempty"`
}

type EventMeta struct {
	Timestamp      int64      `json:"timestamp"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	SenderID       *uuid.UUID `json:"sender_id,omitempty"`
}

func NewEvent(eventType EventType, conversationID, senderID *uuid.UUID, payload interface{}) Event {
	return Event{
		Type:    eventType,
		Payload: payload,
		Meta: &EventMeta{
			Timestamp:      time.Now().UnixMilli(),
			ConversationID: conversationID,
			SenderID:       senderID,
		},
	}
}

// inboundEvent is the client-to-server frame. The payload stays raw until
// the event type tells us what to decode.
type inboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribePayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type typingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

type presencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
