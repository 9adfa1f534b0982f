package websocket

import "github.com/google/uuid"

// Broker is the fan-out surface services publish through. Publishing is
// fire-and-forget; delivery failures are logged, never returned.
type Broker interface {
	PublishToUser(userID uuid.UUID, event Event)
	PublishToConversation(conversationID uuid.UUID, event Event, excludeUserID *uuid.UUID)
	Broadcast(event Event)
}

// NoopBroker drops every event. Used where no hub is running.
type NoopBroker struct{}

func (NoopBroker) PublishToUser(uuid.UUID, Event) {}

func (NoopBroker) PublishToConversation(uuid.UUID, Event, *uuid.UUID) {}

func (NoopBroker) Broadcast(Event) {}
