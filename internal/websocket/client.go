package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn

	UserID   uuid.UUID
	TenantID uuid.UUID

	subscriptions map[uuid.UUID]struct{}
	mu            sync.RWMutex

	Send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, tenantID uuid.UUID) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		UserID:        userID,
		TenantID:      tenantID,
		subscriptions: make(map[uuid.UUID]struct{}),
		Send:          make(chan []byte, sendBufferSize),
	}
}

func (c *Client) IsSubscribed(conversationID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[conversationID]
	return ok
}

func (c *Client) subscribe(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[conversationID] = struct{}{}
}

func (c *Client) unsubscribe(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, conversationID)
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Unexpected websocket close", "error", err, "userID", c.UserID)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendError("INVALID_FRAME", "malformed event")
			continue
		}

		c.handleEvent(&event)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(event *inboundEvent) {
	switch event.Type {
	case EventSubscribe:
		var p subscribePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required")
			return
		}
		if !c.hub.canSubscribe(c, p.ConversationID) {
			c.sendError("FORBIDDEN", "not a participant of this conversation")
			return
		}
		c.subscribe(p.ConversationID)

	case EventUnsubscribe:
		var p subscribePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required")
			return
		}
		c.unsubscribe(p.ConversationID)

	case EventTypingStart, EventTypingStop:
		var p subscribePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required")
			return
		}
		c.hub.relayTyping(c, event.Type, p.ConversationID)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+string(event.Type))
	}
}

func (c *Client) sendError(code, message string) {
	data, err := json.Marshal(NewEvent(EventError, nil, nil, errorPayload{
		Code:    code,
		Message: message,
	}))
	if err != nil {
		return
	}

	select {
	case c.Send <- data:
	default:
	}
}
