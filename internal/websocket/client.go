package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// InboundFunc observes each relayed message before it reaches session peers.
// The session service uses it to record challenge collections that arrive
// over the realtime channel.
type InboundFunc func(client *Client, message map[string]any)

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    uuid.UUID
	sessionID string
	inbound   InboundFunc

	// mu serializes trySend against close so a broadcast can never hit a
	// closed send channel.
	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, sessionID string, inbound InboundFunc) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    userID,
		sessionID: sessionID,
		inbound:   inbound,
	}
}

func (c *Client) UserID() uuid.UUID { return c.userID }
func (c *Client) SessionID() string { return c.sessionID }

// ReadPump suspends on the connection and dispatches each inbound message
// synchronously: observe, then relay to session peers with the sender's id
// injected. On disconnect the client is unregistered and a departure notice
// goes out to the remaining peers.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.hub.Broadcast(c.sessionID, map[string]any{
			"type": "player_disconnected",
			"id":   c.userID.String(),
		}, nil)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session_id", c.sessionID).Msg("websocket read error")
			}
			return
		}

		var message map[string]any
		if err := json.Unmarshal(data, &message); err != nil {
			log.Warn().Err(err).Str("session_id", c.sessionID).Msg("dropping malformed message")
			continue
		}

		message["user_id"] = c.userID.String()
		if c.inbound != nil {
			c.inbound(c, message)
		}
		c.hub.Broadcast(c.sessionID, message, c)
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// trySend queues data for the write pump without blocking. It reports false
// when the client is already closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
