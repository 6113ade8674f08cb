package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return NewClient(hub, nil, uuid.New(), sessionID, nil)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "session-1")

	hub.Register(client)
	assert.Equal(t, 1, hub.SessionClientCount("session-1"))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.SessionClientCount("session-1"))

	// Unregistering twice is a no-op.
	hub.Unregister(client)
	assert.Equal(t, 0, hub.SessionClientCount("session-1"))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub, "session-1")
	peer := newTestClient(hub, "session-1")
	stranger := newTestClient(hub, "session-2")

	hub.Register(sender)
	hub.Register(peer)
	hub.Register(stranger)

	hub.Broadcast("session-1", map[string]any{"type": "ping"}, sender)

	assert.Len(t, peer.send, 1, "peer receives the broadcast")
	assert.Empty(t, sender.send, "excluded sender receives nothing")
	assert.Empty(t, stranger.send, "other sessions receive nothing")
}

func TestHub_BroadcastToClosedClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "session-1")
	hub.Register(client)

	// A client whose channel was torn down must be skipped, never sent to.
	client.close()

	assert.NotPanics(t, func() {
		hub.Broadcast("session-1", map[string]any{"type": "ping"}, nil)
	})
	assert.False(t, client.trySend([]byte("{}")))
}

func TestHub_ConcurrentBroadcastAndUnregister(t *testing.T) {
	hub := NewHub()

	for round := 0; round < 500; round++ {
		sessionID := fmt.Sprintf("session-%d", round)
		client := newTestClient(hub, sessionID)
		hub.Register(client)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				hub.Broadcast(sessionID, map[string]any{"type": "tick"}, nil)
			}
		}()
		go func() {
			defer wg.Done()
			hub.Unregister(client)
		}()
		wg.Wait()
	}
}
