package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubClient(id, userID string) *Client {
	return &Client{ID: id, UserID: userID, Send: make(chan []byte, 8)}
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := runHub(t)
	client := newHubClient("c1", "u1")

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// The send channel closes on unregister.
	_, open := <-client.Send
	assert.False(t, open)
}

func TestHubUnregisterUnknownClient(t *testing.T) {
	hub := runHub(t)
	known := newHubClient("c1", "u1")
	hub.Register(known)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Unregistering a client that never registered must not close anything.
	hub.Unregister(newHubClient("ghost", "u9"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubSendMessageDropsWhenFull(t *testing.T) {
	client := &Client{ID: "c1", Send: make(chan []byte, 1)}
	client.SendMessage([]byte("first"))
	client.SendMessage([]byte("dropped"))

	assert.Equal(t, []byte("first"), <-client.Send)
	select {
	case msg := <-client.Send:
		t.Fatalf("expected full channel to drop, got %q", msg)
	default:
	}
}

func TestHubRunStopsOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newHubClient("c1", "u1")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancel")
	}

	_, open := <-client.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ClientCount())
}
