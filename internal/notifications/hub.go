// Package notifications fans live feed events out to websocket clients.
package notifications

import (
	"context"
	"errors"
	"sync"

	"captionboard/internal/observability"

	"github.com/google/uuid"
)

const maxFeedClients = 10000

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("feed hub is shut down")

// FeedHub tracks every connected feed viewer.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	wg      sync.WaitGroup
	log     *observability.WSLogger
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[*Client]struct{}),
		log:     observability.NewWSLogger("feed"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *FeedHub) Name() string { return "feed hub" }

// Register adds a connection to the hub. Call Serve to start its pumps.
func (h *FeedHub) Register(conn Conn, userID *uuid.UUID) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxFeedClients {
		return nil, errors.New("server connection limit reached")
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), client.ID)
	return client, nil
}

// UnregisterClient removes client and stops its write pump.
func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	if ok {
		client.closeSend()
		observability.WebSocketConnectionsTotal.Dec()
		h.log.LogDisconnect(context.Background(), client.ID, "unregistered")
	}
}

// Serve runs the client's pumps and blocks until the connection ends.
func (h *FeedHub) Serve(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = client.conn.Close()
		return
	}
	h.wg.Add(2)
	h.mu.Unlock()

	go client.writePump()
	client.readPump()
}

// Broadcast queues message for every connected client and returns how many
// accepted it.
func (h *FeedHub) Broadcast(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if c.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of connected clients.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartWiring forwards every event published on the Redis feed channel to
// this hub's clients.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.Broadcast([]byte(payload))
	})
}

// Shutdown closes every connection and waits for their pumps to exit or for
// ctx to end.
func (h *FeedHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.UnregisterClient(c)
	}
	h.log.LogLifecycle(ctx, "shutdown", map[string]interface{}{"clients": len(clients)})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
