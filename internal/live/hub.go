// Package live fans committed match updates out to HTTP clients watching a match.
// Clients hold a server-sent events stream open; the Hub pushes every update for the
// match they subscribed to, so spectators see the scoreboard move without polling.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trentd187/matchplay/internal/events"
)

// Client is one open stream. The Hub writes encoded updates to Send; the stream writer
// drains it. Send is closed when the client is unsubscribed.
type Client struct {
	MatchID uuid.UUID
	Send    chan []byte
}

type message struct {
	matchID uuid.UUID
	data    []byte
}

// Hub tracks subscribers grouped by match ID.
// All map mutation happens on the Run goroutine; mu lets Subscribers read counts from elsewhere.
type Hub struct {
	clients map[uuid.UUID]map[*Client]bool

	broadcast  chan *message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// clientBuffer is how many updates a slow client may fall behind before it is dropped.
const clientBuffer = 32

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan *message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes subscriptions and broadcasts until ctx is cancelled.
// On shutdown every remaining client's Send channel is closed so open streams finish.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for matchID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, matchID)
			}
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.MatchID] == nil {
				h.clients[client.MatchID] = make(map[*Client]bool)
			}
			h.clients[client.MatchID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients[msg.matchID]))
			for client := range h.clients[msg.matchID] {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.Send <- msg.data:
				default:
					// Too slow to keep up; drop it here rather than through h.unregister,
					// which only this goroutine reads.
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.MatchID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.MatchID)
	}
}

// Subscribe registers a new client for matchID. Once the hub has stopped the returned
// client's Send channel is already closed.
func (h *Hub) Subscribe(matchID uuid.UUID) *Client {
	client := &Client{MatchID: matchID, Send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
	return client
}

// Unsubscribe removes the client. Unsubscribing twice is harmless.
func (h *Hub) Unsubscribe(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers reports how many clients are watching matchID.
func (h *Hub) Subscribers(matchID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

// Publish implements events.Publisher by queueing the update for the match's watchers.
func (h *Hub) Publish(ctx context.Context, u events.MatchUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode match update: %w", err)
	}
	select {
	case h.broadcast <- &message{matchID: u.MatchID, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
