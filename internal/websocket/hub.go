// Package websocket pushes session events to the browser tabs of the session
// they concern.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"dejure-gateway/internal/event"
)

type Hub struct {
	// Clients grouped by session storage key.
	sessions map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	connected  atomic.Int64

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
	}
}

// Run routes bus events until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			clients, ok := h.sessions[client.sessionKey]
			if !ok {
				clients = make(map[*Client]struct{})
				h.sessions[client.sessionKey] = clients
			}
			clients[client] = struct{}{}
			slog.Debug("websocket client connected", "clients", h.connected.Add(1))
		case client := <-h.unregister:
			h.remove(client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.dispatch(e)
		}
	}
}

// Connected reports the number of registered clients across all sessions.
func (h *Hub) Connected() int64 {
	return h.connected.Load()
}

func (h *Hub) dispatch(e event.Event) {
	clients := h.sessions[e.SessionKey]
	if len(clients) == 0 {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "type", e.Type, "error", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			slog.Warn("websocket client too slow, disconnecting", "type", e.Type)
			h.remove(client)
		}
	}

	// A cleared session has nothing more to say; the tabs get the event and a close.
	if e.Type == event.TypeSessionCleared {
		for client := range clients {
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.sessions[client.sessionKey]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	h.connected.Add(-1)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionKey)
	}
}

func (h *Hub) closeAll() {
	for _, clients := range h.sessions {
		for client := range clients {
			h.remove(client)
		}
	}
}
