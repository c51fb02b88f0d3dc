// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
)

// Message types sent by the hub itself. Event messages use their bus topic
// ("run.started", "run.completed", "recommendation.status") as the type.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

const broadcastBuffer = 256

// Message is the envelope written to every client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub owns the set of connected clients. Only the RunWithContext goroutine
// mutates the set; mu guards reads from other goroutines.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	broadcast chan Message
	done      chan struct{}
	stopOnce  sync.Once

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a new Hub. It does nothing until RunWithContext is called.
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan Message, broadcastBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). Pending registrations are handled before a
// queued broadcast so a client registered just before an event receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stop(ctx)

	for {
		select {
		case c := <-h.Register:
			h.add(c)
			continue
		case c := <-h.Unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(n))
		logging.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
	}
}

// fanOut delivers msg to every client in connection order. A client whose
// send buffer is full is disconnected rather than allowed to stall the rest.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	var dropped int
	for _, c := range h.ordered() {
		select {
		case c.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			delete(h.clients, c)
			close(c.send)
			dropped++
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	if dropped > 0 {
		metrics.WSConnections.Set(float64(n))
		logging.Warn().Int("dropped", dropped).Str("message_type", msg.Type).Msg("dropped slow websocket clients")
	}
}

// ordered returns clients by ID. Caller holds mu.
func (h *Hub) ordered() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (h *Hub) stop(ctx context.Context) {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		n := len(h.clients)
		for c := range h.clients {
			close(c.send)
		}
		h.clients = make(map[*Client]struct{})
		h.mu.Unlock()
		close(h.done)

		metrics.WSConnections.Set(0)
		logging.Info().
			Str("component", "websocket-hub").
			AnErr("reason", ctx.Err()).
			Int("clients_closed", n).
			Msg("websocket hub stopped")
	})
}

// BroadcastJSON queues a message for all connected clients. It never
// blocks; when the queue is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast queue full, dropping message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
