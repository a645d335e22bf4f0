// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package websocket pushes realtime order updates to connected customers.
//
// Clients join a room named after their customer id at upgrade time; the
// notify relay targets a room per update, so a customer only ever sees
// their own orders. Delivery is best effort: a slow client is disconnected
// rather than allowed to block the hub.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/bazaarhq/settlement/internal/logging"
	"github.com/bazaarhq/settlement/internal/metrics"
)

// roomMessage targets one room with an already-marshaled frame.
type roomMessage struct {
	room    string
	payload []byte
}

// Hub maintains the set of active clients grouped into per-customer rooms.
type Hub struct {
	rooms      map[string]map[*Client]bool
	outbound   chan roomMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		outbound:   make(chan roomMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub until the context is cancelled, then closes
// every client and returns ctx.Err(). Designed for suture supervision.
//
// Selection is priority ordered so behavior stays predictable when several
// channels are ready at once: shutdown first, then client lifecycle, then
// outbound messages.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// SendToRoom queues a payload for every client in a room. Drops the message
// if the hub's queue is full; realtime updates are best effort and the
// order state itself is always available over the REST API.
func (h *Hub) SendToRoom(room string, payload []byte) {
	select {
	case h.outbound <- roomMessage{room: room, payload: payload}:
	default:
		logging.Warn().Str("room", room).Msg("websocket outbound queue full, dropping update")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[client.room]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[client.room] = clients
	}
	clients[client] = true
	total := h.clientCountLocked()
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("room", client.room).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[client.room]; ok {
		if _, registered := clients[client]; registered {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.rooms, client.room)
			}
		}
	}
	total := h.clientCountLocked()
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("room", client.room).Int("total_clients", total).Msg("websocket client disconnected")
}

// deliver sends a payload to a room's clients in stable id order. A client
// whose send buffer is full is dropped from the room.
func (h *Hub) deliver(msg roomMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomClients, ok := h.rooms[msg.room]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(roomClients))
	for client := range roomClients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(roomClients, client)
	}
	if len(roomClients) == 0 {
		delete(h.rooms, msg.room)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(h.clientCountLocked()))
		logging.Warn().Str("room", msg.room).Int("dropped", len(toRemove)).Msg("dropped slow websocket clients")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	var closed int
	for room, clients := range h.rooms {
		for client := range clients {
			close(client.send)
			closed++
		}
		delete(h.rooms, room)
	}
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientCountLocked()
}

// RoomCount returns the number of clients in one room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) clientCountLocked() int {
	var n int
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}
