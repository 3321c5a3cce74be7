package server

import (
	"encoding/json"
	"time"

	"BerryBox/logger"
	"BerryBox/model"
)

// SnapshotSource supplies the current display snapshot.
type SnapshotSource interface {
	Snapshot() *model.NowPlaying
}

// Hub fans the now-playing snapshot out to every connected kiosk.
// Pushes happen after significant daemon events and on a fixed tick so
// position counters stay live between events. Delivery per client is
// fire and forget; a client that cannot keep up is dropped.
type Hub struct {
	source   SnapshotSource
	interval time.Duration

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	trigger    chan struct{}
	done       chan struct{}
}

// NewHub creates the broadcast hub.
func NewHub(source SnapshotSource, interval time.Duration) *Hub {
	return &Hub{
		source:     source,
		interval:   interval,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		trigger:    make(chan struct{}, 16),
		done:       make(chan struct{}),
	}
}

// Run starts the hub main loop.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			// The new kiosk gets state immediately, not on the next tick.
			h.send(client, h.encodeSnapshot())
			logger.Info("broadcast client connected", logger.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			h.drop(client)

		case <-h.trigger:
			h.broadcast()

		case <-ticker.C:
			h.broadcast()

		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Notify requests an immediate broadcast. Safe from any goroutine; if a
// broadcast is already queued the request coalesces.
func (h *Hub) Notify() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

func (h *Hub) broadcast() {
	if len(h.clients) == 0 {
		return
	}
	payload := h.encodeSnapshot()
	if payload == nil {
		return
	}
	for client := range h.clients {
		h.send(client, payload)
	}
}

func (h *Hub) send(client *Client, payload []byte) {
	if payload == nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		// Full buffer means the client stopped reading.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logger.Info("broadcast client dropped", logger.Int("clients", len(h.clients)))
	}
}

func (h *Hub) encodeSnapshot() []byte {
	np := h.source.Snapshot()
	payload, err := json.Marshal(np)
	if err != nil {
		logger.Error("snapshot encode failed", logger.ErrorField(err))
		return nil
	}
	return payload
}
