// apps/rooms-server/internal/ws/hub.go
//
// Connection hub.
// Responsibilities:
//   - Upgrade HTTP requests to websockets and assign connection IDs.
//   - Track live clients so notifications can be routed by connection ID.
//   - Fan out coordinator notifications to their recipients.
//
// The hub never touches room state; everything it routes comes out of the
// coordinator as addressed notifications.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
)

// Hub owns the set of live websocket clients.
type Hub struct {
	coord    *rooms.Coordinator
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub builds a hub around the coordinator. allowedOrigin restricts the
// websocket handshake Origin header; empty allows any origin (dev mode).
func NewHub(coord *rooms.Coordinator, allowedOrigin string) *Hub {
	return &Hub{
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		clients: make(map[string]*Client),
	}
}

// ServeWS upgrades the request and starts the client's pump goroutines.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	log.Info().Str("conn", client.id).Str("remote", r.RemoteAddr).Msg("websocket connected")

	go client.writePump()
	go client.readPump()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// Deliver serializes each notification once and queues it on every
// recipient's send buffer. Recipients that disconnected between the
// coordinator resolving them and delivery are skipped; recipients whose
// buffer is full have the message dropped.
func (h *Hub) Deliver(notes []rooms.Notification) {
	for _, n := range notes {
		msg, err := json.Marshal(outEnvelope{Event: n.Event, Data: n.Payload})
		if err != nil {
			log.Error().Err(err).Str("event", n.Event).Msg("marshal notification")
			continue
		}

		h.mu.RLock()
		for _, id := range n.To {
			c, ok := h.clients[id]
			if !ok {
				continue
			}
			select {
			case c.send <- msg:
			default:
				log.Warn().Str("conn", id).Str("event", n.Event).Msg("send buffer full, dropping")
			}
		}
		h.mu.RUnlock()
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client's send channel, which unwinds their pumps.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
