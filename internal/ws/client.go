// apps/rooms-server/internal/ws/client.go
//
// One websocket connection. Two goroutines per client:
//   - readPump: decodes inbound envelopes, hands actions to the coordinator,
//     and turns a dropped socket into a Disconnect action.
//   - writePump: drains the send buffer and keeps the connection alive with
//     pings.
//
// The gorilla/websocket connection supports one concurrent reader and one
// concurrent writer; all writes go through the send channel.
package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Room protocol messages are
	// tiny; anything bigger is a misbehaving client.
	maxMessageSize = 1024

	// Outbound buffer per client. A client that falls this far behind has
	// its messages dropped rather than blocking the whole room.
	sendBuffer = 256
)

// Client is one connected websocket peer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   newConnID(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// newConnID returns a random 16-hex-char connection ID.
func newConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in serious trouble.
		panic(err)
	}
	return hex.EncodeToString(b)
}

// close shuts the send channel exactly once, which ends writePump.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump reads messages from the websocket and forwards decoded actions to
// the coordinator. On exit it synthesizes a Disconnect so the player leaves
// their room even when the socket just vanished.
func (c *Client) readPump() {
	defer func() {
		notes := c.hub.coord.Handle(rooms.Disconnect{Conn: c.id})
		c.hub.unregister(c)
		c.hub.Deliver(notes)
		c.conn.Close()
		log.Info().Str("conn", c.id).Msg("websocket disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket read error")
			}
			return
		}

		act, err := decodeAction(c.id, raw)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("dropping message")
			continue
		}
		c.hub.Deliver(c.hub.coord.Handle(act))
	}
}

// writePump writes queued messages to the websocket and pings on a timer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
