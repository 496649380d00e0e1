// apps/rooms-server/internal/ws/messages.go
//
// Wire format for the room protocol. Both directions use one envelope:
//
//	{"event": "<name>", "data": {...}}
//
// Inbound events map one to one onto coordinator actions; outbound events
// are the coordinator's notifications serialized as-is.
package ws

import (
	"encoding/json"
	"fmt"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type startPayload struct {
	RoomCode string `json:"roomCode"`
	Timed    bool   `json:"timed"`
}

type guessPayload struct {
	RoomCode string `json:"roomCode"`
	Guess    string `json:"guess"`
}

// decodeAction maps one inbound message to a coordinator action.
// Unknown events and malformed payloads return an error; the caller drops
// the message without touching any room state.
func decodeAction(conn string, raw []byte) (rooms.Action, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	switch env.Event {
	case "join-room":
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode join-room: %w", err)
		}
		return rooms.Join{Conn: conn, RoomCode: p.RoomCode, Username: p.Username}, nil

	case "whoami":
		var p roomPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode whoami: %w", err)
		}
		return rooms.WhoAmI{Conn: conn, RoomCode: p.RoomCode}, nil

	case "start-game":
		var p startPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode start-game: %w", err)
		}
		return rooms.StartGame{Conn: conn, RoomCode: p.RoomCode, Timed: p.Timed}, nil

	case "submit-guess":
		var p guessPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode submit-guess: %w", err)
		}
		return rooms.SubmitGuess{Conn: conn, RoomCode: p.RoomCode, Guess: p.Guess}, nil

	case "return-to-menu":
		var p roomPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode return-to-menu: %w", err)
		}
		return rooms.ReturnToMenu{Conn: conn, RoomCode: p.RoomCode}, nil

	case "leave-room":
		var p roomPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode leave-room: %w", err)
		}
		return rooms.LeaveRoom{Conn: conn, RoomCode: p.RoomCode}, nil
	}

	return nil, fmt.Errorf("unknown event %q", env.Event)
}
