// apps/rooms-server/internal/rooms/actions.go
//
// Inbound actions and outbound notifications for the session coordinator.
// The transport decodes each client message into one Action value and feeds
// it through Coordinator.Handle; the returned notifications tell the
// transport exactly which connections get which event. Modeling the actions
// as one sum type keeps all state mutation behind a single entry point
// instead of scattering handlers that capture shared state.
package rooms

import "github.com/robalobadob/wordle/apps/rooms-server/internal/game"

// Action is the closed set of client-originated events.
type Action interface{ isAction() }

// Join asks to enter (or create) a room under a display name.
type Join struct {
	Conn     string
	RoomCode string
	Username string
}

// WhoAmI asks whether the caller currently holds host duty.
type WhoAmI struct {
	Conn     string
	RoomCode string
}

// StartGame starts a new round. Host-only.
type StartGame struct {
	Conn     string
	RoomCode string
	Timed    bool
}

// SubmitGuess submits one guess word for the active round.
type SubmitGuess struct {
	Conn     string
	RoomCode string
	Guess    string
}

// ReturnToMenu resets the room back to the lobby.
type ReturnToMenu struct {
	Conn     string
	RoomCode string
}

// LeaveRoom removes the caller from the named room.
type LeaveRoom struct {
	Conn     string
	RoomCode string
}

// Disconnect is synthesized by the transport when a connection closes.
type Disconnect struct {
	Conn string
}

func (Join) isAction()         {}
func (WhoAmI) isAction()       {}
func (StartGame) isAction()    {}
func (SubmitGuess) isAction()  {}
func (ReturnToMenu) isAction() {}
func (LeaveRoom) isAction()    {}
func (Disconnect) isAction()   {}

// Outbound event names. join-ack doubles as the acknowledgment channel for
// join-room; everything else matches the client protocol one to one.
const (
	EventJoinAck        = "join-ack"
	EventRoomUpdate     = "room-update"
	EventStatusUpdate   = "status-update"
	EventGameStarted    = "game-started"
	EventGameResult     = "game-result"
	EventGameOver       = "game-over"
	EventHostStatus     = "host-status"
	EventReturnedToMenu = "returned-to-menu"
)

// Notification is one outbound event with its recipients resolved while the
// room state was still locked, so delivery never depends on later state.
type Notification struct {
	Event   string
	To      []string // recipient connection IDs
	Payload any
}

func unicast(conn, event string, payload any) Notification {
	return Notification{Event: event, To: []string{conn}, Payload: payload}
}

// JoinAckPayload acknowledges join-room: either the joined state or an error.
type JoinAckPayload struct {
	RoomCode string   `json:"roomCode,omitempty"`
	Players  []string `json:"players,omitempty"`
	IsHost   bool     `json:"isHost"`
	Error    string   `json:"error,omitempty"`
}

// RoomUpdatePayload broadcasts the member names after a membership change.
type RoomUpdatePayload struct {
	Players []string `json:"players"`
}

// StatusUpdatePayload broadcasts every member's round progress.
type StatusUpdatePayload struct {
	Status map[string]PlayerSession `json:"status"`
}

// GameStartedPayload announces a new round.
type GameStartedPayload struct {
	WordLength int   `json:"wordLength"`
	StartTime  int64 `json:"startTime"` // unix milliseconds
	Timed      bool  `json:"timed"`
}

// GameResultPayload is the private answer to one submitted guess.
// Feedback is null and NotAWord true for a dictionary miss; Solution is set
// only on a correct guess.
type GameResultPayload struct {
	Correct  bool        `json:"correct"`
	Guess    string      `json:"guess"`
	Feedback []game.Mark `json:"feedback"`
	NotAWord bool        `json:"notAWord"`
	Solution string      `json:"solution,omitempty"`
}

// GameOverPayload broadcasts the final scoreboard and reveals the word.
type GameOverPayload struct {
	Status map[string]PlayerSession `json:"status"`
	Word   string                   `json:"word"`
}

// HostStatusPayload tells one connection whether it is the host.
type HostStatusPayload struct {
	IsHost bool `json:"isHost"`
}
