// apps/rooms-server/internal/rooms/coordinator.go
//
// Session coordinator: validates each inbound action against current
// room/player state, applies the mutation, and determines who gets told
// what. All mutation for one room happens under that room's lock, so guess
// submissions, host transfers, and restarts interleave safely across
// connections while different rooms proceed fully concurrently.
//
// Failure policy (per action, never fatal):
//   - malformed input  → error acknowledged to the caller, no state change
//   - non-host start   → silent no-op
//   - absent room      → no-op (or error ack where an ack channel exists)
//   - dictionary miss  → notAWord to the guesser, attempt not consumed
package rooms

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/game"
)

// WordSource supplies the validated word list.
type WordSource interface {
	// IsValid reports whether the word is an accepted guess.
	IsValid(word string) bool
	// Random returns a uniformly random answer word.
	Random() string
}

// RoundRecord summarizes one completed round for the history store.
type RoundRecord struct {
	RoomCode  string
	Word      string
	Players   int
	Winners   int
	StartedAt time.Time
	EndedAt   time.Time
}

// Recorder receives completed rounds. Implementations must not block the
// caller on I/O failures; recording is best-effort.
type Recorder interface {
	RecordRound(rec RoundRecord)
}

// Coordinator is the single entry point for all room actions.
type Coordinator struct {
	reg   *Registry
	words WordSource
	rec   Recorder         // optional; nil disables history
	now   func() time.Time // injectable clock for tests
}

// NewCoordinator wires the coordinator to its collaborators. rec may be nil.
func NewCoordinator(reg *Registry, words WordSource, rec Recorder) *Coordinator {
	return &Coordinator{reg: reg, words: words, rec: rec, now: time.Now}
}

// Handle dispatches one action and returns the outbound notifications.
// Given a delivered action it produces a deterministic new state and a
// deterministic notification set, with no partial effects on validation
// failure.
func (c *Coordinator) Handle(act Action) []Notification {
	switch a := act.(type) {
	case Join:
		return c.join(a)
	case WhoAmI:
		return c.whoami(a)
	case StartGame:
		return c.start(a)
	case SubmitGuess:
		return c.guess(a)
	case ReturnToMenu:
		return c.returnToMenu(a)
	case LeaveRoom:
		return departureNotes(c.reg.LeaveRoom(NormalizeCode(a.RoomCode), a.Conn))
	case Disconnect:
		return departureNotes(c.reg.Leave(a.Conn))
	}
	return nil
}

func (c *Coordinator) join(a Join) []Notification {
	code := NormalizeCode(a.RoomCode)
	name := strings.TrimSpace(a.Username)

	if !ValidCode(code) {
		return []Notification{unicast(a.Conn, EventJoinAck, JoinAckPayload{Error: "invalid room code"})}
	}
	if name == "" {
		return []Notification{unicast(a.Conn, EventJoinAck, JoinAckPayload{Error: "invalid username"})}
	}

	snap, err := c.reg.Join(code, a.Conn, name)
	if err != nil {
		return []Notification{unicast(a.Conn, EventJoinAck, JoinAckPayload{Error: "already in another room"})}
	}

	log.Debug().Str("room", code).Str("conn", a.Conn).Str("name", name).Msg("player joined")

	return []Notification{
		unicast(a.Conn, EventJoinAck, JoinAckPayload{RoomCode: code, Players: snap.Names, IsHost: snap.IsHost}),
		{Event: EventRoomUpdate, To: snap.Conns, Payload: RoomUpdatePayload{Players: snap.Names}},
		{Event: EventStatusUpdate, To: snap.Conns, Payload: StatusUpdatePayload{Status: snap.Status}},
	}
}

func (c *Coordinator) whoami(a WhoAmI) []Notification {
	room, ok := c.reg.Get(NormalizeCode(a.RoomCode))
	if !ok {
		return nil
	}
	room.mu.Lock()
	isHost := room.Host == a.Conn
	room.mu.Unlock()
	return []Notification{unicast(a.Conn, EventHostStatus, HostStatusPayload{IsHost: isHost})}
}

func (c *Coordinator) start(a StartGame) []Notification {
	room, ok := c.reg.Get(NormalizeCode(a.RoomCode))
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// Only the host starts rounds; anyone else racing here is ignored.
	if room.Host != a.Conn {
		return nil
	}

	word := c.words.Random()
	now := c.now()
	room.startRound(word, a.Timed, now)

	log.Info().Str("room", room.Code).Bool("timed", room.Timed).Msg("round started")

	conns := room.conns()
	return []Notification{
		{Event: EventGameStarted, To: conns, Payload: GameStartedPayload{
			WordLength: game.WordLength,
			StartTime:  room.StartedAt.UnixMilli(),
			Timed:      room.Timed,
		}},
		{Event: EventStatusUpdate, To: conns, Payload: StatusUpdatePayload{Status: room.statusSnapshot()}},
	}
}

func (c *Coordinator) guess(a SubmitGuess) []Notification {
	room, ok := c.reg.Get(NormalizeCode(a.RoomCode))
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Phase != PhaseInRound {
		return nil
	}
	sess, ok := room.sessions[a.Conn]
	if !ok {
		return nil
	}
	if sess.Finished || len(sess.Guesses) >= game.MaxGuesses {
		return nil
	}

	word := strings.ToLower(strings.TrimSpace(a.Guess))

	// Shape and dictionary failures share the notAWord reply and leave all
	// state untouched: the attempt is not consumed.
	if !game.ValidGuess(word) || !c.words.IsValid(word) {
		return []Notification{unicast(a.Conn, EventGameResult, GameResultPayload{
			Guess:    word,
			NotAWord: true,
		})}
	}

	marks := game.Score(room.Secret, word)
	sess.Guesses = append(sess.Guesses, Guess{Word: word, Feedback: marks})

	sess.Correct, sess.Present = 0, 0
	for _, m := range marks {
		switch m {
		case game.MarkHit:
			sess.Correct++
		case game.MarkPresent:
			sess.Present++
		}
	}

	correct := game.AllHit(marks)
	if correct || len(sess.Guesses) >= game.MaxGuesses {
		sess.Finished = true
		elapsed := c.now().Sub(room.StartedAt).Milliseconds()
		sess.FinishedMs = &elapsed
	}

	result := GameResultPayload{Correct: correct, Guess: word, Feedback: marks}
	if correct {
		result.Solution = room.Secret
	}

	conns := room.conns()
	notes := []Notification{
		unicast(a.Conn, EventGameResult, result),
		{Event: EventStatusUpdate, To: conns, Payload: StatusUpdatePayload{Status: room.statusSnapshot()}},
	}

	// The round ends exactly once: only the guess that finishes the last
	// unfinished player sees the InRound → RoundOver transition.
	if room.allFinished() {
		room.Phase = PhaseRoundOver
		notes = append(notes, Notification{
			Event:   EventGameOver,
			To:      conns,
			Payload: GameOverPayload{Status: room.statusSnapshot(), Word: room.Secret},
		})

		log.Info().Str("room", room.Code).Int("players", len(conns)).Msg("round over")

		if c.rec != nil {
			c.rec.RecordRound(RoundRecord{
				RoomCode:  room.Code,
				Word:      room.Secret,
				Players:   len(room.sessions),
				Winners:   room.winnerCount(),
				StartedAt: room.StartedAt,
				EndedAt:   c.now(),
			})
		}
	}

	return notes
}

func (c *Coordinator) returnToMenu(a ReturnToMenu) []Notification {
	room, ok := c.reg.Get(NormalizeCode(a.RoomCode))
	if !ok {
		return nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	room.toLobby()

	conns := room.conns()
	return []Notification{
		{Event: EventReturnedToMenu, To: conns, Payload: struct{}{}},
		{Event: EventStatusUpdate, To: conns, Payload: StatusUpdatePayload{Status: room.statusSnapshot()}},
	}
}

// departureNotes converts a leave/disconnect outcome into notifications for
// whoever remains. A deleted (emptied) room notifies nobody.
func departureNotes(dep Departure) []Notification {
	if !dep.Removed || dep.Deleted {
		return nil
	}
	notes := []Notification{
		{Event: EventRoomUpdate, To: dep.Conns, Payload: RoomUpdatePayload{Players: dep.Names}},
		{Event: EventStatusUpdate, To: dep.Conns, Payload: StatusUpdatePayload{Status: dep.Status}},
	}
	if dep.NewHost != "" {
		notes = append(notes, unicast(dep.NewHost, EventHostStatus, HostStatusPayload{IsHost: true}))
	}
	return notes
}
