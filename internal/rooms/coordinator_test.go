package rooms

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/game"
)

// stubWords is a deterministic WordSource: Random always returns word, and
// only the listed words are accepted guesses.
type stubWords struct {
	word    string
	allowed map[string]bool
}

func newStubWords(word string, allowed ...string) stubWords {
	m := map[string]bool{word: true}
	for _, w := range allowed {
		m[strings.ToLower(w)] = true
	}
	return stubWords{word: word, allowed: m}
}

func (s stubWords) IsValid(w string) bool { return s.allowed[strings.ToLower(w)] }
func (s stubWords) Random() string        { return s.word }

var _ WordSource = stubWords{}

// stubRecorder captures completed rounds.
type stubRecorder struct {
	records []RoundRecord
}

func (r *stubRecorder) RecordRound(rec RoundRecord) { r.records = append(r.records, rec) }

// testClock is a manually advanced clock.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCoordinator(word string, allowed ...string) (*Coordinator, *Registry, *stubRecorder, *testClock) {
	reg := NewRegistry()
	rec := &stubRecorder{}
	clk := newTestClock()
	c := NewCoordinator(reg, newStubWords(word, allowed...), rec)
	c.now = clk.now
	return c, reg, rec, clk
}

func findNotes(notes []Notification, event string) []Notification {
	var out []Notification
	for _, n := range notes {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

func findNote(t *testing.T, notes []Notification, event string) Notification {
	t.Helper()
	found := findNotes(notes, event)
	require.Len(t, found, 1, "expected exactly one %s notification", event)
	return found[0]
}

func TestJoinFirstPlayerBecomesHost(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")

	notes := c.Handle(Join{Conn: "c1", RoomCode: "abc", Username: "alice"})

	ack := findNote(t, notes, EventJoinAck).Payload.(JoinAckPayload)
	assert.Equal(t, "ABC", ack.RoomCode)
	assert.True(t, ack.IsHost)
	assert.Equal(t, []string{"alice"}, ack.Players)
	assert.Empty(t, ack.Error)

	update := findNote(t, notes, EventRoomUpdate)
	assert.Equal(t, []string{"c1"}, update.To)
	assert.Equal(t, []string{"alice"}, update.Payload.(RoomUpdatePayload).Players)

	findNote(t, notes, EventStatusUpdate)
}

func TestJoinSecondPlayerIsNotHost(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})

	notes := c.Handle(Join{Conn: "c2", RoomCode: "abc", Username: "bob"})

	ack := findNote(t, notes, EventJoinAck).Payload.(JoinAckPayload)
	assert.False(t, ack.IsHost)
	assert.Equal(t, []string{"alice", "bob"}, ack.Players)

	// Membership broadcasts reach both players.
	update := findNote(t, notes, EventRoomUpdate)
	assert.ElementsMatch(t, []string{"c1", "c2"}, update.To)
}

func TestJoinTwiceDoesNotDuplicate(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	notes := c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})

	ack := findNote(t, notes, EventJoinAck).Payload.(JoinAckPayload)
	assert.Equal(t, []string{"alice"}, ack.Players)

	roomCount, playerCount := reg.Stats()
	assert.Equal(t, 1, roomCount)
	assert.Equal(t, 1, playerCount)
}

func TestJoinInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		action Join
	}{
		{"empty room code", Join{Conn: "c1", RoomCode: "   ", Username: "alice"}},
		{"bad room code characters", Join{Conn: "c1", RoomCode: "no spaces!", Username: "alice"}},
		{"empty username", Join{Conn: "c1", RoomCode: "ABC", Username: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg, _, _ := newTestCoordinator("crane")
			notes := c.Handle(tt.action)

			ack := findNote(t, notes, EventJoinAck).Payload.(JoinAckPayload)
			assert.NotEmpty(t, ack.Error)

			// Rejection leaves no state behind.
			roomCount, playerCount := reg.Stats()
			assert.Zero(t, roomCount)
			assert.Zero(t, playerCount)
		})
	}
}

func TestJoinWhileInAnotherRoomRejected(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "AAA", Username: "alice"})

	notes := c.Handle(Join{Conn: "c1", RoomCode: "BBB", Username: "alice"})
	ack := findNote(t, notes, EventJoinAck).Payload.(JoinAckPayload)
	assert.NotEmpty(t, ack.Error)
}

func TestStartGameHostOnly(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})

	// A non-host start is a silent no-op.
	notes := c.Handle(StartGame{Conn: "c2", RoomCode: "ABC"})
	assert.Empty(t, notes)

	room, _ := reg.Get("ABC")
	assert.Equal(t, PhaseLobby, room.Phase)
	assert.Empty(t, room.Secret)

	// The host's start transitions to InRound.
	notes = c.Handle(StartGame{Conn: "c1", RoomCode: "ABC", Timed: true})

	started := findNote(t, notes, EventGameStarted)
	assert.ElementsMatch(t, []string{"c1", "c2"}, started.To)
	payload := started.Payload.(GameStartedPayload)
	assert.Equal(t, game.WordLength, payload.WordLength)
	assert.True(t, payload.Timed)
	assert.Equal(t, room.StartedAt.UnixMilli(), payload.StartTime)

	findNote(t, notes, EventStatusUpdate)

	assert.Equal(t, PhaseInRound, room.Phase)
	assert.Equal(t, "crane", room.Secret)
	assert.True(t, room.Timed)
}

func TestStartGameAbsentRoomIgnored(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")
	assert.Empty(t, c.Handle(StartGame{Conn: "c1", RoomCode: "NOPE"}))
}

func TestGuessBeforeRoundIgnored(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})

	assert.Empty(t, c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "range"}))
}

func TestGuessFeedbackAndCounters(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	notes := c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "RANGE"})

	result := findNote(t, notes, EventGameResult)
	assert.Equal(t, []string{"c1"}, result.To)
	payload := result.Payload.(GameResultPayload)
	assert.False(t, payload.Correct)
	assert.False(t, payload.NotAWord)
	assert.Equal(t, "range", payload.Guess)
	assert.Equal(t,
		[]game.Mark{game.MarkPresent, game.MarkPresent, game.MarkPresent, game.MarkMiss, game.MarkHit},
		payload.Feedback)
	assert.Empty(t, payload.Solution)

	// Counters reflect the latest guess only.
	room, _ := reg.Get("ABC")
	sess := room.sessions["c1"]
	assert.Equal(t, 1, sess.Correct)
	assert.Equal(t, 3, sess.Present)
	assert.False(t, sess.Finished)

	status := findNote(t, notes, EventStatusUpdate).Payload.(StatusUpdatePayload)
	assert.Len(t, status.Status["c1"].Guesses, 1)
}

func TestGuessNotAWordConsumesNoAttempt(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	for _, guess := range []string{"zzzzz", "shrt", "toolonger", "cr4ne"} {
		notes := c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: guess})
		result := findNote(t, notes, EventGameResult).Payload.(GameResultPayload)
		assert.True(t, result.NotAWord)
		assert.Nil(t, result.Feedback)
		// No broadcast: only the guesser hears about an invalid word.
		assert.Empty(t, findNotes(notes, EventStatusUpdate))
	}

	room, _ := reg.Get("ABC")
	assert.Empty(t, room.sessions["c1"].Guesses)
}

func TestCorrectGuessFinishesAndRevealsSolution(t *testing.T) {
	c, reg, rec, clk := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	clk.advance(42 * time.Second)
	notes := c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "crane"})

	result := findNote(t, notes, EventGameResult).Payload.(GameResultPayload)
	assert.True(t, result.Correct)
	assert.Equal(t, "crane", result.Solution)

	room, _ := reg.Get("ABC")
	sess := room.sessions["c1"]
	assert.True(t, sess.Finished)
	require.NotNil(t, sess.FinishedMs)
	assert.Equal(t, int64(42000), *sess.FinishedMs)

	// Sole player finished → round over, word revealed, round recorded.
	over := findNote(t, notes, EventGameOver).Payload.(GameOverPayload)
	assert.Equal(t, "crane", over.Word)
	assert.Equal(t, PhaseRoundOver, room.Phase)

	require.Len(t, rec.records, 1)
	assert.Equal(t, "ABC", rec.records[0].RoomCode)
	assert.Equal(t, "crane", rec.records[0].Word)
	assert.Equal(t, 1, rec.records[0].Players)
	assert.Equal(t, 1, rec.records[0].Winners)
}

func TestSixGuessesExhaustAndSeventhRejected(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	room, _ := reg.Get("ABC")
	for i := 0; i < game.MaxGuesses; i++ {
		notes := c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "range"})
		require.NotEmpty(t, notes, "guess %d", i+1)
	}

	sess := room.sessions["c1"]
	assert.True(t, sess.Finished)
	assert.NotNil(t, sess.FinishedMs)
	assert.Len(t, sess.Guesses, game.MaxGuesses)

	// A seventh guess is silently ignored.
	assert.Empty(t, c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "range"}))
	assert.Len(t, sess.Guesses, game.MaxGuesses)
}

func TestGameOverFiresExactlyOnce(t *testing.T) {
	c, _, rec, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	// First player wins: no game-over while bob is still guessing.
	notes := c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "crane"})
	assert.Empty(t, findNotes(notes, EventGameOver))

	// Second player exhausts all attempts: the round ends now.
	var overCount int
	for i := 0; i < game.MaxGuesses; i++ {
		notes = c.Handle(SubmitGuess{Conn: "c2", RoomCode: "ABC", Guess: "range"})
		overCount += len(findNotes(notes, EventGameOver))
	}
	require.Equal(t, 1, overCount)

	over := findNote(t, notes, EventGameOver)
	assert.ElementsMatch(t, []string{"c1", "c2"}, over.To)
	assert.Equal(t, "crane", over.Payload.(GameOverPayload).Word)

	require.Len(t, rec.records, 1)
	assert.Equal(t, 2, rec.records[0].Players)
	assert.Equal(t, 1, rec.records[0].Winners)
}

func TestReturnToMenuIdempotent(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC", Timed: true})
	c.Handle(SubmitGuess{Conn: "c1", RoomCode: "ABC", Guess: "range"})

	room, _ := reg.Get("ABC")

	for i := 0; i < 2; i++ {
		notes := c.Handle(ReturnToMenu{Conn: "c1", RoomCode: "ABC"})
		findNote(t, notes, EventReturnedToMenu)
		findNote(t, notes, EventStatusUpdate)

		assert.Equal(t, PhaseLobby, room.Phase)
		assert.Empty(t, room.Secret)
		assert.True(t, room.StartedAt.IsZero())
		assert.False(t, room.Timed)
		assert.Empty(t, room.sessions["c1"].Guesses)
		assert.False(t, room.sessions["c1"].Finished)
	}
}

func TestReturnToMenuAbsentRoomIgnored(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")
	assert.Empty(t, c.Handle(ReturnToMenu{Conn: "c1", RoomCode: "NOPE"}))
}

func TestHostLeavePromotesEarliestJoiner(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})
	c.Handle(Join{Conn: "c3", RoomCode: "ABC", Username: "carol"})

	notes := c.Handle(LeaveRoom{Conn: "c1", RoomCode: "ABC"})

	// The earliest remaining joiner (c2) becomes host; c3 never does.
	host := findNote(t, notes, EventHostStatus)
	assert.Equal(t, []string{"c2"}, host.To)
	assert.True(t, host.Payload.(HostStatusPayload).IsHost)

	update := findNote(t, notes, EventRoomUpdate)
	assert.Equal(t, []string{"bob", "carol"}, update.Payload.(RoomUpdatePayload).Players)
	assert.ElementsMatch(t, []string{"c2", "c3"}, update.To)

	room, _ := reg.Get("ABC")
	assert.Equal(t, "c2", room.Host)
}

func TestNonHostLeaveKeepsHost(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})

	notes := c.Handle(LeaveRoom{Conn: "c2", RoomCode: "ABC"})
	assert.Empty(t, findNotes(notes, EventHostStatus))

	room, _ := reg.Get("ABC")
	assert.Equal(t, "c1", room.Host)
}

func TestLastLeaveDeletesRoomAndRejoinIsFresh(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane", "range")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(StartGame{Conn: "c1", RoomCode: "ABC"})

	notes := c.Handle(LeaveRoom{Conn: "c1", RoomCode: "ABC"})
	assert.Empty(t, notes)

	_, ok := reg.Get("ABC")
	assert.False(t, ok)

	// A rejoin under the same code gets a brand-new room with no leftover
	// round state.
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})
	room, ok := reg.Get("ABC")
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, room.Phase)
	assert.Empty(t, room.Secret)
	assert.Equal(t, "c2", room.Host)
}

func TestLeaveWrongRoomIsNoOp(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})

	assert.Empty(t, c.Handle(LeaveRoom{Conn: "c1", RoomCode: "OTHER"}))

	_, playerCount := reg.Stats()
	assert.Equal(t, 1, playerCount)
}

func TestDisconnectBehavesLikeLeave(t *testing.T) {
	c, reg, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})

	notes := c.Handle(Disconnect{Conn: "c1"})

	findNote(t, notes, EventRoomUpdate)
	findNote(t, notes, EventStatusUpdate)
	host := findNote(t, notes, EventHostStatus)
	assert.Equal(t, []string{"c2"}, host.To)

	room, _ := reg.Get("ABC")
	assert.Equal(t, "c2", room.Host)

	// Unknown connections are a no-op.
	assert.Empty(t, c.Handle(Disconnect{Conn: "ghost"}))
}

func TestWhoAmI(t *testing.T) {
	c, _, _, _ := newTestCoordinator("crane")
	c.Handle(Join{Conn: "c1", RoomCode: "ABC", Username: "alice"})
	c.Handle(Join{Conn: "c2", RoomCode: "ABC", Username: "bob"})

	notes := c.Handle(WhoAmI{Conn: "c1", RoomCode: "ABC"})
	assert.True(t, findNote(t, notes, EventHostStatus).Payload.(HostStatusPayload).IsHost)

	notes = c.Handle(WhoAmI{Conn: "c2", RoomCode: "abc"})
	assert.False(t, findNote(t, notes, EventHostStatus).Payload.(HostStatusPayload).IsHost)

	assert.Empty(t, c.Handle(WhoAmI{Conn: "c1", RoomCode: "NOPE"}))
}

func TestSortStatusNames(t *testing.T) {
	status := map[string]PlayerSession{
		"c1": {Name: "zoe"},
		"c2": {Name: "Alice"},
		"c3": {Name: "bob"},
	}

	// Viewer first, then the rest by case-insensitive display name.
	assert.Equal(t, []string{"c1", "c2", "c3"}, SortStatusNames(status, "c1"))
	assert.Equal(t, []string{"c3", "c2", "c1"}, SortStatusNames(status, "c3"))

	// Viewer absent from the map: plain sorted order.
	assert.Equal(t, []string{"c2", "c3", "c1"}, SortStatusNames(status, "ghost"))
}
