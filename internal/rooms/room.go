// apps/rooms-server/internal/rooms/room.go
//
// Room and player-session state for one shared round.
// Responsibilities:
//   - Track membership in join order and the current host connection.
//   - Track the round lifecycle: Lobby → InRound → RoundOver → Lobby.
//   - Per-player bookkeeping: guesses with feedback, finish state, and the
//     latest-guess correct/present counters.
//
// Invariants:
//   - A connection appears at most once in a room.
//   - The host always references a member while the room is non-empty.
//   - At most one active round (Secret set only while Phase == InRound).
//   - A session never exceeds game.MaxGuesses and accepts nothing once
//     finished.
//
// Locking: every action against a room runs under r.mu, taken by the
// coordinator (or by the registry for membership changes). Helper methods
// below assume the lock is held.
package rooms

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/game"
)

// Phase is a room's round lifecycle state.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseInRound   Phase = "in_round"
	PhaseRoundOver Phase = "round_over"
)

// Guess pairs a guessed word with its per-letter feedback.
// Feedback is produced once by the engine and never mutated afterwards,
// so snapshots may share the slice.
type Guess struct {
	Word     string      `json:"guess"`
	Feedback []game.Mark `json:"feedback"`
}

// PlayerSession is one connection's progress within the current round.
// JSON field names match what the board client renders.
type PlayerSession struct {
	Name     string  `json:"username"`
	Guesses  []Guess `json:"guesses"`
	Finished bool    `json:"finished"`
	// FinishedMs is elapsed milliseconds since round start; nil until the
	// player finishes.
	FinishedMs *int64 `json:"finishedTime"`
	// Correct/Present reflect the latest guess only. They drive the live
	// "how close" indicator, not a cumulative best-ever count.
	Correct int `json:"greens"`
	Present int `json:"yellows"`
}

func newSession(name string) *PlayerSession {
	return &PlayerSession{Name: name, Guesses: []Guess{}}
}

// resetRound clears everything a new round starts fresh with.
func (p *PlayerSession) resetRound() {
	p.Guesses = []Guess{}
	p.Finished = false
	p.FinishedMs = nil
	p.Correct = 0
	p.Present = 0
}

// Room is a named group of player sessions sharing one round.
// It is owned by the Registry; connections only ever reference it.
type Room struct {
	Code      string
	Host      string // connection ID of the current host
	Secret    string // solution word; empty between rounds
	StartedAt time.Time
	Timed     bool
	Phase     Phase

	order    []string // connection IDs in join order
	sessions map[string]*PlayerSession

	mu sync.Mutex // linearizes all actions against this room
}

func newRoom(code, host string) *Room {
	return &Room{
		Code:     code,
		Host:     host,
		Phase:    PhaseLobby,
		sessions: make(map[string]*PlayerSession),
	}
}

// addSession inserts a session for conn, or refreshes the display name if
// the connection is already a member (rejoin).
func (r *Room) addSession(conn, name string) {
	if s, ok := r.sessions[conn]; ok {
		s.Name = name
		return
	}
	r.sessions[conn] = newSession(name)
	r.order = append(r.order, conn)
}

// removeSession drops conn from the room. Returns false if conn was not a
// member.
func (r *Room) removeSession(conn string) bool {
	if _, ok := r.sessions[conn]; !ok {
		return false
	}
	delete(r.sessions, conn)
	for i, id := range r.order {
		if id == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) empty() bool { return len(r.order) == 0 }

// conns returns the member connection IDs in join order (copy).
func (r *Room) conns() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// names returns the member display names in join order.
func (r *Room) names() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].Name)
	}
	return out
}

// statusSnapshot copies the sessions map for safe use after the lock is
// released. Guess entries are copied; feedback slices are shared because
// they are immutable once scored.
func (r *Room) statusSnapshot() map[string]PlayerSession {
	out := make(map[string]PlayerSession, len(r.sessions))
	for id, s := range r.sessions {
		cp := *s
		cp.Guesses = make([]Guess, len(s.Guesses))
		copy(cp.Guesses, s.Guesses)
		if s.FinishedMs != nil {
			ms := *s.FinishedMs
			cp.FinishedMs = &ms
		}
		out[id] = cp
	}
	return out
}

// startRound arms a new round: sets the secret, stamps the start time, and
// resets every session. Restarting while a round is active replaces it, so
// the one-active-round invariant holds.
func (r *Room) startRound(secret string, timed bool, now time.Time) {
	r.Secret = secret
	r.StartedAt = now
	r.Timed = timed
	r.Phase = PhaseInRound
	for _, s := range r.sessions {
		s.resetRound()
	}
}

// toLobby clears all round state. Safe to call repeatedly.
func (r *Room) toLobby() {
	r.Secret = ""
	r.StartedAt = time.Time{}
	r.Timed = false
	r.Phase = PhaseLobby
	for _, s := range r.sessions {
		s.resetRound()
	}
}

// allFinished reports whether every current member has finished the round.
func (r *Room) allFinished() bool {
	if len(r.sessions) == 0 {
		return false
	}
	for _, s := range r.sessions {
		if !s.Finished {
			return false
		}
	}
	return true
}

// winnerCount counts sessions whose last guess solved the word.
func (r *Room) winnerCount() int {
	n := 0
	for _, s := range r.sessions {
		if len(s.Guesses) == 0 {
			continue
		}
		if game.AllHit(s.Guesses[len(s.Guesses)-1].Feedback) {
			n++
		}
	}
	return n
}

// SortStatusNames returns the connection IDs of a status map in scoreboard
// order for one viewer: the viewer's own entry first, then the rest by
// display name (case-insensitive, connection ID as the stable tie-break).
//
// The server sends the status map unordered; rendering order is the
// client's job. This function exists to pin that ordering contract on the
// server side (tests assert against it) so client and server cannot drift.
func SortStatusNames(status map[string]PlayerSession, self string) []string {
	ids := make([]string, 0, len(status))
	for id := range status {
		if id != self {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ni := strings.ToLower(status[ids[i]].Name)
		nj := strings.ToLower(status[ids[j]].Name)
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	if _, ok := status[self]; ok {
		ids = append([]string{self}, ids...)
	}
	return ids
}
