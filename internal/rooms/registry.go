// apps/rooms-server/internal/rooms/registry.go
//
// Process-wide room registry.
// Responsibilities:
//   - Map room code → Room with create-on-demand and delete-on-empty.
//   - Maintain the reverse index connection → room code so disconnects
//     resolve in O(1) instead of scanning every room.
//   - Make membership changes atomic: removing the last player and deleting
//     the room happen under one lock hold, so a racing join can never
//     resurrect a room that was already decided dead.
//
// Lock order: Registry.mu before Room.mu, never the reverse.
package rooms

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrInAnotherRoom is returned when a connection tries to join a room while
// the reverse index still places it in a different one. A connection belongs
// to at most one room at a time.
var ErrInAnotherRoom = errors.New("connection already in another room")

// NormalizeCode canonicalizes a room code. Codes are case-insensitive on the
// wire and stored upper-case, so mixed-case joins land in the same room.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code is well-formed:
// 1–32 characters from A–Z, 0–9, or '-'.
func ValidCode(code string) bool {
	if len(code) == 0 || len(code) > 32 {
		return false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// Registry owns every Room in the process. Construct one per server and
// inject it; nothing here is ambient global state.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[string]string // connection ID -> room code
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		byConn: make(map[string]string),
	}
}

// JoinSnapshot captures the room state a join produced, resolved while the
// locks were held so the resulting notifications are deterministic.
type JoinSnapshot struct {
	Room    *Room
	Created bool
	IsHost  bool
	Names   []string
	Conns   []string
	Status  map[string]PlayerSession
}

// Join adds conn to the room named by code, creating the room (with conn as
// host) if it does not exist. Joining a room the connection is already in is
// idempotent apart from refreshing the display name.
func (r *Registry) Join(code, conn, name string) (JoinSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byConn[conn]; ok && existing != code {
		return JoinSnapshot{}, ErrInAnotherRoom
	}

	room, ok := r.rooms[code]
	created := false
	if !ok {
		room = newRoom(code, conn)
		r.rooms[code] = room
		created = true
		log.Info().Str("room", code).Msg("room created")
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	room.addSession(conn, name)
	r.byConn[conn] = code

	return JoinSnapshot{
		Room:    room,
		Created: created,
		IsHost:  room.Host == conn,
		Names:   room.names(),
		Conns:   room.conns(),
		Status:  room.statusSnapshot(),
	}, nil
}

// Get returns the room for a normalized code, if present.
func (r *Registry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// RoomOf resolves the room code a connection currently belongs to.
func (r *Registry) RoomOf(conn string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byConn[conn]
	return code, ok
}

// Departure captures the outcome of a leave or disconnect.
type Departure struct {
	Code    string
	Removed bool   // conn was actually a member
	Deleted bool   // room hit zero players and was removed
	NewHost string // set when host duty transferred
	Names   []string
	Conns   []string
	Status  map[string]PlayerSession
}

// Leave removes the connection from whatever room the reverse index places
// it in. Used for transport-level disconnects.
func (r *Registry) Leave(conn string) Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byConn[conn]
	if !ok {
		return Departure{}
	}
	return r.removeLocked(code, conn)
}

// LeaveRoom removes the connection from the named room. A mismatch between
// the requested code and the reverse index is a no-op: the connection is not
// a member of that room.
func (r *Registry) LeaveRoom(code, conn string) Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actual, ok := r.byConn[conn]; !ok || actual != code {
		return Departure{}
	}
	return r.removeLocked(code, conn)
}

// removeLocked does the membership removal, host transfer, and
// delete-on-empty under the registry lock already held by the caller.
func (r *Registry) removeLocked(code, conn string) Departure {
	room := r.rooms[code]
	if room == nil {
		// Index said the room exists; treat a miss as a stale entry.
		delete(r.byConn, conn)
		return Departure{}
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.removeSession(conn) {
		return Departure{}
	}
	delete(r.byConn, conn)

	dep := Departure{Code: code, Removed: true}

	if room.empty() {
		delete(r.rooms, code)
		dep.Deleted = true
		log.Info().Str("room", code).Msg("room deleted")
		return dep
	}

	if room.Host == conn {
		// Host transfer goes to the earliest remaining joiner.
		room.Host = room.order[0]
		dep.NewHost = room.Host
		log.Debug().Str("room", code).Str("host", room.Host).Msg("host transferred")
	}

	dep.Names = room.names()
	dep.Conns = room.conns()
	dep.Status = room.statusSnapshot()
	return dep
}

// Stats reports current room and player counts for diagnostics.
func (r *Registry) Stats() (roomCount, playerCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.byConn)
}
