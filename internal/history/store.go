// apps/rooms-server/internal/history/store.go
//
// SQLite-backed record of finished rounds.
// Responsibilities:
//   - Open the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Bootstrap the rounds table on open (idempotent).
//   - Record each completed round (best effort: failures are logged, never
//     surfaced to the round that triggered them).
//   - Serve the recent-rounds query for the diagnostics endpoint.
//
// Live room/session state is never written here; only the summary of a
// round that already ended. Losing this database loses history, not games.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    room_code  TEXT    NOT NULL,
    word       TEXT    NOT NULL,
    players    INTEGER NOT NULL,
    winners    INTEGER NOT NULL,
    started_at TEXT    NOT NULL,
    ended_at   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rounds_ended_at ON rounds(ended_at);
`

// Store records finished rounds in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the history database at dsn and
// applies the schema.
//
//   - Ensures the parent directory exists for relative DSNs (./data/app.db).
//   - Configures busy timeout and WAL journaling mode.
//   - Enforces foreign keys.
func Open(dsn string) (*Store, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordRound persists one completed round. Best effort: a failed insert is
// logged and swallowed so game flow never depends on the database.
func (s *Store) RecordRound(rec rooms.RoundRecord) {
	_, err := s.db.Exec(`
        INSERT INTO rounds (room_code, word, players, winners, started_at, ended_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RoomCode, rec.Word, rec.Players, rec.Winners,
		rec.StartedAt.UTC().Format(time.RFC3339), rec.EndedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		log.Warn().Err(err).Str("room", rec.RoomCode).Msg("record round")
	}
}

// Round is one row of round history as served to clients.
type Round struct {
	RoomCode string `json:"roomCode"`
	Word     string `json:"word"`
	Players  int    `json:"players"`
	Winners  int    `json:"winners"`
	EndedAt  string `json:"endedAt"`
}

// Recent returns the most recently finished rounds, newest first.
// Default limit is 20 if not specified.
func (s *Store) Recent(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT room_code, word, players, winners, ended_at
        FROM rounds
        ORDER BY ended_at DESC, id DESC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Round, 0, limit)
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.RoomCode, &r.Word, &r.Players, &r.Winners, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
