// apps/rooms-server/internal/game/types.go
//
// Core type definitions for the guess feedback engine.
// Defines:
//   - Mark: per-letter result of a guess (hit/present/miss).
//   - Board dimensions shared with the room coordinator.

package game

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "hit":     letter is correct and in the correct position.
//   - "present": letter exists in the answer but in a different position.
//   - "miss":    letter does not exist in the answer at all.
type Mark string

const (
	MarkHit     Mark = "hit"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
)

const (
	// WordLength is the fixed length of answers and guesses.
	WordLength = 5

	// MaxGuesses is the attempt limit per player per round.
	MaxGuesses = 6
)
