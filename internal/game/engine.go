// apps/rooms-server/internal/game/engine.go
//
// Pure feedback engine for a single guess against a solution word.
// Responsibilities:
//   - Score guesses using the classic two-pass Wordle algorithm.
//   - Normalize case so callers can mix upper/lower input.
//   - Validate guess shape (length, alphabetic a–z).
//
// The engine holds no state: Score is deterministic for any input pair,
// which is what lets the room coordinator stay the single owner of all
// mutable round state.
package game

import "strings"

// Score implements the standard Wordle two-pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches as Hit.
//   - Count remaining (non-hit) answer letters by letter index.
//
// Pass 2:
//   - For each non-hit guess letter: if there is remaining count for that letter,
//     mark Present and decrement the count; otherwise mark Miss.
//
// This ensures correct behavior with repeated letters in both answer and guess:
// a letter never yields more Present marks than its unmatched occurrences in
// the answer. Both inputs are lowercased before comparison.
func Score(answer, guess string) []Mark {
	answer = strings.ToLower(answer)
	guess = strings.ToLower(guess)

	n := len(guess)
	res := make([]Mark, n)
	answerRunes := []rune(answer)
	guessRunes := []rune(guess)

	// Letter frequency for the non-hit positions (a–z).
	var counts [26]int

	// First pass: mark hits and collect counts for remaining answer letters.
	for i := 0; i < n; i++ {
		if guessRunes[i] == answerRunes[i] {
			res[i] = MarkHit
		} else {
			counts[idx(answerRunes[i])]++
		}
	}

	// Second pass: resolve presents/misses for non-hit tiles.
	for i := 0; i < n; i++ {
		if res[i] == MarkHit {
			continue
		}
		j := idx(guessRunes[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkMiss
		}
	}
	return res
}

// AllHit returns true if every mark is MarkHit, i.e. the guess equals the answer.
func AllHit(m []Mark) bool {
	for _, x := range m {
		if x != MarkHit {
			return false
		}
	}
	return true
}

// ValidGuess reports whether s has the right shape to be scored:
// exactly WordLength ASCII letters (case-insensitive).
func ValidGuess(s string) bool {
	s = strings.ToLower(s)
	return len(s) == WordLength && isAlpha(s)
}

// idx maps a lowercase ASCII letter rune to 0..25.
// Assumes inputs are validated to a–z elsewhere.
func idx(r rune) int { return int(r - 'a') }

// isAlpha checks that a string consists only of lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
