// apps/rooms-server/internal/words/words.go
//
// Word list provider for the room coordinator.
//
// Responsibilities:
//   - Load answer and allowed guess lists from environment-provided files or
//     fall back to the embedded defaults in the assets package.
//   - Maintain sets for quick lookups (answers only, answers∪guesses).
//   - Supply Random, IsValid, IsAnswer, and Stats.
//
// Word Lists:
//   - "answers": canonical solutions (exactly 5 lowercase letters).
//   - "allowed": valid guesses (always includes answers).
//
// Load behavior:
//   1. If WORDS_ANSWERS_FILE and WORDS_ALLOWED_FILE are both set,
//      load answers from the first and allowed guesses from the second.
//   2. If only WORDS_ALLOWED_FILE is set,
//      load that file and use it for both answers and allowed guesses.
//   3. If neither is set, fall back to the embedded defaults.
//
// Environment variables:
//   WORDS_ANSWERS_FILE=/path/to/answers.txt
//   WORDS_ALLOWED_FILE=/path/to/allowed.txt
//
// Constraints:
//   • Words must be 5 alphabetic letters (a–z).
//   • Lists are normalized to lowercase.
//
// Unlike a package-global singleton, List is a value the caller constructs
// and injects, so tests can build tiny fixed lists.

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/wordle/apps/rooms-server/assets"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/game"
)

// List holds the loaded word lists and their lookup sets.
type List struct {
	answers    []string
	answersSet map[string]struct{}
	allowedSet map[string]struct{} // answers ∪ guesses
}

// Load builds a List from environment-configured files, or from the
// embedded defaults when no files are configured.
// Returns an error if the answers list ends up empty.
func Load() (*List, error) {
	var ansList, allowList []string

	answersPath := os.Getenv("WORDS_ANSWERS_FILE")
	allowedPath := os.Getenv("WORDS_ALLOWED_FILE")

	switch {
	// Case 1: both lists provided
	case answersPath != "" && allowedPath != "":
		var err error
		ansList, err = readWordFile(answersPath)
		if err != nil {
			return nil, err
		}
		allowList, err = readWordFile(allowedPath)
		if err != nil {
			return nil, err
		}

	// Case 2: only allowed file provided → use for both
	case answersPath == "" && allowedPath != "":
		var err error
		allowList, err = readWordFile(allowedPath)
		if err != nil {
			return nil, err
		}
		ansList = allowList

	// Case 3: fallback to embedded defaults
	default:
		var err error
		ansList, err = assets.AnswersList()
		if err != nil {
			return nil, err
		}
		allowList, err = assets.AllowedList()
		if err != nil {
			return nil, err
		}
	}

	return NewList(ansList, allowList)
}

// NewList builds a List from explicit slices. Words are normalized to
// lowercase and anything that is not exactly 5 letters is dropped.
// Answers are always merged into the allowed set.
func NewList(answers, allowed []string) (*List, error) {
	l := &List{
		answersSet: make(map[string]struct{}),
		allowedSet: make(map[string]struct{}),
	}
	for _, w := range answers {
		w = strings.TrimSpace(strings.ToLower(w))
		if !game.ValidGuess(w) {
			continue
		}
		if _, dup := l.answersSet[w]; dup {
			continue
		}
		l.answers = append(l.answers, w)
		l.answersSet[w] = struct{}{}
		l.allowedSet[w] = struct{}{}
	}
	for _, w := range allowed {
		w = strings.TrimSpace(strings.ToLower(w))
		if !game.ValidGuess(w) {
			continue
		}
		l.allowedSet[w] = struct{}{}
	}
	if len(l.answers) == 0 {
		return nil, errors.New("words: answers list is empty")
	}
	return l, nil
}

// readWordFile loads one word per line from a file,
// lowercases, trims, and keeps only valid 5-letter alphabetic words.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if game.ValidGuess(w) {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// Random returns a cryptographically random answer from the answers list.
func (l *List) Random() string {
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	return l.answers[nBig.Int64()]
}

// IsValid reports whether w is an accepted guess (answers ∪ guesses).
func (l *List) IsValid(w string) bool {
	_, ok := l.allowedSet[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (l *List) IsAnswer(w string) bool {
	_, ok := l.answersSet[strings.ToLower(w)]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func (l *List) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.allowedSet)
}
