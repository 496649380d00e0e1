// apps/rooms-server/assets/embed.go
//
// Embedded default word lists so the server runs without any files
// configured. Production deployments point WORDS_ANSWERS_FILE /
// WORDS_ALLOWED_FILE at the full lists instead.
package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed allowed.txt answers.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// AnswersList returns the embedded default answer words.
func AnswersList() ([]string, error) {
	return readLines("answers.txt")
}

// AllowedList returns the embedded default allowed-guess words.
func AllowedList() ([]string, error) {
	return readLines("allowed.txt")
}
