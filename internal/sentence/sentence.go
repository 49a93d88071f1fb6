package sentence

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// Split segments text into trimmed sentences using Unicode sentence
// boundaries (UAX #29), which handle French punctuation and abbreviations
// better than a naive period split.
func Split(text string) []string {
	var out []string
	tokens := sentences.FromString(text)
	for tokens.Next() {
		if s := strings.TrimSpace(tokens.Value()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
