package orchestrator

import (
	"regexp"
	"strings"
)

const (
	titleMaxWords = 5
	titleMaxChars = 50
)

// fillerPrefixes are conversational lead-ins stripped before deriving a
// session title.
var fillerPrefixes = []string{
	"please",
	"can you",
	"could you",
	"would you",
	"help me",
	"i need help with",
	"i need",
	"i want to",
	"i'd like to",
	"hey",
	"hi",
	"hello",
}

var bracketedMarker = regexp.MustCompile(`\[[^\]]*\]`)

// DeriveTitle builds a short session title from the first user message:
// bracketed context markers and leading filler are stripped, the first
// sentence is taken and the result is capped at 5 words or 50 characters
// with an ellipsis.
func DeriveTitle(message string) string {
	s := bracketedMarker.ReplaceAllString(message, " ")
	s = strings.Join(strings.Fields(s), " ")

	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, prefix := range fillerPrefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := s[len(prefix):]
			// A filler must end at a word boundary; "hi" must not eat into
			// "high cpu".
			if rest != "" && !strings.ContainsRune(" ,.:;!-", rune(rest[0])) {
				continue
			}
			rest = strings.TrimLeft(rest, " ,.:;!-")
			if rest != s {
				s = rest
				changed = true
			}
			break
		}
	}

	s = firstSentence(s)
	if s == "" {
		return "New investigation"
	}

	truncated := false
	words := strings.Fields(s)
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
		truncated = true
	}
	s = strings.Join(words, " ")
	if len(s) > titleMaxChars {
		s = strings.TrimSpace(s[:titleMaxChars])
		truncated = true
	}
	s = strings.TrimRight(s, ".,!?;: ")
	if truncated {
		s += "..."
	}
	return s
}

// firstSentence returns the text up to the first sentence terminator.
func firstSentence(s string) string {
	for i, r := range s {
		switch r {
		case '.', '!', '?', '\n':
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}
