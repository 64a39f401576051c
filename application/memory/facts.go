package memory

import (
	"regexp"
	"strings"
)

// Self-introduction patterns. Capture group 1 is the value.
var factPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)\bmy name is ([a-z][a-z .'-]{1,40})`)},
	{"name", regexp.MustCompile(`(?i)\bcall me ([a-z][a-z .'-]{1,40})`)},
	{"name", regexp.MustCompile(`(?i)^i'?m ([a-z][a-z .'-]{1,40})$`)},
	{"favorite_genre", regexp.MustCompile(`(?i)\bmy favou?rite genre is ([a-z][a-z &/-]{1,40})`)},
	{"favorite_artist", regexp.MustCompile(`(?i)\bmy favou?rite (?:artist|band) is ([a-z0-9][a-z0-9 .&'-]{1,60})`)},
}

// extractFacts pattern-matches a user message for durable, user-stated
// facts. New matches overwrite the same key; unrelated prior facts are
// never discarded.
func extractFacts(message string) map[string]string {
	var facts map[string]string
	trimmed := strings.TrimSpace(message)
	for _, p := range factPatterns {
		match := p.re.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		value := strings.TrimRight(strings.TrimSpace(match[1]), ".!?,")
		if value == "" {
			continue
		}
		if facts == nil {
			facts = make(map[string]string)
		}
		facts[p.key] = value
	}
	return facts
}
