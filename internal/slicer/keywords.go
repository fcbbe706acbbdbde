package slicer

import "strings"

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "have": true, "are": true, "was": true,
	"were": true, "been": true, "will": true, "would": true, "could": true,
	"should": true, "can": true, "into": true, "about": true, "when": true,
	"what": true, "how": true, "does": true, "not": true, "you": true,
	"your": true, "its": true, "all": true, "any": true,
}

// ExtractKeywords lowercases and tokenizes task on non-alphanumeric
// boundaries, keeping tokens of length >= 3 that aren't stopwords.
func ExtractKeywords(task string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		word := cur.String()
		cur.Reset()
		if len(word) >= 3 && !stopwords[word] {
			tokens = append(tokens, word)
		}
	}

	for _, r := range strings.ToLower(task) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
