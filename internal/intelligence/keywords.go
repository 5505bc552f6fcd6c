package intelligence

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// stopWords are dropped from prompts before keyword matching. Besides
// common English words they include generic edit verbs that say nothing
// about which file to touch.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "for": true, "from": true,
	"i": true, "in": true, "into": true, "is": true, "it": true, "its": true,
	"me": true, "my": true, "of": true, "on": true, "or": true, "our": true,
	"so": true, "that": true, "the": true, "their": true, "then": true,
	"this": true, "to": true, "we": true, "when": true, "with": true,
	"you": true, "your": true, "should": true, "would": true, "could": true,
	"please": true, "make": true, "add": true, "change": true, "update": true,
	"fix": true, "modify": true, "edit": true, "set": true, "use": true,
	"want": true, "need": true, "some": true, "more": true, "less": true,
	"new": true, "all": true,
}

// promptTokens lowercases prompt, splits it into words and drops stop
// words and single characters. Order is preserved and duplicates removed.
func promptTokens(prompt string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range splitWords(prompt) {
		w = strings.ToLower(w)
		if len(w) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// pathTokens splits a path into lowercase words, including camelCase
// boundaries: "/src/components/GameBoard.tsx" gives src, components,
// gameboard, game, board, tsx.
func pathTokens(p string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(w string) {
		w = strings.ToLower(w)
		if len(w) < 2 || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, w := range splitWords(p) {
		add(w)
		for _, part := range splitCamel(w) {
			add(part)
		}
	}
	return out
}

// contentTokens returns the set of lowercase words in content, split on
// camelCase too.
func contentTokens(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range splitWords(content) {
		if len(w) < 2 {
			continue
		}
		set[strings.ToLower(w)] = true
		for _, part := range splitCamel(w) {
			if len(part) >= 2 {
				set[strings.ToLower(part)] = true
			}
		}
	}
	return set
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitCamel splits "GameBoard" into "Game", "Board". Words without an
// inner upper-case letter yield nothing.
func splitCamel(w string) []string {
	runes := []rune(w)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	if start == 0 {
		return nil
	}
	return append(parts, string(runes[start:]))
}

// fuzzyLimit is the edit distance tolerated between a prompt token and a
// path token of the given length. Short tokens must match exactly.
func fuzzyLimit(length int) int {
	switch {
	case length <= 4:
		return 0
	case length <= 8:
		return 1
	default:
		return 2
	}
}

// keywordScore is the fraction of prompt tokens found in the file's content
// or path tokens, with typo tolerance against path tokens.
func keywordScore(tokens []string, path []string, content map[string]bool) float64 {
	if len(tokens) == 0 {
		return 0
	}
	found := 0
	for _, tok := range tokens {
		if content[tok] || matchesPath(tok, path) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

func matchesPath(tok string, path []string) bool {
	limit := fuzzyLimit(len(tok))
	for _, p := range path {
		if p == tok {
			return true
		}
		if limit > 0 && levenshtein.ComputeDistance(tok, p) <= limit {
			return true
		}
	}
	return false
}
