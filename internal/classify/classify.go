// Package classify decides whether a message payload is SQL or a natural
// language question. It is a keyword heuristic, not a parser.
package classify

import (
	"regexp"
	"strings"
)

var (
	commandWords = []string{"EXPLAIN", "DESCRIBE"}
	leadingWords = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP", "WITH"}
	anyKeyword   = regexp.MustCompile(`(?i)\b(SELECT|FROM|WHERE|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|TABLE|JOIN)\b`)
)

// IsNaturalLanguage returns false as soon as text looks like SQL.
func IsNaturalLanguage(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	upper := strings.ToUpper(trimmed)

	if startsWithWord(upper, commandWords) {
		return false
	}
	if strings.HasPrefix(upper, "--") || strings.HasPrefix(upper, "/*") {
		return false
	}
	if startsWithWord(upper, leadingWords) {
		return false
	}
	if strings.Contains(upper, ";") {
		return false
	}
	return !anyKeyword.MatchString(upper)
}

func startsWithWord(upper string, words []string) bool {
	for _, word := range words {
		if !strings.HasPrefix(upper, word) {
			continue
		}
		rest := upper[len(word):]
		if rest == "" || !isWordByte(rest[0]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
