// Package sqlguard statically checks generated SQL against a read-only,
// single-statement policy before it is allowed to run.
package sqlguard

import (
	"regexp"
	"strings"
)

const (
	IssueEmpty     = "empty query"
	IssueNotSelect = "only SELECT queries are allowed in this phase"
	IssueSyntax    = "basic syntax check failed"
)

type Verdict struct {
	Valid  bool     `json:"is_valid"`
	Issues []string `json:"issues"`
}

type denyRule struct {
	name    string
	pattern *regexp.Regexp
}

var (
	leadingSelect = regexp.MustCompile(`(?i)^SELECT\b`)
	hasFrom       = regexp.MustCompile(`(?i)\bFROM\b`)

	// Order matters: the first match names the issue.
	denyRules = []denyRule{
		{"DROP", regexp.MustCompile(`(?i)\bDROP\s+`)},
		{"TRUNCATE", regexp.MustCompile(`(?i)\bTRUNCATE\s+`)},
		{"DELETE FROM", regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+`)},
		{"ALTER TABLE", regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+`)},
		{"UPDATE", regexp.MustCompile(`(?i)\bUPDATE\s+`)},
		{"INSERT INTO", regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+`)},
		{"; DROP", regexp.MustCompile(`(?i);\s*DROP\s+`)},
		{"--", regexp.MustCompile(`--`)},
		{"/*", regexp.MustCompile(`/\*`)},
	}
)

// Validate never fails; malformed input becomes an issue in the verdict.
func Validate(sqlText string) Verdict {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return reject(IssueEmpty)
	}
	if !leadingSelect.MatchString(trimmed) {
		return reject(IssueNotSelect)
	}
	for _, rule := range denyRules {
		if rule.pattern.MatchString(trimmed) {
			return reject("potentially dangerous operation detected: " + rule.name)
		}
	}
	if !structurallySound(trimmed) {
		return reject(IssueSyntax)
	}
	return Verdict{Valid: true, Issues: []string{}}
}

func structurallySound(trimmed string) bool {
	if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
		return false
	}
	switch strings.Count(trimmed, ";") {
	case 0:
	case 1:
		if !strings.HasSuffix(trimmed, ";") {
			return false
		}
	default:
		return false
	}
	if leadingSelect.MatchString(trimmed) && !hasFrom.MatchString(trimmed) {
		return false
	}
	return true
}

func reject(issue string) Verdict {
	return Verdict{Valid: false, Issues: []string{issue}}
}
