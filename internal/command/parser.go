// Package command turns raw chat message text into a structured bot command.
//
// Recognized shapes, in priority order:
//
//	sql, <backend> [query]\n[query...]   direct SQL against an explicit backend
//	<trigger>, debug <text>              debug mode, default backend
//	<trigger> <text>                     default backend; empty text asks for help
//	<anything else>                      verbatim payload, default backend
package command

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
)

const HelpText = "I'm SQLoslav, your SQL assistant! Please ask me a question or provide a SQL query to execute."

var (
	backendPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	mentionPattern = regexp.MustCompile(`^(?:\s*<@[A-Z0-9]+(?:\|[^>]*)?>)+`)
	slackEntities  = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
	fenceTags      = map[string]struct{}{"sql": {}, "pgsql": {}, "postgresql": {}, "plsql": {}, "text": {}}
)

// Command is the parsed form of one inbound message. It is never mutated after
// Parse returns it.
type Command struct {
	Backend string
	Payload string
	Debug   bool
	// ExplicitBackend is true when the message selected the backend itself.
	ExplicitBackend bool
}

// IsHelp reports whether the message carried no payload.
func (c Command) IsHelp() bool {
	return c.Payload == ""
}

type Parser struct {
	defaultBackend string
	debugPattern   *regexp.Regexp
	triggerPattern *regexp.Regexp
}

func NewParser(triggerWord, defaultBackend string) (*Parser, error) {
	triggerWord = strings.TrimSpace(triggerWord)
	if triggerWord == "" {
		return nil, fmt.Errorf("trigger word is required")
	}
	defaultBackend = strings.ToUpper(strings.TrimSpace(defaultBackend))
	if defaultBackend == "" {
		return nil, fmt.Errorf("default backend is required")
	}
	quoted := regexp.QuoteMeta(triggerWord)
	return &Parser{
		defaultBackend: defaultBackend,
		debugPattern:   regexp.MustCompile(`(?is)^` + quoted + `\s*,\s*debug\b\s*(.*)$`),
		triggerPattern: regexp.MustCompile(`(?is)^` + quoted + `\b[\s,:]*(.*)$`),
	}, nil
}

// Parse fails with a format error only for a malformed "sql, <backend>" line;
// every other text is a valid command.
func (p *Parser) Parse(text string) (Command, error) {
	text = strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
	if text == "" {
		return Command{Backend: p.defaultBackend}, nil
	}

	if cmd, ok, err := p.parseDirectSQL(text); ok || err != nil {
		return cmd, err
	}
	if match := p.debugPattern.FindStringSubmatch(text); match != nil {
		return Command{Backend: p.defaultBackend, Payload: cleanPayload(match[1]), Debug: true}, nil
	}
	if match := p.triggerPattern.FindStringSubmatch(text); match != nil {
		return Command{Backend: p.defaultBackend, Payload: cleanPayload(match[1])}, nil
	}
	return Command{Backend: p.defaultBackend, Payload: cleanPayload(text)}, nil
}

func (p *Parser) parseDirectSQL(text string) (Command, bool, error) {
	firstLine, rest, _ := strings.Cut(text, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if !strings.HasPrefix(strings.ToLower(firstLine), "sql,") {
		return Command{}, false, nil
	}

	selector := strings.TrimSpace(firstLine[len("sql,"):])
	backend, inline := selector, ""
	if idx := strings.IndexFunc(selector, unicode.IsSpace); idx >= 0 {
		backend, inline = selector[:idx], selector[idx:]
	}
	backend = strings.Trim(backend, "`")
	if !backendPattern.MatchString(backend) {
		return Command{}, true, apperr.New(apperr.KindFormat,
			"Invalid database type format. Expected \"sql, <database>\" on the first line followed by the query.")
	}

	query := strings.TrimSpace(inline)
	if rest != "" {
		query = strings.TrimSpace(query + "\n" + rest)
	}
	return Command{
		Backend:         strings.ToUpper(backend),
		Payload:         cleanPayload(query),
		ExplicitBackend: true,
	}, true, nil
}

// cleanPayload undoes Slack's entity escaping and strips one layer of code
// fence or inline-code backticks.
func cleanPayload(raw string) string {
	s := strings.TrimSpace(slackEntities.Replace(raw))
	switch {
	case len(s) >= 6 && strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```"):
		s = s[3 : len(s)-3]
		if tag, body, found := strings.Cut(s, "\n"); found {
			if _, ok := fenceTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
				s = body
			}
		}
	case len(s) >= 2 && strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`"):
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
