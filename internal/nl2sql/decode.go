package nl2sql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
)

type Decoded struct {
	SQL         string
	Explanation string
	Extraction  Extraction
}

type modelReply struct {
	SQL         *string `json:"sql"`
	Explanation string  `json:"explanation"`
	Error       any     `json:"error"`
	Message     string  `json:"message"`
}

// Decode turns raw model text into SQL. It tries, in order, a JSON object
// with "sql", a line scan starting at the first SELECT, and finally the
// whole trimmed text. A JSON reply carrying "error" is a generation failure.
func Decode(text string) (Decoded, error) {
	body := stripCodeFence(text)
	if body == "" {
		return Decoded{}, apperr.New(apperr.KindGeneration, "model returned an empty response")
	}

	if reply, ok := parseReply(body); ok {
		if reply.Error != nil && reply.Error != false {
			msg := strings.TrimSpace(reply.Message)
			if msg == "" {
				msg = strings.TrimSpace(fmt.Sprint(reply.Error))
			}
			if msg == "" || msg == "true" {
				msg = "Unknown error in query generation"
			}
			return Decoded{}, apperr.New(apperr.KindGeneration, msg)
		}
		if reply.SQL != nil && strings.TrimSpace(*reply.SQL) != "" {
			return Decoded{
				SQL:         strings.TrimSpace(*reply.SQL),
				Explanation: strings.TrimSpace(reply.Explanation),
				Extraction:  ExtractionStructured,
			}, nil
		}
		return Decoded{}, apperr.New(apperr.KindGeneration, "model response did not contain a SQL query")
	}

	if sql := scanSelect(body); sql != "" {
		return Decoded{SQL: sql, Extraction: ExtractionHeuristic}, nil
	}
	return Decoded{SQL: body, Extraction: ExtractionRaw}, nil
}

func parseReply(body string) (modelReply, bool) {
	var reply modelReply
	if err := json.Unmarshal([]byte(body), &reply); err == nil {
		return reply, true
	}
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return modelReply{}, false
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), &reply); err != nil {
		return modelReply{}, false
	}
	return reply, true
}

// scanSelect collects lines from the first one mentioning SELECT up to and
// including the first line containing a semicolon.
func scanSelect(body string) string {
	if !strings.Contains(strings.ToUpper(body), "SELECT") {
		return ""
	}
	var lines []string
	capturing := false
	for _, line := range strings.Split(body, "\n") {
		if !capturing && strings.Contains(strings.ToUpper(line), "SELECT") {
			capturing = true
		}
		if !capturing {
			continue
		}
		lines = append(lines, line)
		if strings.Contains(line, ";") {
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	for _, tag := range []string{"json", "sql"} {
		if len(inner) >= len(tag) && strings.EqualFold(inner[:len(tag)], tag) {
			inner = inner[len(tag):]
			break
		}
	}
	return strings.TrimSpace(inner)
}
