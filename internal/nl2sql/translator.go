package nl2sql

import "context"

// Extraction records which decoding stage produced the SQL text.
type Extraction string

const (
	ExtractionStructured Extraction = "structured"
	ExtractionHeuristic  Extraction = "heuristic"
	ExtractionRaw        Extraction = "raw"
)

type Request struct {
	Question string `json:"question"`
	Schema   string `json:"schema,omitempty"`
}

type Result struct {
	SQL         string     `json:"sql"`
	Explanation string     `json:"explanation,omitempty"`
	Provider    string     `json:"provider"`
	Model       string     `json:"model"`
	Schema      string     `json:"schema"`
	Extraction  Extraction `json:"extraction"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// ChatRequest is a single system+user exchange with a language model.
type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer returns the raw assistant text for a chat request.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Provider() string
	Model() string
}
