package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
)

const systemPromptTemplate = `You are an expert SQL query generator. Your task is to convert natural language questions into correct and efficient SQL queries based on the provided database schema.

DATABASE SCHEMA:
%s

INSTRUCTIONS:
1. Generate a valid SQL query that answers the user's question.
2. Only use tables and columns that exist in the schema.
3. Format your response in JSON with two fields:
   - "sql": The generated SQL query
   - "explanation": A brief explanation of what the query does
4. Do not include any text outside of the JSON structure.
5. If you can't generate a query due to ambiguity or missing information, return a JSON with "error" and "message" fields explaining the issue.`

type GeneratorOptions struct {
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// Generator is the Translator backed by a chat model.
type Generator struct {
	completer   Completer
	schemas     *SchemaCatalog
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func NewGenerator(completer Completer, schemas *SchemaCatalog, opts GeneratorOptions) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema catalog is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Generator{
		completer:   completer,
		schemas:     schemas,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      opts.Logger,
	}, nil
}

func (g *Generator) Translate(ctx context.Context, req Request) (Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Result{}, apperr.New(apperr.KindGeneration, "question is empty")
	}
	schema, description, exact := g.schemas.Resolve(req.Schema)
	if !exact {
		observability.IncrementSchemaMismatch()
		g.logger.Warn("schema has no description, using default", "requested_schema", req.Schema, "schema", schema)
	}

	started := time.Now()
	text, err := g.completer.Complete(ctx, ChatRequest{
		System:      BuildSystemPrompt(description),
		User:        BuildUserPrompt(question),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		observability.ObserveGeneration(g.completer.Provider(), "failed", time.Since(started))
		return Result{}, apperr.Wrap(apperr.KindGeneration, "Failed to generate SQL query", err)
	}
	decoded, err := Decode(text)
	if err != nil {
		observability.ObserveGeneration(g.completer.Provider(), "rejected", time.Since(started))
		return Result{}, err
	}
	observability.ObserveGeneration(g.completer.Provider(), string(decoded.Extraction), time.Since(started))
	if decoded.Extraction != ExtractionStructured {
		g.logger.Warn("model reply was not structured JSON", "extraction", decoded.Extraction)
	}

	return Result{
		SQL:         decoded.SQL,
		Explanation: decoded.Explanation,
		Provider:    g.completer.Provider(),
		Model:       g.completer.Model(),
		Schema:      schema,
		Extraction:  decoded.Extraction,
	}, nil
}

func BuildSystemPrompt(schemaDescription string) string {
	return fmt.Sprintf(systemPromptTemplate, strings.TrimSpace(schemaDescription))
}

func BuildUserPrompt(question string) string {
	return "Convert this question to SQL: " + question
}
