// Package pipeline turns one inbound chat message into at most one reply:
// parse, classify, optionally generate and validate SQL, execute, package and
// deliver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/audit"
	"github.com/IvanVatroslav/SQLoslav/internal/classify"
	"github.com/IvanVatroslav/SQLoslav/internal/command"
	"github.com/IvanVatroslav/SQLoslav/internal/nl2sql"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/query"
	"github.com/IvanVatroslav/SQLoslav/internal/results"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
	"github.com/IvanVatroslav/SQLoslav/internal/sqlguard"
)

const noResultsText = "Query executed successfully but returned no results."

// Inbound is one actionable chat message.
type Inbound struct {
	EventID  string
	Channel  string
	User     string
	Text     string
	ThreadTS string
	// FileID is set for file_shared events instead of Text.
	FileID string
}

// Delivery is the outbound side of the chat platform.
type Delivery interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) error
	UploadFile(ctx context.Context, upload slack.Upload) (slack.File, error)
}

type Executor interface {
	Execute(ctx context.Context, backend string, request query.Request) (query.Result, error)
}

type Packager interface {
	Package(ctx context.Context, result query.Result) (results.Artifact, error)
}

// UploadRecorder remembers delivered files so they can be deleted later.
type UploadRecorder interface {
	Record(file slack.File, channel string, at time.Time)
}

type Pipeline struct {
	Parser     *command.Parser
	Translator nl2sql.Translator
	Executor   Executor
	Packager   Packager
	Delivery   Delivery
	Audit      audit.Publisher
	Uploads    UploadRecorder
	Schema     string
	// MaxRows caps rows read per query; 0 means no cap.
	MaxRows int
	Logger  *slog.Logger
	Clock      func() time.Time

	once sync.Once
}

// Process returns the text to post back, where "" means say nothing. A
// returned error carries the user-facing message in Error().
func (p *Pipeline) Process(ctx context.Context, in Inbound) (string, error) {
	p.ensureDefaults()
	logger := p.Logger.With("event_id", in.EventID, "channel", in.Channel)

	cmd, err := p.Parser.Parse(in.Text)
	if err != nil {
		logger.WarnContext(ctx, "message rejected by parser", slog.Any("error", err))
		return "", err
	}
	if cmd.IsHelp() {
		logger.DebugContext(ctx, "empty payload, sending help")
		return command.HelpText, nil
	}
	logger = logger.With("backend", cmd.Backend, "debug", cmd.Debug)

	if cmd.ExplicitBackend || !classify.IsNaturalLanguage(cmd.Payload) {
		logger.DebugContext(ctx, "running direct sql")
		return p.runDirect(ctx, logger, in, cmd)
	}
	logger.DebugContext(ctx, "running natural language question")
	return p.runQuestion(ctx, logger, in, cmd)
}

func (p *Pipeline) runDirect(ctx context.Context, logger *slog.Logger, in Inbound, cmd command.Command) (string, error) {
	sqlText := cmd.Payload
	result, err := p.execute(ctx, in, cmd, sqlText, nil)
	if err != nil {
		logger.ErrorContext(ctx, "query failed", slog.Any("error", err))
		return "", err
	}
	if result.Empty() {
		logger.InfoContext(ctx, "query returned no rows")
		return noResultsWithSQL(sqlText), nil
	}

	artifact, err := p.Packager.Package(ctx, result)
	if err != nil {
		return "", apperr.Contextf(apperr.KindPersistence, "saving results", in.Channel, err)
	}
	reply := results.WrapPreview(artifact.Summary)
	file, err := p.upload(ctx, in, artifact)
	if err != nil {
		logger.ErrorContext(ctx, "result upload failed", slog.Any("error", err))
		return reply + "\n" + err.Error(), nil
	}
	logger.InfoContext(ctx, "direct sql delivered", "rows", len(result.Rows), "file", file.ID)
	return reply + "\nFull results: " + file.Permalink, nil
}

func (p *Pipeline) runQuestion(ctx context.Context, logger *slog.Logger, in Inbound, cmd command.Command) (string, error) {
	generated, err := p.Translator.Translate(ctx, nl2sql.Request{Question: cmd.Payload, Schema: p.Schema})
	if err != nil {
		logger.ErrorContext(ctx, "sql generation failed", slog.Any("error", err))
		return "", apperr.Contextf(apperr.KindGeneration, "generating SQL query", in.Channel, err)
	}
	logger.InfoContext(ctx, "sql generated",
		"provider", generated.Provider,
		"model", generated.Model,
		"schema", generated.Schema,
		"extraction", string(generated.Extraction),
	)

	verdict := sqlguard.Validate(generated.SQL)
	if !verdict.Valid {
		observability.IncrementValidationRejection()
		message := "Generated SQL query failed validation: " + strings.Join(verdict.Issues, ", ")
		logger.WarnContext(ctx, "generated sql rejected", "sql", generated.SQL, "issues", verdict.Issues)
		return "", apperr.New(apperr.KindValidation, message)
	}

	if cmd.Debug {
		if err := p.Delivery.PostMessage(ctx, in.Channel, translationNotice(cmd.Payload, generated), in.ThreadTS); err != nil {
			logger.WarnContext(ctx, "debug notice not sent", slog.Any("error", err))
		}
	}

	result, err := p.execute(ctx, in, cmd, generated.SQL, &generated)
	if err != nil {
		logger.ErrorContext(ctx, "query failed", slog.Any("error", err))
		return "", err
	}
	if result.Empty() {
		logger.InfoContext(ctx, "query returned no rows")
		if cmd.Debug {
			return noResultsWithSQL(generated.SQL), nil
		}
		return noResultsText, nil
	}

	artifact, err := p.Packager.Package(ctx, result)
	if err != nil {
		return "", apperr.Contextf(apperr.KindPersistence, "saving results", in.Channel, err)
	}
	file, err := p.upload(ctx, in, artifact)
	if err != nil {
		logger.ErrorContext(ctx, "result upload failed", slog.Any("error", err))
		return err.Error(), nil
	}
	logger.InfoContext(ctx, "question answered", "rows", len(result.Rows), "file", file.ID)
	if cmd.Debug {
		return results.WrapPreview(artifact.Summary) + "\nFull results: " + file.Permalink, nil
	}
	return "", nil
}

func (p *Pipeline) execute(ctx context.Context, in Inbound, cmd command.Command, sqlText string, generated *nl2sql.Result) (query.Result, error) {
	result, err := p.Executor.Execute(ctx, cmd.Backend, query.Request{SQL: sqlText, MaxRows: p.MaxRows})
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == "" {
			kind = apperr.KindBackend
		}
		return query.Result{}, apperr.Contextf(kind, "executing query", in.Channel, err)
	}
	if result.Truncated {
		p.Logger.WarnContext(ctx, "query result truncated", "event_id", in.EventID, "backend", cmd.Backend, "max_rows", p.MaxRows)
	}

	record := audit.Record{
		EventID:    in.EventID,
		Channel:    in.Channel,
		User:       in.User,
		Backend:    cmd.Backend,
		SQL:        sqlText,
		Rows:       len(result.Rows),
		DurationMs: result.Duration.Milliseconds(),
	}
	if generated != nil {
		record.NaturalLanguage = true
		record.Question = cmd.Payload
		record.Provider = generated.Provider
		record.Model = generated.Model
	}
	if err := p.Audit.Publish(ctx, record.Stamp(p.Clock())); err != nil {
		p.Logger.WarnContext(ctx, "audit record not published", "event_id", in.EventID, slog.Any("error", err))
	}
	return result, nil
}

func (p *Pipeline) upload(ctx context.Context, in Inbound, artifact results.Artifact) (slack.File, error) {
	file, err := p.Delivery.UploadFile(ctx, slack.Upload{
		Path:     artifact.Path,
		Title:    artifact.Name,
		Channel:  in.Channel,
		ThreadTS: in.ThreadTS,
	})
	observability.ObserveUpload(err)
	if err != nil {
		return slack.File{}, apperr.Contextf(apperr.KindDelivery, "uploading file", in.Channel, err)
	}
	if p.Uploads != nil {
		p.Uploads.Record(file, in.Channel, p.Clock())
	}
	return file, nil
}

func (p *Pipeline) ensureDefaults() {
	p.once.Do(p.applyDefaults)
}

func (p *Pipeline) applyDefaults() {
	if p.Logger == nil {
		p.Logger = observability.NopLogger()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Audit == nil {
		p.Audit = audit.Nop{}
	}
	if p.Schema == "" {
		p.Schema = nl2sql.DefaultSchema
	}
}

func noResultsWithSQL(sqlText string) string {
	return fmt.Sprintf("%s\nSQL query: ```%s```", noResultsText, sqlText)
}

func translationNotice(question string, generated nl2sql.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translating your question: \"%s\"\n\n", question)
	fmt.Fprintf(&b, "Generated SQL Query:\n```%s```\n\n", generated.SQL)
	if generated.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n\n", generated.Explanation)
	}
	b.WriteString("Executing the generated query now...\n")
	return b.String()
}
