package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/idempotency"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

// ErrClaimUnavailable means the idempotency store could not be reached and
// the event was not dispatched. The transport should let Slack retry.
var ErrClaimUnavailable = errors.New("idempotency store unavailable")

type Processor interface {
	Process(ctx context.Context, in Inbound) (string, error)
}

type Poster interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) error
}

// Bot accepts Events API envelopes, de-duplicates them and runs each new
// message through the pipeline in the background.
type Bot struct {
	Pipeline Processor
	// Files handles file_shared events; they are ignored when nil.
	Files    *FileHandler
	Store    idempotency.Store
	Poster   Poster
	Timeout  time.Duration
	Logger   *slog.Logger

	once     sync.Once
	inflight sync.WaitGroup
}

// Accept handles one envelope. For url_verification it returns the challenge
// to echo. Accept never blocks on pipeline work.
func (b *Bot) Accept(ctx context.Context, envelope slack.Envelope) (string, error) {
	b.once.Do(b.applyDefaults)

	switch envelope.Type {
	case slack.EnvelopeURLVerification:
		return envelope.Challenge, nil
	case slack.EnvelopeEventCallback:
	default:
		b.Logger.DebugContext(ctx, "ignoring envelope", "type", envelope.Type)
		return "", nil
	}

	event, err := envelope.DecodeEvent()
	if err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}
	fileShare := event.FileShare() && b.Files != nil
	if !fileShare && !event.Actionable() {
		b.Logger.DebugContext(ctx, "ignoring event", "event_type", event.Type, "subtype", event.Subtype, "event_id", envelope.EventID)
		return "", nil
	}

	// A mention in a channel arrives as both message and app_mention with
	// different event ids, so the message itself is claimed as well.
	for _, key := range []string{envelope.EventID, event.MessageKey()} {
		if strings.TrimSpace(key) == "" {
			continue
		}
		first, err := b.Store.Claim(ctx, key)
		if err != nil {
			b.Logger.ErrorContext(ctx, "event claim failed", "event_id", envelope.EventID, "key", key, slog.Any("error", err))
			return "", fmt.Errorf("%w: %v", ErrClaimUnavailable, err)
		}
		if !first {
			observability.IncrementDuplicateEvent()
			b.Logger.InfoContext(ctx, "duplicate event ignored", "event_id", envelope.EventID, "key", key)
			return "", nil
		}
	}

	in := Inbound{
		EventID:  envelope.EventID,
		Channel:  event.Channel,
		User:     event.User,
		Text:     event.Text,
		ThreadTS: event.ThreadTS,
	}
	if fileShare {
		in.Channel = event.ChannelID
		in.User = event.UserID
		in.FileID = event.FileID
	}
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.Timeout)
		defer cancel()
		if in.FileID != "" {
			b.reply(runCtx, in, b.Files.HandleFile(runCtx, in))
			return
		}
		b.dispatch(runCtx, in)
	}()
	return "", nil
}

// HandleEnvelope adapts Accept to the Socket Mode handler signature.
func (b *Bot) HandleEnvelope(ctx context.Context, envelope slack.Envelope) {
	if _, err := b.Accept(ctx, envelope); err != nil {
		b.Logger.ErrorContext(ctx, "socket envelope not accepted", "event_id", envelope.EventID, slog.Any("error", err))
	}
}

// Wait blocks until every dispatched message has finished or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) dispatch(ctx context.Context, in Inbound) {
	reply, err := b.Pipeline.Process(ctx, in)
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		reply = err.Error()
		b.Logger.WarnContext(ctx, "message failed",
			"event_id", in.EventID,
			"channel", in.Channel,
			"kind", outcome,
			"error", observability.Mask(reply),
		)
	}
	observability.ObserveMessage(outcome)
	b.reply(ctx, in, reply)
}

func (b *Bot) reply(ctx context.Context, in Inbound, reply string) {
	if reply == "" {
		return
	}
	if err := b.Poster.PostMessage(ctx, in.Channel, reply, in.ThreadTS); err != nil {
		b.Logger.ErrorContext(ctx, "reply not delivered",
			"event_id", in.EventID,
			"channel", in.Channel,
			slog.Any("error", apperr.Contextf(apperr.KindDelivery, "sending message", in.Channel, err)),
		)
	}
}

func (b *Bot) applyDefaults() {
	if b.Logger == nil {
		b.Logger = observability.NopLogger()
	}
	if b.Timeout <= 0 {
		b.Timeout = 5 * time.Minute
	}
	if b.Store == nil {
		b.Store = idempotency.NewMemoryStore()
	}
}
