package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IvanVatroslav/SQLoslav/internal/observability"
)

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type"`
	Reason     string          `json:"reason,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type connectionOpener interface {
	OpenConnection(ctx context.Context) (string, error)
}

var errReconnect = errors.New("slack requested reconnect")

// SocketMode receives Events API envelopes over a Socket Mode websocket and
// passes them to Handle after acknowledging them.
type SocketMode struct {
	Opener     connectionOpener
	Handle     func(ctx context.Context, envelope Envelope)
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
	RetryDelay time.Duration
}

// Run connects and reconnects until ctx is done.
func (s *SocketMode) Run(ctx context.Context) error {
	if s.Opener == nil || s.Handle == nil {
		return fmt.Errorf("socket mode requires an opener and a handler")
	}
	logger := s.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	retry := s.RetryDelay
	if retry <= 0 {
		retry = 2 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		err := s.session(ctx, dialer, logger)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errReconnect) {
			logger.Info("slack socket reconnecting")
			continue
		}
		logger.Warn("slack socket session ended", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

func (s *SocketMode) session(ctx context.Context, dialer *websocket.Dialer, logger *slog.Logger) error {
	wsURL, err := s.Opener.OpenConnection(ctx)
	if err != nil {
		return err
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial socket mode: %w", err)
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	logger.Info("slack socket connected")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			logger.Warn("slack socket sent invalid json", slog.Any("error", err))
			continue
		}
		if strings.TrimSpace(envelope.EnvelopeID) != "" {
			if err := conn.WriteJSON(map[string]string{"envelope_id": envelope.EnvelopeID}); err != nil {
				return fmt.Errorf("ack envelope: %w", err)
			}
		}

		switch envelope.Type {
		case "hello":
			logger.Debug("slack socket hello")
		case "disconnect":
			logger.Info("slack socket disconnect requested", "reason", envelope.Reason)
			return errReconnect
		case "events_api":
			var inner Envelope
			if err := json.Unmarshal(envelope.Payload, &inner); err != nil {
				logger.Warn("slack socket payload is not an event", slog.Any("error", err))
				continue
			}
			s.Handle(ctx, inner)
		default:
			logger.Debug("slack socket envelope ignored", "type", envelope.Type)
		}
	}
}
