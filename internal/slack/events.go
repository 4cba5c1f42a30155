package slack

import (
	"encoding/json"
	"strings"
)

const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"

	EventMessage    = "message"
	EventAppMention = "app_mention"
	EventFileShared = "file_shared"
)

// Envelope is the outer Events API body. Event is kept raw until the type is
// known to be one the bot handles.
type Envelope struct {
	Token     string          `json:"token,omitempty"`
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	EventTime int64           `json:"event_time,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

type Event struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	TS       string `json:"ts,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`

	// file_shared carries the ids only; details come from files.info.
	FileID    string `json:"file_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

func (e Envelope) DecodeEvent() (Event, error) {
	var event Event
	if len(e.Event) == 0 {
		return event, nil
	}
	err := json.Unmarshal(e.Event, &event)
	return event, err
}

// Actionable reports whether the event is a human message the bot should
// answer. Bot messages and edited, deleted or joined subtypes are skipped.
func (e Event) Actionable() bool {
	if e.Type != EventMessage && e.Type != EventAppMention {
		return false
	}
	if strings.TrimSpace(e.BotID) != "" || e.Subtype == "bot_message" {
		return false
	}
	if e.Subtype != "" {
		return false
	}
	return strings.TrimSpace(e.Channel) != ""
}

// FileShare reports whether the event announces a file shared into a channel.
func (e Event) FileShare() bool {
	return e.Type == EventFileShared && strings.TrimSpace(e.FileID) != "" && strings.TrimSpace(e.ChannelID) != ""
}

// MessageKey identifies the underlying chat message independent of the event
// type it was delivered as. It is empty when the event carries no timestamp.
func (e Event) MessageKey() string {
	switch {
	case e.FileShare():
		return "file:" + e.ChannelID + ":" + e.FileID
	case strings.TrimSpace(e.TS) == "" || strings.TrimSpace(e.Channel) == "":
		return ""
	default:
		return "msg:" + e.Channel + ":" + e.TS
	}
}
