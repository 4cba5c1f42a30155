// Package audit publishes a record of every executed query to a message
// broker.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Record struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id,omitempty"`
	Channel         string    `json:"channel"`
	User            string    `json:"user,omitempty"`
	Backend         string    `json:"backend"`
	NaturalLanguage bool      `json:"natural_language"`
	Question        string    `json:"question,omitempty"`
	SQL             string    `json:"sql"`
	Provider        string    `json:"provider,omitempty"`
	Model           string    `json:"model,omitempty"`
	Rows            int       `json:"rows"`
	DurationMs      int64     `json:"duration_ms"`
	ExecutedAt      time.Time `json:"executed_at"`
}

// Stamp fills in the record id and time when unset.
func (r Record) Stamp(now time.Time) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ExecutedAt.IsZero() {
		r.ExecutedAt = now.UTC()
	}
	return r
}

type Publisher interface {
	Publish(ctx context.Context, record Record) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Record) error { return nil }
func (Nop) Close() error                          { return nil }
