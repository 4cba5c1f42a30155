// Package apperr classifies pipeline failures by kind so that the bot can
// turn any terminal error into exactly one chat message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	KindFormat        Kind = "format"
	KindGeneration    Kind = "generation"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindBackend       Kind = "backend"
	KindPersistence   Kind = "persistence"
	KindDelivery      Kind = "delivery"
)

// E wraps an error with a kind and a message that is safe to show in chat.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Contextf builds the "Error in <context> for channel <channel>" message used
// for failures that are reported back to the originating channel.
func Contextf(kind Kind, context, channel string, err error) *E {
	return Wrap(kind, fmt.Sprintf("Error in %s for channel %s", context, channel), err)
}

// KindOf returns the kind of the outermost *E in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
