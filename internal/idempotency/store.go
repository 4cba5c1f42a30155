// Package idempotency records which chat platform events were already
// dispatched so that redelivered events are processed at most once.
package idempotency

import (
	"context"
	"time"
)

// Store claims event ids. Claim returns true only for the first caller of a
// given id; the check and the insert are a single atomic step.
type Store interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Ping(ctx context.Context) error
}

// Pruner is implemented by stores that keep claims in durable storage and
// need old claims removed.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}
