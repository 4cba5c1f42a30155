package query

import (
	"context"
	"time"
)

type Request struct {
	SQL string
	// MaxRows caps the rows read from the driver; 0 reads everything.
	MaxRows int
}

// Result is the tabular outcome of one query. Rows hold driver values with
// byte slices already converted to strings.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
	// Truncated is set when the driver had more rows than MaxRows.
	Truncated bool
}

func (r Result) Empty() bool { return len(r.Rows) == 0 }

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
