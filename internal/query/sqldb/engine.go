// Package sqldb runs a single query on a database/sql driver. A connection is
// opened for each execution and closed before Execute returns.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// ReadOnlySession makes every later statement on the connection read-only.
// Postgres and Vertica both accept it.
const ReadOnlySession = "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"

type Engine struct {
	Driver  string
	DSN     string
	Timeout time.Duration
	// Setup statements run on the fresh connection before the query. The
	// handle is limited to one connection, so they apply to the query too.
	Setup []string
	Open  OpenFunc
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := StripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	open := e.Open
	if open == nil {
		open = sql.Open
	}
	start := time.Now()
	db, err := open(e.Driver, e.DSN)
	if err != nil {
		return query.Result{}, fmt.Errorf("open %s: %w", e.Driver, err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	for _, stmt := range e.Setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return query.Result{}, fmt.Errorf("prepare session: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if request.MaxRows > 0 && len(resultRows) == request.MaxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:   columns,
		Rows:      resultRows,
		Duration:  time.Since(start),
		Truncated: truncated,
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
