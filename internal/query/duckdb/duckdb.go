// Package duckdb builds query engines over a local DuckDB database file.
package duckdb

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/IvanVatroslav/SQLoslav/internal/query/sqldb"
)

const DriverName = "duckdb"

type Config struct {
	// Path is the database file; empty means no DuckDB backend.
	Path     string
	ReadOnly bool
}

func DSN(cfg Config) string {
	path := strings.TrimSpace(cfg.Path)
	if cfg.ReadOnly && path != ":memory:" {
		return path + "?access_mode=READ_ONLY"
	}
	return path
}

func NewEngine(cfg Config, timeout time.Duration) (*sqldb.Engine, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	return &sqldb.Engine{Driver: DriverName, DSN: DSN(cfg), Timeout: timeout}, nil
}
