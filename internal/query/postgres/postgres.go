// Package postgres builds query engines for PostgreSQL through pgx's
// database/sql driver.
package postgres

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/IvanVatroslav/SQLoslav/internal/query/sqldb"
)

const DriverName = "pgx"

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c Config) Complete() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.User) != "" && strings.TrimSpace(c.Database) != ""
}

func DSN(cfg Config) string {
	port := cfg.Port
	if port <= 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(port),
		Path:   "/" + cfg.Database,
	}
	sslMode := strings.TrimSpace(cfg.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	return u.String()
}

func NewEngine(cfg Config, timeout time.Duration) (*sqldb.Engine, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("postgres host, user and database are required")
	}
	return &sqldb.Engine{
		Driver:  DriverName,
		DSN:     DSN(cfg),
		Timeout: timeout,
		Setup:   []string{sqldb.ReadOnlySession},
	}, nil
}
