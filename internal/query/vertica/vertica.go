// Package vertica builds query engines for Vertica.
package vertica

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/vertica/vertica-sql-go"

	"github.com/IvanVatroslav/SQLoslav/internal/query/sqldb"
)

const DriverName = "vertica"

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (c Config) Complete() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.User) != "" && strings.TrimSpace(c.Database) != ""
}

func DSN(cfg Config) string {
	port := cfg.Port
	if port <= 0 {
		port = 5433
	}
	u := url.URL{
		Scheme: "vertica",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(port),
		Path:   "/" + cfg.Database,
	}
	return u.String()
}

func NewEngine(cfg Config, timeout time.Duration) (*sqldb.Engine, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("vertica host, user and database are required")
	}
	return &sqldb.Engine{
		Driver:  DriverName,
		DSN:     DSN(cfg),
		Timeout: timeout,
		Setup:   []string{sqldb.ReadOnlySession},
	}, nil
}
