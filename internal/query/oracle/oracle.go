// Package oracle builds query engines for Oracle services using the pure Go
// go-ora driver. Several services can share one host.
package oracle

import (
	"fmt"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/IvanVatroslav/SQLoslav/internal/query/sqldb"
)

const DriverName = "oracle"

type Config struct {
	Host        string
	Port        int
	ServiceName string
	User        string
	Password    string
}

func (c Config) Complete() bool {
	return strings.TrimSpace(c.Host) != "" &&
		strings.TrimSpace(c.ServiceName) != "" &&
		strings.TrimSpace(c.User) != ""
}

func DSN(cfg Config) string {
	port := cfg.Port
	if port <= 0 {
		port = 1521
	}
	return go_ora.BuildUrl(cfg.Host, port, cfg.ServiceName, cfg.User, cfg.Password, nil)
}

func NewEngine(cfg Config, timeout time.Duration) (*sqldb.Engine, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("oracle host, service name and user are required")
	}
	return &sqldb.Engine{Driver: DriverName, DSN: DSN(cfg), Timeout: timeout}, nil
}
