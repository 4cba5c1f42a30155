// Package backends registers every completely configured database backend.
package backends

import (
	"log/slog"

	"github.com/IvanVatroslav/SQLoslav/internal/config"
	"github.com/IvanVatroslav/SQLoslav/internal/query"
	"github.com/IvanVatroslav/SQLoslav/internal/query/duckdb"
	"github.com/IvanVatroslav/SQLoslav/internal/query/oracle"
	"github.com/IvanVatroslav/SQLoslav/internal/query/postgres"
	"github.com/IvanVatroslav/SQLoslav/internal/query/vertica"
)

const (
	Vertica  = "VERTICA"
	Postgres = "POSTGRES"
	DuckDB   = "DUCKDB"
)

// NewRegistry builds a registry from cfg. Backends with incomplete settings
// are skipped and logged, so selecting them fails as a configuration error.
func NewRegistry(cfg config.BackendsConfig, logger *slog.Logger) *query.Registry {
	registry := query.NewRegistry()
	timeout := cfg.QueryTimeout

	register := func(name string, engine query.Engine, err error) {
		if err != nil {
			logger.Debug("backend not configured", "backend", name, "reason", err.Error())
			return
		}
		registry.Register(name, engine)
	}

	v := cfg.Vertica
	verticaEngine, err := vertica.NewEngine(vertica.Config{
		Host:     v.Host,
		Port:     v.Port,
		User:     v.User,
		Password: v.Password,
		Database: v.Database,
	}, timeout)
	register(Vertica, verticaEngine, err)

	for _, name := range config.OracleServices {
		service := cfg.Oracle.Services[name]
		oracleEngine, err := oracle.NewEngine(oracle.Config{
			Host:        cfg.Oracle.Host,
			Port:        cfg.Oracle.Port,
			ServiceName: service.ServiceName,
			User:        service.User,
			Password:    service.Password,
		}, timeout)
		register(name, oracleEngine, err)
	}

	p := cfg.Postgres
	postgresEngine, err := postgres.NewEngine(postgres.Config{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		Database: p.Database,
		SSLMode:  p.SSLMode,
	}, timeout)
	register(Postgres, postgresEngine, err)

	duckEngine, err := duckdb.NewEngine(duckdb.Config{Path: cfg.DuckDB.Path, ReadOnly: true}, timeout)
	register(DuckDB, duckEngine, err)

	logger.Info("database backends registered", "backends", registry.Names())
	return registry
}
