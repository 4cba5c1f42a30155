package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
)

// Registry maps backend identifiers to engines. Identifiers are
// case-insensitive and stored upper case.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: map[string]Engine{}}
}

func (r *Registry) Register(name string, engine Engine) {
	r.engines[normalizeName(name)] = engine
}

func (r *Registry) Has(name string) bool {
	_, ok := r.engines[normalizeName(name)]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs request on the named backend. An unknown backend is a
// configuration error; any engine failure is a backend error.
func (r *Registry) Execute(ctx context.Context, backend string, request Request) (Result, error) {
	name := normalizeName(backend)
	engine, ok := r.engines[name]
	if !ok {
		return Result{}, apperr.New(apperr.KindConfiguration, fmt.Sprintf("Database configuration for '%s' not found.", name))
	}
	if strings.TrimSpace(request.SQL) == "" {
		return Result{}, apperr.New(apperr.KindBackend, "sql is required")
	}

	start := time.Now()
	result, err := engine.Execute(ctx, request)
	elapsed := time.Since(start)
	observability.ObserveQuery(name, len(result.Rows), elapsed, err)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindBackend, fmt.Sprintf("%s database error", name), err)
	}
	if result.Duration == 0 {
		result.Duration = elapsed
	}
	return result, nil
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
