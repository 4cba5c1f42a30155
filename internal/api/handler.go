// Package api serves the Slack Events webhook, the service probes and the
// operator endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanVatroslav/SQLoslav/internal/auth"
	"github.com/IvanVatroslav/SQLoslav/internal/command"
	"github.com/IvanVatroslav/SQLoslav/internal/config"
	"github.com/IvanVatroslav/SQLoslav/internal/nl2sql"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/retention"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

const maxBodyBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

// EventAcceptor takes a decoded Events API envelope. It returns the
// url_verification challenge, if any.
type EventAcceptor interface {
	Accept(ctx context.Context, envelope slack.Envelope) (string, error)
}

type RetentionRunner interface {
	RunOnce(ctx context.Context) (retention.Summary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Events            EventAcceptor
	Parser            *command.Parser
	Translator        nl2sql.Translator
	Schema            string
	Retention         RetentionRunner
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.TraceMiddleware)
	r.Use(observability.MetricsMiddleware)
	if deps.Logger != nil {
		r.Use(observability.LoggingMiddleware(deps.Logger))
	}

	r.Get("/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})
	r.Get("/v1/ready", func(w http.ResponseWriter, req *http.Request) {
		handleReady(deps, w, req)
	})
	r.Method(http.MethodGet, "/v1/metrics", promhttp.Handler())

	r.Post("/slack/events", func(w http.ResponseWriter, req *http.Request) {
		handleSlackEvents(deps, w, req)
	})

	r.Group(func(r chi.Router) {
		if cfg.Auth.Required {
			if deps.AuthMiddleware == nil {
				if deps.Logger != nil {
					deps.Logger.Error("auth required but auth middleware missing")
				}
				r.Use(func(http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
						writeError(req.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
					})
				})
			} else {
				r.Use(deps.AuthMiddleware)
			}
		}
		r.Post("/v1/parse", func(w http.ResponseWriter, req *http.Request) {
			handleParse(deps, w, req)
		})
		r.Post("/v1/validate", handleValidate)
		r.Post("/v1/translate", func(w http.ResponseWriter, req *http.Request) {
			handleTranslate(deps, w, req)
		})
		r.With(auth.RequireRole(auth.RoleOperator)).Post("/v1/retention/run", func(w http.ResponseWriter, req *http.Request) {
			handleRetentionRun(deps, w, req)
		})
	})

	return r
}

func handleReady(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := deps.Readiness(ctx); err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// Pinger is satisfied by the idempotency and archive stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

func CheckPing(name string, target Pinger) ReadinessCheck {
	if target == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := target.Ping(ctx); err != nil {
			return errors.New(name + " unavailable: " + err.Error())
		}
		return nil
	}
}

func CheckSlackToken(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Slack.BotToken == "" {
			return errors.New("slack bot token is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", err.Error(), false, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
