package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/IvanVatroslav/SQLoslav/internal/api"
	"github.com/IvanVatroslav/SQLoslav/internal/audit"
	"github.com/IvanVatroslav/SQLoslav/internal/auth"
	"github.com/IvanVatroslav/SQLoslav/internal/command"
	"github.com/IvanVatroslav/SQLoslav/internal/config"
	"github.com/IvanVatroslav/SQLoslav/internal/idempotency"
	"github.com/IvanVatroslav/SQLoslav/internal/nl2sql"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/pipeline"
	"github.com/IvanVatroslav/SQLoslav/internal/query/backends"
	"github.com/IvanVatroslav/SQLoslav/internal/results"
	"github.com/IvanVatroslav/SQLoslav/internal/retention"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
	s3store "github.com/IvanVatroslav/SQLoslav/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqloslav")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("sqloslav stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	parser, err := command.NewParser(cfg.Pipeline.TriggerWord, cfg.Pipeline.DefaultBackend)
	if err != nil {
		return fmt.Errorf("build message parser: %w", err)
	}
	registry := backends.NewRegistry(cfg.Backends, logger)

	completer, err := nl2sql.NewCompleter(nl2sql.CompleterConfig{
		Provider: cfg.AI.Provider,
		BaseURL:  cfg.AI.BaseURL,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		Timeout:  cfg.AI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialize language model client: %w", err)
	}
	schemas, err := nl2sql.LoadSchemas()
	if err != nil {
		return fmt.Errorf("load schema descriptions: %w", err)
	}
	generator, err := nl2sql.NewGenerator(completer, schemas, nl2sql.GeneratorOptions{
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("initialize query generator: %w", err)
	}

	var archiveStore *s3store.Store
	var archiver *results.Archiver
	if cfg.Archive.Enabled {
		archiveStore, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			return fmt.Errorf("initialize result archive: %w", err)
		}
		archiver = results.NewArchiver(archiveStore, logger)
	}
	packager, err := results.NewPackager(results.Options{
		Dir:            cfg.Results.Dir,
		Prefix:         cfg.Results.Prefix,
		Format:         cfg.Results.Format,
		PreviewRows:    cfg.Results.PreviewRows,
		PreviewColumns: cfg.Results.PreviewColumns,
		Archiver:       archiver,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("initialize result packager: %w", err)
	}

	claims, closeClaims, err := openClaimStore(ctx, cfg.Idempotency)
	if err != nil {
		return fmt.Errorf("open idempotency store: %w", err)
	}
	defer closeClaims()
	logger.Info("idempotency store ready",
		slog.String("store", cfg.Idempotency.Store),
		slog.String("redis_url", observability.Mask(cfg.Idempotency.RedisURL)),
	)

	publisher, err := audit.New(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("initialize audit sink: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	slackClient, err := slack.NewClient(slack.Config{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		BaseURL:  cfg.Slack.APIBaseURL,
		Timeout:  cfg.Slack.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialize slack client: %w", err)
	}

	uploads := retention.NewUploadLog()
	messages := &pipeline.Pipeline{
		Parser:     parser,
		Translator: generator,
		Executor:   registry,
		Packager:   packager,
		Delivery:   slackClient,
		Audit:      publisher,
		Uploads:    uploads,
		Schema:     cfg.AI.Schema,
		MaxRows:    cfg.Backends.MaxRows,
		Logger:     logger,
	}
	bot := &pipeline.Bot{
		Pipeline: messages,
		Store:    claims,
		Poster:   slackClient,
		Timeout:  cfg.Pipeline.Timeout,
		Logger:   logger,
		Files: &pipeline.FileHandler{
			Source: slackClient,
			Dir:    cfg.Pipeline.DownloadDir,
			Logger: logger,
		},
	}

	retentionService := &retention.Service{
		Dir:     packager.Dir(),
		Uploads: uploads,
		Slack:   slackClient,
		Config: retention.Config{
			Interval:     cfg.Retention.Interval,
			MaxFileAge:   cfg.Retention.MaxFileAge,
			SlackFileTTL: cfg.Retention.SlackFileTTL,
			ClaimTTL:     cfg.Idempotency.TTL,
		},
		Logger: logger,
	}
	if pruner, ok := claims.(idempotency.Pruner); ok {
		retentionService.Claims = pruner
	}

	deps := api.Dependencies{
		Logger:            logger,
		DependencyTimeout: 2 * time.Second,
		Events:            bot,
		Parser:            parser,
		Translator:        generator,
		Schema:            cfg.AI.Schema,
		Retention:         retentionService,
		Readiness: api.CombineReadinessChecks(
			api.CheckSlackToken(cfg),
			api.CheckPing("idempotency store", claims),
			archiveCheck(archiveStore),
		),
	}
	if cfg.Auth.Required {
		validator, err := auth.ParseStaticKeys(cfg.Auth.StaticKeys)
		if err != nil {
			return fmt.Errorf("parse static auth keys: %w", err)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.HTTP.Address), slog.String("slack_mode", cfg.Slack.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	if cfg.Retention.Enabled {
		go func() {
			if err := retentionService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("retention job stopped", slog.Any("error", err))
			}
		}()
	}

	if cfg.Slack.Mode == "socket" {
		socket := &slack.SocketMode{
			Opener: slackClient,
			Handle: bot.HandleEnvelope,
			Logger: logger,
		}
		go func() {
			if err := socket.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("socket mode stopped", slog.Any("error", err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
	}
	if err := bot.Wait(shutdownCtx); err != nil {
		logger.Warn("messages still in flight at shutdown", slog.Any("error", err))
	}
	return nil
}

// openClaimStore returns the configured idempotency store and a func that
// releases its connection.
func openClaimStore(ctx context.Context, cfg config.IdempotencyConfig) (idempotency.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		store, client, err := idempotency.OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, closer(client), nil
	case "postgres":
		db, err := idempotency.OpenPostgres(ctx, idempotency.DBConfig{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, nil, err
		}
		store := idempotency.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure idempotency schema: %w", err)
		}
		return store, closer(db), nil
	default:
		return idempotency.NewMemoryStore(), func() {}, nil
	}
}

func closer[T interface{ Close() error }](c T) func() {
	return func() { _ = c.Close() }
}

func archiveCheck(store *s3store.Store) api.ReadinessCheck {
	if store == nil {
		return nil
	}
	return api.CheckPing("result archive", store)
}
