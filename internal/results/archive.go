package results

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/storage"
)

// Archiver copies persisted result files to an object store. Failures are
// logged and counted and never reach the user.
type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func NewArchiver(store storage.ObjectStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Archiver{store: store, logger: logger}
}

func (a *Archiver) Archive(ctx context.Context, path string, createdAt time.Time) {
	if a == nil || a.store == nil {
		return
	}
	key, err := a.archive(ctx, path, createdAt)
	if err != nil {
		observability.IncrementArchiveFailure()
		a.logger.WarnContext(ctx, "result archive failed", "path", path, slog.Any("error", err))
		return
	}
	a.logger.DebugContext(ctx, "result archived", "path", path, "key", key)
}

func (a *Archiver) archive(ctx context.Context, path string, createdAt time.Time) (string, error) {
	key, err := storage.BuildResultKey(filepath.Base(path), createdAt)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open result file: %w", err)
	}
	defer func() { _ = file.Close() }()
	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat result file: %w", err)
	}
	if _, err := a.store.Put(ctx, key, file, stat.Size(), storage.PutOptions{
		ContentType: contentType(path),
		Metadata: map[string]string{
			"created-at": createdAt.UTC().Format(time.RFC3339),
			"source":     "sqloslav",
		},
	}); err != nil {
		return "", err
	}
	return key, nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".jsonl":
		return "application/x-ndjson"
	default:
		return "application/octet-stream"
	}
}
