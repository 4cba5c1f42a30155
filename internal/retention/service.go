// Package retention periodically removes old result files from disk and from
// Slack, and prunes old idempotency claims.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/idempotency"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

type FileDeleter interface {
	DeleteFile(ctx context.Context, fileID string) error
}

type Config struct {
	Interval     time.Duration
	MaxFileAge   time.Duration
	SlackFileTTL time.Duration
	ClaimTTL     time.Duration
}

type Service struct {
	Dir     string
	Uploads *UploadLog
	Slack   FileDeleter
	Claims  idempotency.Pruner
	Config  Config
	Logger  *slog.Logger
	Clock   func() time.Time

	once sync.Once
	mu   sync.Mutex
}

type Summary struct {
	LocalFilesScanned int   `json:"local_files_scanned"`
	LocalFilesDeleted int   `json:"local_files_deleted"`
	SlackFilesDeleted int   `json:"slack_files_deleted"`
	ClaimsPruned      int64 `json:"claims_pruned"`
	Failures          int   `json:"failures"`
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	ticker := time.NewTicker(s.Config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := s.RunOnce(ctx)
			if err != nil {
				s.Logger.ErrorContext(ctx, "retention cycle failed", slog.Any("error", err), slog.Any("summary", summary))
				continue
			}
			s.Logger.InfoContext(ctx, "retention cycle completed", slog.Any("summary", summary))
		}
	}
}

// RunOnce performs one cleanup cycle. Individual failures are counted and the
// cycle continues; the returned error lists all of them.
func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	s.ensureDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Clock()
	summary := Summary{}
	failures := make([]string, 0)

	if s.Config.MaxFileAge > 0 && s.Dir != "" {
		failures = append(failures, s.pruneLocal(now.Add(-s.Config.MaxFileAge), &summary)...)
	}
	if s.Config.SlackFileTTL > 0 && s.Uploads != nil && s.Slack != nil {
		failures = append(failures, s.pruneSlack(ctx, now.Add(-s.Config.SlackFileTTL), &summary)...)
	}
	if s.Config.ClaimTTL > 0 && s.Claims != nil {
		pruned, err := s.Claims.Prune(ctx, now.Add(-s.Config.ClaimTTL))
		if err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("prune claims: %v", err))
		}
		summary.ClaimsPruned = pruned
		claimsPrunedTotal.Add(float64(pruned))
	}

	if len(failures) > 0 {
		retentionRunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("retention encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	retentionRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

func (s *Service) pruneLocal(cutoff time.Time, summary *Summary) []string {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		summary.Failures++
		return []string{fmt.Sprintf("read %s: %v", s.Dir, err)}
	}

	failures := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		summary.LocalFilesScanned++
		info, err := entry.Info()
		if err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("stat %s: %v", entry.Name(), err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("remove %s: %v", entry.Name(), err))
			continue
		}
		summary.LocalFilesDeleted++
		localFilesDeletedTotal.Inc()
	}
	return failures
}

func (s *Service) pruneSlack(ctx context.Context, cutoff time.Time, summary *Summary) []string {
	failures := make([]string, 0)
	for _, file := range s.Uploads.Expired(cutoff) {
		if err := s.Slack.DeleteFile(ctx, file.FileID); err != nil && !alreadyGone(err) {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("delete slack file %s: %v", file.FileID, err))
			continue
		}
		s.Uploads.Forget(file.FileID)
		summary.SlackFilesDeleted++
		slackFilesDeletedTotal.Inc()
	}
	return failures
}

func alreadyGone(err error) bool {
	var apiErr *slack.APIError
	return errors.As(err, &apiErr) && apiErr.Code == "file_not_found"
}

func (s *Service) ensureDefaults() {
	s.once.Do(s.applyDefaults)
}

func (s *Service) applyDefaults() {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Logger == nil {
		s.Logger = observability.NopLogger()
	}
	if s.Config.Interval <= 0 {
		s.Config.Interval = 10 * time.Minute
	}
}
