package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

var supportedFileTypes = map[string]bool{
	"csv":  true,
	"xls":  true,
	"xlsx": true,
	"txt":  true,
}

// FileSource looks up and fetches files shared into a channel.
type FileSource interface {
	FileInfo(ctx context.Context, fileID string) (slack.SharedFile, error)
	DownloadFile(ctx context.Context, file slack.SharedFile, dir string) (string, int64, error)
}

// FileHandler downloads supported shared files into Dir. A successful download
// is silent; unsupported types and failures produce one reply.
type FileHandler struct {
	Source FileSource
	Dir    string
	Logger *slog.Logger

	once sync.Once
}

func (h *FileHandler) HandleFile(ctx context.Context, in Inbound) string {
	h.once.Do(func() {
		if h.Logger == nil {
			h.Logger = observability.NopLogger()
		}
		if strings.TrimSpace(h.Dir) == "" {
			h.Dir = "downloads"
		}
	})
	logger := h.Logger.With("file_id", in.FileID, "channel", in.Channel, "user", in.User)

	file, err := h.Source.FileInfo(ctx, in.FileID)
	if err != nil {
		logger.ErrorContext(ctx, "file info failed", slog.Any("error", err))
		observability.ObserveSharedFile("error")
		return sharedFileError(err)
	}
	logger.InfoContext(ctx, "file shared", "name", file.Name, "filetype", file.Filetype, "size", file.Size)

	if !supportedFileTypes[strings.ToLower(strings.TrimSpace(file.Filetype))] {
		observability.ObserveSharedFile("unsupported")
		return fmt.Sprintf("Sorry, the file type of %s is not supported for processing.", file.Name)
	}

	path, written, err := h.Source.DownloadFile(ctx, file, h.Dir)
	if err != nil {
		logger.ErrorContext(ctx, "file download failed", slog.Any("error", err))
		observability.ObserveSharedFile("error")
		return sharedFileError(err)
	}
	if file.Size > 0 && written != file.Size {
		logger.WarnContext(ctx, "downloaded size differs", "expected", file.Size, "written", written)
	}
	logger.InfoContext(ctx, "file downloaded", "path", path, "bytes", written)
	observability.ObserveSharedFile("ok")
	return ""
}

func sharedFileError(err error) string {
	return "An error occurred while processing the shared file: " + observability.Mask(err.Error())
}
