package retention

import (
	"sync"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

type TrackedFile struct {
	FileID     string    `json:"file_id"`
	Channel    string    `json:"channel"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadLog keeps the Slack files delivered since startup until they are
// deleted. It is lost on restart.
type UploadLog struct {
	mu    sync.Mutex
	files []TrackedFile
}

func NewUploadLog() *UploadLog {
	return &UploadLog{}
}

func (l *UploadLog) Record(file slack.File, channel string, at time.Time) {
	if file.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append(l.files, TrackedFile{FileID: file.ID, Channel: channel, UploadedAt: at.UTC()})
}

// Expired returns files uploaded before cutoff without removing them.
func (l *UploadLog) Expired(cutoff time.Time) []TrackedFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TrackedFile, 0)
	for _, f := range l.files {
		if f.UploadedAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}

func (l *UploadLog) Forget(fileID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.files[:0]
	for _, f := range l.files {
		if f.FileID != fileID {
			kept = append(kept, f)
		}
	}
	l.files = kept
}

func (l *UploadLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.files)
}
