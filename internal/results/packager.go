// Package results turns query results into a chat preview and a result file.
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatJSONL   = "jsonl"
)

type Options struct {
	Dir            string
	Prefix         string
	Format         string
	PreviewRows    int
	PreviewColumns int
	Archiver       *Archiver
	Logger         *slog.Logger
	Now            func() time.Time
}

// Artifact is what the pipeline hands to the delivery collaborator. The file
// at Path is not removed by the packager.
type Artifact struct {
	Summary string
	Path    string
	Name    string
	Format  string
}

type Packager struct {
	dir            string
	prefix         string
	format         string
	previewRows    int
	previewColumns int
	archiver       *Archiver
	logger         *slog.Logger
	now            func() time.Time
}

func NewPackager(opts Options) (*Packager, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatCSV
	}
	switch format {
	case FormatCSV, FormatParquet, FormatJSONL:
	default:
		return nil, fmt.Errorf("unsupported file format: %s", opts.Format)
	}
	p := &Packager{
		dir:            strings.TrimSpace(opts.Dir),
		prefix:         strings.TrimSpace(opts.Prefix),
		format:         format,
		previewRows:    opts.PreviewRows,
		previewColumns: opts.PreviewColumns,
		archiver:       opts.Archiver,
		logger:         opts.Logger,
		now:            opts.Now,
	}
	if p.dir == "" {
		p.dir = "output"
	}
	if p.prefix == "" {
		p.prefix = "query_result"
	}
	if p.previewRows <= 0 {
		p.previewRows = 5
	}
	if p.previewColumns <= 0 {
		p.previewColumns = 5
	}
	if p.logger == nil {
		p.logger = observability.NopLogger()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

func (p *Packager) Dir() string { return p.dir }

func (p *Packager) Summarize(result query.Result) string {
	return Summarize(result, p.previewRows, p.previewColumns)
}

// Persist writes the full result to a new timestamped file and returns its
// path. I/O failures are persistence errors.
func (p *Packager) Persist(ctx context.Context, result query.Result) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindPersistence, "create result directory", err)
	}

	createdAt := p.now()
	file, err := p.createUnique(createdAt)
	if err != nil {
		return "", apperr.Wrap(apperr.KindPersistence, "create result file", err)
	}
	path := file.Name()

	switch p.format {
	case FormatParquet:
		err = writeParquet(file, result)
	case FormatJSONL:
		err = writeJSONL(file, result)
	default:
		err = writeCSV(file, result)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", apperr.Wrap(apperr.KindPersistence, "write result file", err)
	}

	p.logger.DebugContext(ctx, "result file written", "path", path, "rows", len(result.Rows), "format", p.format)
	if p.archiver != nil {
		p.archiver.Archive(ctx, path, createdAt)
	}
	return path, nil
}

// Package summarizes and persists result in one step.
func (p *Packager) Package(ctx context.Context, result query.Result) (Artifact, error) {
	summary := p.Summarize(result)
	path, err := p.Persist(ctx, result)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Summary: summary, Path: path, Name: filepath.Base(path), Format: p.format}, nil
}

// createUnique opens <prefix>_<YYYYmmdd_HHMMSS>.<ext>, adding a counter when
// another result was written in the same second.
func (p *Packager) createUnique(at time.Time) (*os.File, error) {
	base := fmt.Sprintf("%s_%s", p.prefix, at.Format("20060102_150405"))
	for attempt := 1; attempt <= 100; attempt++ {
		name := base + "." + p.format
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d.%s", base, attempt, p.format)
		}
		file, err := os.OpenFile(filepath.Join(p.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free file name for %s", base)
}
