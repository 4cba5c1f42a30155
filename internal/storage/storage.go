// Package storage defines the object store used to archive result files.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrBucketNotFound = errors.New("bucket not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	// Ping reports whether the configured bucket is reachable.
	Ping(ctx context.Context) error
}
