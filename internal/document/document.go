// Package document defines the storage abstraction for rendered plate
// documents handed to users.
package document

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete document storage backend.
type Driver string

const (
	// DriverMemory keeps documents in process memory (default, tests).
	DriverMemory Driver = "memory"
	// DriverFilesystem writes documents under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores documents in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
)

var (
	// ErrNotFound is returned when a key has no document.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when a key is already taken.
	ErrExists = errors.New("document already exists")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored document.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store persists rendered documents.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// CloneMetadata copies a metadata map.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
