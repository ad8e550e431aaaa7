// Package storage publishes run artifacts to object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	berrors "github.com/arkilian/ndxbench/internal/errors"
)

// ErrObjectNotFound is returned by Download for a missing object.
var ErrObjectNotFound = berrors.New(berrors.ErrCategoryStorage, berrors.CodeObjectNotFound, "object not found")

// ObjectStorage stores published reports.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Upload copies the local file at localPath to objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies objectPath to the local file at localPath.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Storage types accepted by Open.
const (
	TypeNone  = "none"
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Options select a storage backend.
type Options struct {
	Type string

	// Path is the base directory of local storage.
	Path string

	Bucket string
	S3     S3Config
}

// Open returns the storage described by opts, or nil for TypeNone.
func Open(ctx context.Context, opts Options) (ObjectStorage, error) {
	switch opts.Type {
	case "", TypeNone:
		return nil, nil
	case TypeLocal:
		l, err := NewLocalStorage(opts.Path)
		if err != nil {
			return nil, err
		}
		return l, nil
	case TypeS3:
		s, err := NewS3Storage(ctx, opts.Bucket, opts.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			fmt.Sprintf("unknown storage type %q", opts.Type))
	}
}

// ContentType returns the MIME type stored with an object.
func ContentType(objectPath string) string {
	switch strings.ToLower(path.Ext(objectPath)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".sz":
		return "application/x-snappy-framed"
	default:
		return "application/octet-stream"
	}
}
