package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	berrors "github.com/arkilian/ndxbench/internal/errors"
)

// LocalStorage implements ObjectStorage on a directory tree.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig, "local storage requires a path")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, berrors.NewStorageError(berrors.CodeUploadFailed, "create base directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload copies localPath into the tree. The object appears atomically.
func (l *LocalStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := l.fullPath(objectPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return uploadError(objectPath, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return uploadError(objectPath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".upload-*")
	if err != nil {
		return uploadError(objectPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return uploadError(objectPath, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return uploadError(objectPath, err)
	}
	if err := tmp.Close(); err != nil {
		return uploadError(objectPath, err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return uploadError(objectPath, err)
	}
	return nil
}

// Download copies an object to localPath.
func (l *LocalStorage) Download(ctx context.Context, objectPath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(l.fullPath(objectPath))
	if os.IsNotExist(err) {
		return ErrObjectNotFound.WithDetails(map[string]interface{}{"object": objectPath})
	}
	if err != nil {
		return downloadError(objectPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return downloadError(objectPath, err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return downloadError(objectPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return downloadError(objectPath, err)
	}
	return nil
}

// Delete removes an object from the tree.
func (l *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(l.fullPath(objectPath)); err != nil && !os.IsNotExist(err) {
		return berrors.NewStorageError(berrors.CodeUnexpected, "delete "+objectPath, err)
	}
	return nil
}

// Exists checks if an object exists in the tree.
func (l *LocalStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.fullPath(objectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListObjects returns slash-separated object paths under prefix, sorted.
func (l *LocalStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []string
	err := filepath.Walk(l.fullPath(prefix), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil // prefix doesn't exist, return empty list
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		objects = append(objects, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Strings(objects)
	return objects, nil
}

func (l *LocalStorage) fullPath(objectPath string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(objectPath))
}

func uploadError(objectPath string, err error) error {
	return berrors.NewStorageError(berrors.CodeUploadFailed, "upload "+objectPath, err)
}

func downloadError(objectPath string, err error) error {
	return berrors.NewStorageError(berrors.CodeDownloadFailed, "download "+objectPath, err)
}
