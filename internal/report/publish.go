package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/internal/storage"
)

// Fingerprint returns a stable 128-bit hex digest of the run parameters so
// runs with identical settings share a storage prefix.
func Fingerprint(backend string, params interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", berrors.NewInternalError("encode run parameters", err)
	}

	h := murmur3.New128()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write(data)
	h1, h2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", h1, h2), nil
}

// Run identifies a published run.
type Run struct {
	Backend     string
	Fingerprint string
	ID          string
}

// ObjectKey returns the storage key of a run artifact with the given
// extension, e.g. ".json".
func ObjectKey(prefix string, run Run, ext string) string {
	return path.Join(prefix, run.Backend, run.Fingerprint, run.ID+ext)
}

// Published is a run found in object storage with the keys of its artifacts.
type Published struct {
	Run
	Objects []string
}

// Publisher uploads finished reports to object storage and reads them back.
type Publisher struct {
	storage  storage.ObjectStorage
	prefix   string
	compress bool
	logger   *slog.Logger
}

// NewPublisher creates a publisher writing under prefix.
func NewPublisher(s storage.ObjectStorage, prefix string, compress bool, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		storage:  s,
		prefix:   strings.Trim(prefix, "/"),
		compress: compress,
		logger:   logger,
	}
}

// Publish uploads the report file and, when csvPath is set, its CSV export.
// It returns the object keys written. Existing objects are never
// overwritten, and a failed publish removes whatever it already uploaded.
func (p *Publisher) Publish(ctx context.Context, run Run, reportPath, csvPath string) ([]string, error) {
	ext := ".json"
	if p.compress || compressed(reportPath) {
		ext += CompressedExt
	}

	type upload struct{ src, key string }
	uploads := []upload{{reportPath, ObjectKey(p.prefix, run, ext)}}
	if csvPath != "" {
		uploads = append(uploads, upload{csvPath, ObjectKey(p.prefix, run, ".csv")})
	}

	for _, u := range uploads {
		exists, err := p.storage.Exists(ctx, u.key)
		if err != nil {
			return nil, berrors.NewStorageError(berrors.CodeUnexpected, "check "+u.key, err)
		}
		if exists {
			return nil, berrors.New(berrors.ErrCategoryStorage, berrors.CodeObjectExists,
				"refusing to overwrite published object").
				WithDetails(map[string]interface{}{"object": u.key})
		}
	}

	if p.compress && !compressed(reportPath) {
		tmp, err := compressFile(reportPath)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		uploads[0].src = tmp
	}

	var keys []string
	for _, u := range uploads {
		if err := p.storage.Upload(ctx, u.src, u.key); err != nil {
			p.rollback(ctx, keys)
			return nil, err
		}
		keys = append(keys, u.key)
	}

	p.logger.InfoContext(ctx, "report published",
		slog.String("run_id", run.ID),
		slog.String("fingerprint", run.Fingerprint),
		slog.Any("objects", keys),
	)
	return keys, nil
}

// rollback deletes objects uploaded by a publish that did not complete.
func (p *Publisher) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := p.storage.Delete(ctx, key); err != nil {
			p.logger.WarnContext(ctx, "failed to remove partially published object",
				slog.String("object", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Runs lists the published runs under the publisher's prefix, narrowed to
// backend and fingerprint when they are set. Runs are sorted by backend,
// fingerprint and ID.
func (p *Publisher) Runs(ctx context.Context, backend, fingerprint string) ([]Published, error) {
	if backend == "" && fingerprint != "" {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			"listing by fingerprint requires a backend")
	}

	prefix := path.Join(p.prefix, backend, fingerprint)
	if prefix != "" {
		prefix += "/"
	}
	keys, err := p.storage.ListObjects(ctx, prefix)
	if err != nil {
		return nil, berrors.NewStorageError(berrors.CodeDownloadFailed, "list "+prefix, err)
	}

	byRun := make(map[Run][]string)
	for _, key := range keys {
		run, ok := p.parseKey(key)
		if !ok {
			continue
		}
		byRun[run] = append(byRun[run], key)
	}

	runs := make([]Published, 0, len(byRun))
	for run, objects := range byRun {
		sort.Strings(objects)
		runs = append(runs, Published{Run: run, Objects: objects})
	}
	sort.Slice(runs, func(i, j int) bool {
		a, b := runs[i].Run, runs[j].Run
		if a.Backend != b.Backend {
			return a.Backend < b.Backend
		}
		if a.Fingerprint != b.Fingerprint {
			return a.Fingerprint < b.Fingerprint
		}
		return a.ID < b.ID
	})
	return runs, nil
}

// parseKey splits a key written by ObjectKey back into its run.
func (p *Publisher) parseKey(key string) (Run, bool) {
	rel := key
	if p.prefix != "" {
		if !strings.HasPrefix(key, p.prefix+"/") {
			return Run{}, false
		}
		rel = strings.TrimPrefix(key, p.prefix+"/")
	}

	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return Run{}, false
	}
	id := parts[2]
	if i := strings.IndexByte(id, '.'); i > 0 {
		id = id[:i]
	} else {
		return Run{}, false
	}
	return Run{Backend: parts[0], Fingerprint: parts[1], ID: id}, true
}

// Fetch downloads a published object to localPath.
func (p *Publisher) Fetch(ctx context.Context, key, localPath string) error {
	if err := p.storage.Download(ctx, key, localPath); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "object fetched",
		slog.String("object", key),
		slog.String("path", localPath),
	)
	return nil
}

// compressFile writes a snappy-framed copy of path to a temporary file.
func compressFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", berrors.NewStorageError(berrors.CodeUploadFailed, "open report", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(path), ".publish-*"+CompressedExt)
	if err != nil {
		return "", berrors.NewStorageError(berrors.CodeUploadFailed, "create compressed report", err)
	}

	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", berrors.NewStorageError(berrors.CodeUploadFailed, "compress report", err)
	}
	if err := w.Close(); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", berrors.NewStorageError(berrors.CodeUploadFailed, "compress report", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", berrors.NewStorageError(berrors.CodeUploadFailed, "compress report", err)
	}
	return dst.Name(), nil
}
