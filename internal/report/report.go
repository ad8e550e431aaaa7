// Package report reads and writes report files and their flat CSV export,
// and publishes finished runs to object storage.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// CompressedExt marks snappy-framed report files.
const CompressedExt = ".sz"

const indent = "    "

// Write encodes r as indented JSON.
func Write(w io.Writer, r *types.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	if err := enc.Encode(r); err != nil {
		return berrors.NewInternalError("encode report", err)
	}
	return nil
}

// Read decodes a JSON report.
func Read(rd io.Reader) (*types.Report, error) {
	var r types.Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			fmt.Sprintf("decode report: %v", err))
	}
	return &r, nil
}

// filePerm is the mode of written reports. Temporary files are created
// owner-only, so it is applied before the rename.
const filePerm os.FileMode = 0644

// WriteFile writes r to path, snappy-compressed when path ends in ".sz".
// The file is replaced atomically so readers never see a partial report.
func WriteFile(path string, r *types.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return berrors.NewInternalError("create report directory", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return berrors.NewInternalError("create report file", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var sw *snappy.Writer
	if compressed(path) {
		sw = snappy.NewBufferedWriter(tmp)
		w = sw
	}

	if err := Write(w, r); err != nil {
		tmp.Close()
		return err
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			tmp.Close()
			return berrors.NewInternalError("compress report", err)
		}
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return berrors.NewInternalError("write report", err)
	}
	if err := tmp.Close(); err != nil {
		return berrors.NewInternalError("write report", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return berrors.NewInternalError("write report", err)
	}
	return nil
}

// ReadFile reads a report written by WriteFile.
func ReadFile(path string) (*types.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			fmt.Sprintf("open report: %v", err))
	}
	defer f.Close()

	var rd io.Reader = f
	if compressed(path) {
		rd = snappy.NewReader(f)
	}
	return Read(rd)
}

func compressed(path string) bool {
	return strings.HasSuffix(path, CompressedExt)
}
