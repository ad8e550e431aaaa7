package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// WriteCSV writes one row per non-null report field:
// section, field, then every value of the sequence.
func WriteCSV(w io.Writer, r *types.Report) error {
	cw := csv.NewWriter(w)
	for _, f := range r.Populated() {
		row := make([]string, 0, len(f.Values)+2)
		row = append(row, f.Section, f.Key)
		for _, v := range f.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return berrors.NewInternalError("write csv", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return berrors.NewInternalError("write csv", err)
	}
	return nil
}

// ExportCSV converts the report at in to a CSV file at out. An empty out
// replaces the extension of in with ".csv".
func ExportCSV(in, out string) (string, error) {
	if out == "" {
		out = CSVPath(in)
	}

	r, err := ReadFile(in)
	if err != nil {
		return "", err
	}

	f, err := os.Create(out)
	if err != nil {
		return "", berrors.NewInternalError("create csv file", err)
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", berrors.NewInternalError("close csv file", err)
	}
	return out, nil
}

// CSVPath returns the default CSV path for a report path.
func CSVPath(reportPath string) string {
	base := strings.TrimSuffix(reportPath, CompressedExt)
	if i := strings.LastIndexByte(base, '.'); i > strings.LastIndexAny(base, `/\`) {
		base = base[:i]
	}
	return base + ".csv"
}
