// Package output writes crawl tables to disk and reads them back.
package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/model"
)

// Format is a crawl file encoding.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const fileNameLayout = "20060102_150405"

// ParseFormat maps a config value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV:
		return f, nil
	case "":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("output: unsupported format %q", s)
	}
}

// FileName returns the crawl file name for a table observed at t.
func FileName(t time.Time, format Format) string {
	return "steam_data_" + t.UTC().Format(fileNameLayout) + "." + string(format)
}

// Writer persists crawl tables under a directory.
type Writer struct {
	dir    string
	format Format
}

// NewWriter creates a Writer that writes format files into dir.
func NewWriter(dir string, format Format) *Writer {
	if format == "" {
		format = FormatXLSX
	}
	return &Writer{dir: dir, format: format}
}

// Write encodes the table and returns the path of the new file. It does not
// consult ctx, so an interrupted run still leaves its partial table on disk.
func (w *Writer) Write(_ context.Context, table model.Table) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "output: create dir %s", w.dir)
	}

	path := filepath.Join(w.dir, FileName(table.ObservedAt, w.format))

	var err error
	switch w.format {
	case FormatCSV:
		err = writeCSV(path, table)
	default:
		err = writeXLSX(path, table)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("output: table written",
		zap.String("path", path),
		zap.Int("rows", len(table.Records)),
	)
	return path, nil
}
