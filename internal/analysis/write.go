package analysis

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/steam-crawler/internal/output"
)

// Report column names preceding the per-file columns.
const (
	ColumnTotal         = "total_signal"
	ColumnAverage       = "average_signal"
	ColumnMaxIncrease   = "max_increase"
	ColumnMaxDecrease   = "max_decrease"
	ColumnAverageChange = "average_change"
)

// Header returns the report's column names.
func (r Report) Header() []string {
	h := []string{"id", "name", ColumnTotal, ColumnAverage, ColumnMaxIncrease, ColumnMaxDecrease, ColumnAverageChange}
	return append(h, r.Files...)
}

// Write saves the report as an xlsx sheet at path, creating parent directories.
func Write(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "analysis: create dir for %s", path)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("analysis")
	if err != nil {
		return eris.Wrap(err, "analysis: add sheet")
	}

	output.AddStringRow(sheet, r.Header())
	for _, t := range r.Trends {
		values := []any{t.ID, t.Name, t.Total, t.Average, t.MaxIncrease, t.MaxDecrease, t.AverageChange}
		for _, v := range t.Series {
			values = append(values, v)
		}
		output.AddValueRow(sheet, values)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "analysis: save %s", path)
	}
	return nil
}
