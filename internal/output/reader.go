package output

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/steam-crawler/internal/model"
)

// CrawlRow is the part of a crawl file row that downstream analysis reads.
type CrawlRow struct {
	ID     string
	Name   string
	Signal int
}

// ReadCrawl reads an xlsx or csv crawl file. The id, name and signal columns
// are required; a non-numeric signal counts as 0. Rows without an id or with
// a signal of 0 or less are dropped.
func ReadCrawl(path string) ([]CrawlRow, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, eris.Errorf("output: unsupported crawl file %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("output: %s has no header row", path)
	}

	idx, err := columnIndex(rows[0], model.ColumnID, model.ColumnName, model.ColumnSignal)
	if err != nil {
		return nil, eris.Wrapf(err, "output: %s", path)
	}

	out := make([]CrawlRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := strings.TrimSpace(cellAt(row, idx[model.ColumnID]))
		signal := parseSignal(cellAt(row, idx[model.ColumnSignal]))
		if id == "" || signal <= 0 {
			continue
		}
		out = append(out, CrawlRow{
			ID:     id,
			Name:   cellAt(row, idx[model.ColumnName]),
			Signal: signal,
		})
	}
	return out, nil
}

// IsCrawlFile reports whether name has a crawl file extension.
func IsCrawlFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".csv":
		return !strings.HasPrefix(filepath.Base(name), "~$")
	}
	return false
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseSignal(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
