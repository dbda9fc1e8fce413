// Package analysis aggregates signal trends across a directory of crawl files.
package analysis

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/output"
)

// ErrNoCrawlFiles is returned when the input directory has no readable crawl files.
var ErrNoCrawlFiles = eris.New("analysis: no crawl files")

// Snapshot is one crawl file's surviving rows.
type Snapshot struct {
	// Name is the file name without its extension.
	Name string
	Rows []output.CrawlRow
}

// Trend is the per-item aggregate over all snapshots.
type Trend struct {
	ID            string
	Name          string
	Total         int
	Average       float64
	MaxIncrease   float64
	MaxDecrease   float64
	AverageChange float64
	// Series holds one value per snapshot; snapshots missing the item hold Average.
	Series []float64
}

// Report is the result of Analyze.
type Report struct {
	Files  []string
	Trends []Trend
}

// Load reads every crawl file in dir in file name order. Unreadable files are
// skipped with a warning.
func Load(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNoCrawlFiles, "dir %s does not exist", dir)
		}
		return nil, eris.Wrapf(err, "analysis: read dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && output.IsCrawlFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	snaps := make([]Snapshot, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		rows, err := output.ReadCrawl(path)
		if err != nil {
			zap.L().Warn("analysis: skipping unreadable file", zap.String("path", path), zap.Error(err))
			continue
		}
		snaps = append(snaps, Snapshot{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Rows: rows,
		})
	}
	if len(snaps) == 0 {
		return nil, eris.Wrapf(ErrNoCrawlFiles, "dir %s", dir)
	}

	zap.L().Info("analysis: files loaded", zap.Int("files", len(snaps)), zap.Int("skipped", len(names)-len(snaps)))
	return snaps, nil
}

type series struct {
	name   string
	values []int // per snapshot, 0 when absent
	seen   int
	order  []int // present values in snapshot order
}

// Analyze keeps the items present in at least minOccurrences snapshots and
// computes their totals, averages and successive changes.
func Analyze(snaps []Snapshot, minOccurrences int) Report {
	byID := make(map[string]*series)
	for i, snap := range snaps {
		for _, row := range snap.Rows {
			s, ok := byID[row.ID]
			if !ok {
				s = &series{values: make([]int, len(snaps))}
				byID[row.ID] = s
			}
			if s.values[i] != 0 {
				continue // first row wins within a file
			}
			s.name = row.Name
			s.values[i] = row.Signal
			s.seen++
			s.order = append(s.order, row.Signal)
		}
	}

	report := Report{Files: make([]string, len(snaps))}
	for i, snap := range snaps {
		report.Files[i] = snap.Name
	}

	for id, s := range byID {
		if s.seen < minOccurrences {
			continue
		}
		report.Trends = append(report.Trends, s.trend(id))
	}

	slices.SortFunc(report.Trends, func(a, b Trend) int {
		if n := cmp.Compare(b.Total, a.Total); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return report
}

func (s *series) trend(id string) Trend {
	t := Trend{ID: id, Name: s.name}
	for _, v := range s.order {
		t.Total += v
	}
	t.Average = float64(t.Total) / float64(len(s.order))

	if len(s.order) > 1 {
		var sum float64
		for i := 1; i < len(s.order); i++ {
			d := float64(s.order[i] - s.order[i-1])
			if i == 1 || d > t.MaxIncrease {
				t.MaxIncrease = d
			}
			if i == 1 || d < t.MaxDecrease {
				t.MaxDecrease = d
			}
			sum += d
		}
		t.AverageChange = sum / float64(len(s.order)-1)
	}

	t.Series = make([]float64, len(s.values))
	for i, v := range s.values {
		if v == 0 {
			t.Series[i] = t.Average
		} else {
			t.Series[i] = float64(v)
		}
	}
	return t
}
