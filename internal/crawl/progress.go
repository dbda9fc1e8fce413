package crawl

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Progress observes how many items of a stage have settled.
type Progress interface {
	// Begin announces a stage pass and returns a callback invoked once per
	// settled item, from any goroutine, in no particular order.
	Begin(stage string, total int) func()
}

// LogProgress logs stage progress at every tenth of the total.
type LogProgress struct{}

// Begin implements Progress.
func (LogProgress) Begin(stage string, total int) func() {
	var completed atomic.Int64
	step := int64(total / 10)
	if step < 1 {
		step = 1
	}
	zap.L().Info("crawl: stage started", zap.String("stage", stage), zap.Int("total", total))
	return func() {
		n := completed.Add(1)
		if n%step == 0 || n == int64(total) {
			zap.L().Info("crawl: stage progress",
				zap.String("stage", stage),
				zap.Int64("completed", n),
				zap.Int("total", total),
			)
		}
	}
}

type noProgress struct{}

func (noProgress) Begin(string, int) func() { return func() {} }
