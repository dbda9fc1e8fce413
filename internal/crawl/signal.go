package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/model"
)

// StageSignal names the player count stage in logs and stats.
const StageSignal = "signal"

// SignalFetcher fetches the cheap per-item signal.
type SignalFetcher interface {
	PlayerCount(ctx context.Context, appID string) (int, error)
}

// SignalOptions configures a SignalStage.
type SignalOptions struct {
	// MaxConcurrent bounds in-flight requests.
	MaxConcurrent int
	// Timeout bounds each request.
	Timeout time.Duration
	// MinSignal is the exclusive lower bound a signal must exceed.
	MinSignal int
	Progress  Progress
}

// SignalStage filters the catalog down to items with a live signal.
type SignalStage struct {
	fetcher SignalFetcher
	opts    SignalOptions
}

// NewSignalStage creates a SignalStage.
func NewSignalStage(fetcher SignalFetcher, opts SignalOptions) *SignalStage {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MinSignal < 0 {
		opts.MinSignal = 0
	}
	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	return &SignalStage{fetcher: fetcher, opts: opts}
}

// Probe fetches the signal for one item. Any failure, including a signal at
// or below the threshold, is returned as an error.
func (s *SignalStage) Probe(ctx context.Context, item model.CatalogItem) (model.SignalResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	n, err := s.fetcher.PlayerCount(reqCtx, item.ID)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return model.SignalResult{}, eris.Wrapf(context.DeadlineExceeded, "signal %s: %v", item.ID, err)
		}
		return model.SignalResult{}, err
	}
	if n <= s.opts.MinSignal {
		return model.SignalResult{}, eris.Wrapf(ErrBelowThreshold, "signal %s: %d", item.ID, n)
	}
	return model.SignalResult{ID: item.ID, Name: item.Name, Signal: n}, nil
}

// Run probes every item and returns the survivors with their stats. Failed
// items are dropped; the order of survivors follows the input order.
func (s *SignalStage) Run(ctx context.Context, items []model.CatalogItem) ([]model.SignalResult, model.StageStats) {
	tick := s.opts.Progress.Begin(StageSignal, len(items))
	outcomes := runBounded(ctx, items, s.opts.MaxConcurrent, s.Probe, tick)

	stats := model.StageStats{Stage: StageSignal, Submitted: len(items)}
	survivors := make([]model.SignalResult, 0, len(items)/4)
	for i, o := range outcomes {
		kind := Classify(o.err)
		stats.Record(kind)
		if o.err != nil {
			if kind != model.FailureBelowThreshold {
				zap.L().Debug("crawl: signal excluded",
					zap.String("app_id", items[i].ID),
					zap.String("kind", string(kind)),
					zap.Error(o.err),
				)
			}
			continue
		}
		survivors = append(survivors, o.value)
	}

	zap.L().Info("crawl: signal stage complete",
		zap.Int("submitted", stats.Submitted),
		zap.Int("survivors", len(survivors)),
		zap.Int("excluded", stats.Failed()),
	)
	return survivors, stats
}
