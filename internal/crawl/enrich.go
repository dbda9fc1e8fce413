package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

// StageEnrich names the store details stage in logs and stats.
const StageEnrich = "enrich"

// DetailsFetcher fetches the rich per-item metadata.
type DetailsFetcher interface {
	AppDetails(ctx context.Context, appID string, loc steam.Locale) (*steam.AppDetails, error)
}

// EnrichOptions configures an EnrichmentStage.
type EnrichOptions struct {
	// MaxConcurrent bounds in-flight items, including their sleeps.
	MaxConcurrent int
	// PacingDelay is slept before every request.
	PacingDelay time.Duration
	// RateLimitDelay is slept after a 429 while the slot is held.
	RateLimitDelay time.Duration
	// RateLimitRetries is how many times a rate-limited request is reissued
	// after the cool-down. Zero means the item degrades right after cooling down.
	RateLimitRetries int
	// Timeout bounds each request.
	Timeout  time.Duration
	Locale   steam.Locale
	Progress Progress
}

// EnrichmentStage attaches store metadata to every survivor. It never drops
// an item: failures degrade to a sentinel record.
type EnrichmentStage struct {
	fetcher DetailsFetcher
	opts    EnrichOptions

	// sleepFunc allows test injection of the pacing and cool-down sleeps.
	sleepFunc func(ctx context.Context, d time.Duration)
}

// NewEnrichmentStage creates an EnrichmentStage.
func NewEnrichmentStage(fetcher DetailsFetcher, opts EnrichOptions) *EnrichmentStage {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimitRetries < 0 {
		opts.RateLimitRetries = 0
	}
	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	return &EnrichmentStage{fetcher: fetcher, opts: opts, sleepFunc: sleep}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Enrich produces the record for one survivor. On failure it returns the
// sentinel record together with the error that caused it.
func (e *EnrichmentStage) Enrich(ctx context.Context, sr model.SignalResult) (model.EnrichedRecord, error) {
	var err error
	for attempt := 0; attempt <= e.opts.RateLimitRetries; attempt++ {
		e.sleepFunc(ctx, e.opts.PacingDelay)

		var details *steam.AppDetails
		details, err = e.fetch(ctx, sr.ID)
		if err == nil {
			return model.EnrichedRecord{
				ID:          sr.ID,
				Name:        sr.Name,
				Signal:      sr.Signal,
				Price:       details.Price(),
				IsFree:      details.IsFree,
				Tags:        details.GenreNames(),
				ReleaseDate: details.Release(),
			}, nil
		}
		if !errors.Is(err, steam.ErrRateLimited) {
			break
		}

		zap.L().Warn("crawl: store rate limited, cooling down",
			zap.String("app_id", sr.ID),
			zap.Duration("delay", e.opts.RateLimitDelay),
			zap.Int("attempt", attempt+1),
		)
		e.sleepFunc(ctx, e.opts.RateLimitDelay)
	}

	return model.SentinelRecord(sr, Classify(err)), err
}

func (e *EnrichmentStage) fetch(ctx context.Context, appID string) (*steam.AppDetails, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	details, err := e.fetcher.AppDetails(reqCtx, appID, e.opts.Locale)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, eris.Wrapf(context.DeadlineExceeded, "enrich %s: %v", appID, err)
		}
		return nil, err
	}
	if details == nil {
		return nil, eris.Wrapf(steam.ErrMalformed, "enrich %s: empty details", appID)
	}
	return details, nil
}

// Run enriches every survivor and returns exactly one record per input, in
// input order, along with the stage stats.
func (e *EnrichmentStage) Run(ctx context.Context, survivors []model.SignalResult) ([]model.EnrichedRecord, model.StageStats) {
	tick := e.opts.Progress.Begin(StageEnrich, len(survivors))
	outcomes := runBounded(ctx, survivors, e.opts.MaxConcurrent, e.Enrich, tick)

	stats := model.StageStats{Stage: StageEnrich, Submitted: len(survivors)}
	records := make([]model.EnrichedRecord, len(survivors))
	for i, o := range outcomes {
		kind := Classify(o.err)
		stats.Record(kind)
		switch {
		case o.err == nil:
			records[i] = o.value
		case errors.Is(o.err, errNotAdmitted):
			records[i] = model.SentinelRecord(survivors[i], kind)
		default:
			records[i] = o.value
			zap.L().Warn("crawl: enrichment degraded to sentinel",
				zap.String("app_id", survivors[i].ID),
				zap.String("kind", string(kind)),
				zap.Error(o.err),
			)
		}
	}

	zap.L().Info("crawl: enrich stage complete",
		zap.Int("submitted", stats.Submitted),
		zap.Int("enriched", stats.Succeeded),
		zap.Int("sentinel", stats.Failed()),
	)
	return records, stats
}
