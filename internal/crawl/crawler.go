// Package crawl runs the two-stage fetch pipeline: a high-concurrency signal
// filter over the whole catalog followed by a paced, low-concurrency
// enrichment of the survivors.
package crawl

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/model"
)

// CatalogSource lists the candidate items for a run.
type CatalogSource interface {
	ListItems(ctx context.Context) ([]model.CatalogItem, error)
}

// ResultWriter persists a run's table and returns where it was written.
type ResultWriter interface {
	Write(ctx context.Context, table model.Table) (string, error)
}

// Recorder keeps a history of runs. Recording failures never fail a run.
type Recorder interface {
	StartRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, runErr error) error
}

// Crawler sequences the catalog, both stages, and the writer.
type Crawler struct {
	catalog  CatalogSource
	signal   *SignalStage
	enrich   *EnrichmentStage
	writer   ResultWriter
	recorder Recorder

	// nowFunc allows test injection of the observation time.
	nowFunc func() time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithRecorder records every run in the given history.
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		c.recorder = r
	}
}

// New creates a Crawler.
func New(catalog CatalogSource, signal *SignalStage, enrich *EnrichmentStage, writer ResultWriter, opts ...Option) *Crawler {
	c := &Crawler{
		catalog: catalog,
		signal:  signal,
		enrich:  enrich,
		writer:  writer,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one crawl. It returns ErrEmptyCatalog, without writing any
// output, when the catalog yields no items. Per-item failures never surface here.
func (c *Crawler) Run(ctx context.Context) (*model.RunResult, error) {
	runID := c.startRun(ctx)

	result, err := c.run(ctx)
	if err != nil {
		c.failRun(ctx, runID, err)
		return nil, err
	}

	c.completeRun(ctx, runID, result)
	return result, nil
}

func (c *Crawler) run(ctx context.Context) (*model.RunResult, error) {
	items, err := c.catalog.ListItems(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: list catalog")
	}
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	zap.L().Info("crawl: catalog loaded", zap.Int("items", len(items)))

	survivors, signalStats := c.signal.Run(ctx, items)
	records, enrichStats := c.enrich.Run(ctx, survivors)

	table := Assemble(records, c.nowFunc().UTC().Truncate(time.Second))

	path, err := c.writer.Write(ctx, table)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: write results")
	}

	result := &model.RunResult{
		CatalogSize: len(items),
		Survivors:   len(survivors),
		Enriched:    enrichStats.Succeeded,
		Sentinels:   enrichStats.Failed(),
		ObservedAt:  table.ObservedAt,
		OutputPath:  path,
		Stages:      []model.StageStats{signalStats, enrichStats},
	}
	zap.L().Info("crawl: run complete",
		zap.Int("catalog", result.CatalogSize),
		zap.Int("survivors", result.Survivors),
		zap.Int("enriched", result.Enriched),
		zap.Int("sentinels", result.Sentinels),
		zap.String("output", path),
	)
	return result, nil
}

// Assemble stamps every record with observedAt and orders the rows by signal
// descending, then id.
func Assemble(records []model.EnrichedRecord, observedAt time.Time) model.Table {
	rows := make([]model.EnrichedRecord, len(records))
	for i, r := range records {
		rows[i] = r.WithObservedAt(observedAt)
	}
	slices.SortStableFunc(rows, func(a, b model.EnrichedRecord) int {
		if n := cmp.Compare(b.Signal, a.Signal); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return model.Table{ObservedAt: observedAt, Records: rows}
}

func (c *Crawler) startRun(ctx context.Context) string {
	if c.recorder == nil {
		return ""
	}
	run, err := c.recorder.StartRun(ctx)
	if err != nil {
		zap.L().Warn("crawl: record run start failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (c *Crawler) completeRun(ctx context.Context, runID string, result *model.RunResult) {
	if c.recorder == nil || runID == "" {
		return
	}
	if err := c.recorder.CompleteRun(context.WithoutCancel(ctx), runID, result); err != nil {
		zap.L().Warn("crawl: record run result failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (c *Crawler) failRun(ctx context.Context, runID string, runErr error) {
	if c.recorder == nil || runID == "" {
		return
	}
	if err := c.recorder.FailRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
		zap.L().Warn("crawl: record run failure failed", zap.String("run_id", runID), zap.Error(err))
	}
}
