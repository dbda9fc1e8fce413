// Package catalog fetches the full list of candidate apps from the Steam catalog.
package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/internal/resilience"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

// Lister fetches one catalog page.
type Lister interface {
	GetAppList(ctx context.Context, lastAppID int, maxResults int) (*steam.AppListPage, error)
}

// Options configures paging.
type Options struct {
	// PageSize is requested from the API per page.
	PageSize int
	// FullPageThreshold is the batch length at which another page is requested.
	FullPageThreshold int
	// RequestsPerSecond paces page requests. Zero disables pacing.
	RequestsPerSecond float64
	// Timeout bounds each page request.
	Timeout time.Duration
	// Retry controls retries of transient page failures.
	Retry resilience.RetryConfig
	// Limit truncates the catalog when positive.
	Limit int
}

// Source pages through the app list sequentially.
type Source struct {
	lister  Lister
	opts    Options
	limiter *rate.Limiter
}

// NewSource creates a catalog source.
func NewSource(lister Lister, opts Options) *Source {
	if opts.PageSize <= 0 {
		opts.PageSize = 50000
	}
	if opts.FullPageThreshold <= 0 {
		opts.FullPageThreshold = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.ShouldRetry == nil {
		opts.Retry.ShouldRetry = shouldRetry
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("steam", "get_app_list")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Source{lister: lister, opts: opts, limiter: limiter}
}

func shouldRetry(err error) bool {
	return errors.Is(err, steam.ErrRateLimited) || resilience.IsTransient(err)
}

// ListItems returns every catalog item, deduplicated by id. A page that fails
// after retries ends paging; the items gathered so far are returned and the
// error is only logged. An empty result is reported by the caller.
func (s *Source) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	seen := make(map[string]bool)
	lastAppID := 0

	for page := 1; ; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return items, eris.Wrap(err, "catalog: rate limiter wait")
		}

		batch, err := resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*steam.AppListPage, error) {
			pageCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
			return s.lister.GetAppList(pageCtx, lastAppID, s.opts.PageSize)
		})
		if err != nil {
			if ctx.Err() != nil {
				return items, eris.Wrap(ctx.Err(), "catalog: cancelled")
			}
			zap.L().Warn("catalog: page failed, stopping pagination",
				zap.Int("page", page),
				zap.Int("last_appid", lastAppID),
				zap.Int("items", len(items)),
				zap.Error(err),
			)
			break
		}
		if len(batch.Apps) == 0 {
			break
		}

		for _, app := range batch.Apps {
			id := strconv.Itoa(app.AppID)
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, model.CatalogItem{ID: id, Name: strings.TrimSpace(app.Name)})
		}

		zap.L().Debug("catalog: page fetched",
			zap.Int("page", page),
			zap.Int("batch", len(batch.Apps)),
			zap.Int("total", len(items)),
		)

		if s.opts.Limit > 0 && len(items) >= s.opts.Limit {
			break
		}

		next := batch.Apps[len(batch.Apps)-1].AppID
		if batch.LastAppID > next {
			next = batch.LastAppID
		}
		if next <= lastAppID {
			break
		}
		lastAppID = next

		if len(batch.Apps) < s.opts.FullPageThreshold {
			break
		}
	}

	if s.opts.Limit > 0 && len(items) > s.opts.Limit {
		items = items[:s.opts.Limit]
	}

	zap.L().Info("catalog: fetched apps", zap.Int("apps", len(items)))
	return items, nil
}
