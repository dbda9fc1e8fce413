package crawl

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

// inflight tracks concurrent calls and the peak observed.
type inflight struct {
	cur  atomic.Int64
	peak atomic.Int64
}

func (f *inflight) enter() {
	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (f *inflight) leave() { f.cur.Add(-1) }

type fakeSignals struct {
	inflight
	delay  time.Duration
	counts map[string]int
	errs   map[string]error
	hang   map[string]bool
	calls  atomic.Int64
}

func (f *fakeSignals) PlayerCount(ctx context.Context, appID string) (int, error) {
	f.calls.Add(1)
	f.enter()
	defer f.leave()

	if f.hang[appID] {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.errs[appID]; ok {
		return 0, err
	}
	return f.counts[appID], nil
}

type fakeDetails struct {
	inflight
	mu      sync.Mutex
	delay   time.Duration
	details map[string]*steam.AppDetails
	errs    map[string][]error // consumed in order, then details
	calls   map[string]int
	locales []steam.Locale
}

func (f *fakeDetails) AppDetails(ctx context.Context, appID string, loc steam.Locale) (*steam.AppDetails, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[appID]++
	f.locales = append(f.locales, loc)
	var err error
	if errs := f.errs[appID]; len(errs) > 0 {
		err = errs[0]
		f.errs[appID] = errs[1:]
	}
	d := f.details[appID]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &steam.StatusError{StatusCode: 404, URL: "/api/appdetails"}
	}
	return d, nil
}

func (f *fakeDetails) callsFor(appID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[appID]
}

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
}

func (r *recordedSleeps) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func catalogItems(n int) []model.CatalogItem {
	items := make([]model.CatalogItem, n)
	for i := range items {
		items[i] = model.CatalogItem{ID: strconv.Itoa(i + 1), Name: "Game " + strconv.Itoa(i+1)}
	}
	return items
}

func priced(final int, genres ...string) *steam.AppDetails {
	d := &steam.AppDetails{
		PriceOverview: &steam.PriceOverview{Currency: "USD", Final: final},
		ReleaseDate:   &steam.ReleaseDate{Date: "1 Jan, 2020"},
	}
	for _, g := range genres {
		d.Genres = append(d.Genres, steam.Genre{Description: g})
	}
	return d
}

type countingProgress struct {
	stage string
	total int
	done  atomic.Int64
}

func (p *countingProgress) Begin(stage string, total int) func() {
	p.stage = stage
	p.total = total
	return func() { p.done.Add(1) }
}
