package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/internal/resilience"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

type pageCall struct {
	lastAppID  int
	maxResults int
}

type fakeLister struct {
	mu    sync.Mutex
	calls []pageCall
	pages []func() (*steam.AppListPage, error)
}

func (f *fakeLister) GetAppList(_ context.Context, lastAppID int, maxResults int) (*steam.AppListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, pageCall{lastAppID: lastAppID, maxResults: maxResults})
	if idx >= len(f.pages) {
		return &steam.AppListPage{}, nil
	}
	return f.pages[idx]()
}

func appsRange(from, n int) []steam.App {
	apps := make([]steam.App, n)
	for i := range apps {
		apps[i] = steam.App{AppID: from + i, Name: " game "}
	}
	return apps
}

func page(apps []steam.App) func() (*steam.AppListPage, error) {
	return func() (*steam.AppListPage, error) {
		return &steam.AppListPage{Apps: apps}, nil
	}
}

func fail(err error) func() (*steam.AppListPage, error) {
	return func() (*steam.AppListPage, error) { return nil, err }
}

func testOptions() Options {
	return Options{
		PageSize:          5,
		FullPageThreshold: 3,
		Timeout:           time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	}
}

func TestListItems_PagesWhileFull(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		page(appsRange(1, 3)),
		page(appsRange(4, 3)),
		page(appsRange(7, 2)),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)

	assert.Len(t, items, 8)
	assert.Equal(t, model.CatalogItem{ID: "1", Name: "game"}, items[0])
	assert.Equal(t, "8", items[7].ID)
	require.Len(t, lister.calls, 3)
	assert.Equal(t, pageCall{lastAppID: 0, maxResults: 5}, lister.calls[0])
	assert.Equal(t, 3, lister.calls[1].lastAppID)
	assert.Equal(t, 6, lister.calls[2].lastAppID)
}

func TestListItems_StopsOnEmptyPage(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		page(appsRange(1, 3)),
		page(nil),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Len(t, lister.calls, 2)
}

func TestListItems_DeduplicatesIDs(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		page([]steam.App{{AppID: 1, Name: "A"}, {AppID: 1, Name: "A again"}, {AppID: 2, Name: "B"}}),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.CatalogItem{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}, items)
}

func TestListItems_RetriesTransientFailure(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		fail(&steam.StatusError{StatusCode: 503, URL: "/IStoreService/GetAppList/v1/"}),
		page(appsRange(1, 2)),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Len(t, lister.calls, 2)
}

func TestListItems_RetriesRateLimit(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		fail(steam.ErrRateLimited),
		page(appsRange(1, 1)),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListItems_FailureKeepsGatheredItems(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		page(appsRange(1, 3)),
		fail(&steam.StatusError{StatusCode: 403, URL: "/x"}),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
	// 403 is not retried.
	assert.Len(t, lister.calls, 2)
}

func TestListItems_FirstPageFailsYieldsEmpty(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		fail(&steam.StatusError{StatusCode: 401, URL: "/x"}),
	}}

	items, err := NewSource(lister, testOptions()).ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListItems_Limit(t *testing.T) {
	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){
		page(appsRange(1, 3)),
		page(appsRange(4, 3)),
	}}
	opts := testOptions()
	opts.Limit = 2

	items, err := NewSource(lister, opts).ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Len(t, lister.calls, 1)
}

func TestListItems_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lister := &fakeLister{pages: []func() (*steam.AppListPage, error){page(appsRange(1, 3))}}
	opts := testOptions()
	opts.RequestsPerSecond = 1

	_, err := NewSource(lister, opts).ListItems(ctx)
	require.Error(t, err)
}
