package crawl

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

func TestSignalStage_TimeoutExcludesItem(t *testing.T) {
	fetcher := &fakeSignals{
		counts: map[string]int{"10": 5},
		hang:   map[string]bool{"20": true},
	}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 4, Timeout: 20 * time.Millisecond})

	items := []model.CatalogItem{{ID: "10", Name: "A"}, {ID: "20", Name: "B"}}
	survivors, stats := stage.Run(context.Background(), items)

	assert.Equal(t, []model.SignalResult{{ID: "10", Name: "A", Signal: 5}}, survivors)
	assert.Equal(t, 2, stats.Submitted)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failures[model.FailureTimeout])
}

func TestSignalStage_DropsEveryFailureKind(t *testing.T) {
	fetcher := &fakeSignals{
		counts: map[string]int{"1": 3, "2": 0, "6": 9},
		errs: map[string]error{
			"3": errors.New("dial tcp: connection refused"),
			"4": &steam.StatusError{StatusCode: 500, URL: "/x"},
			"5": steam.ErrMalformed,
		},
	}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 2, Timeout: time.Second})

	survivors, stats := stage.Run(context.Background(), catalogItems(6))

	require.Len(t, survivors, 2)
	assert.Equal(t, "1", survivors[0].ID)
	assert.Equal(t, "6", survivors[1].ID)
	for _, s := range survivors {
		assert.Positive(t, s.Signal)
	}
	assert.Equal(t, 1, stats.Failures[model.FailureBelowThreshold])
	assert.Equal(t, 1, stats.Failures[model.FailureNetwork])
	assert.Equal(t, 1, stats.Failures[model.FailureBadStatus])
	assert.Equal(t, 1, stats.Failures[model.FailureMalformed])
}

func TestSignalStage_MinSignalIsExclusive(t *testing.T) {
	fetcher := &fakeSignals{counts: map[string]int{"1": 10, "2": 11}}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 1, Timeout: time.Second, MinSignal: 10})

	survivors, _ := stage.Run(context.Background(), catalogItems(2))

	require.Len(t, survivors, 1)
	assert.Equal(t, "2", survivors[0].ID)
}

func TestSignalStage_AdmissionBound(t *testing.T) {
	counts := make(map[string]int)
	for i := 1; i <= 60; i++ {
		counts[strconv.Itoa(i)] = i
	}
	fetcher := &fakeSignals{counts: counts, delay: 5 * time.Millisecond}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 7, Timeout: time.Second})

	survivors, _ := stage.Run(context.Background(), catalogItems(60))

	assert.Len(t, survivors, 60)
	assert.LessOrEqual(t, fetcher.peak.Load(), int64(7))
	assert.Positive(t, fetcher.peak.Load())
}

func TestSignalStage_CancelledStopsAdmitting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeSignals{counts: map[string]int{"1": 5}}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 1, Timeout: time.Second})

	survivors, stats := stage.Run(ctx, catalogItems(3))

	assert.Empty(t, survivors)
	assert.Zero(t, fetcher.calls.Load())
	assert.Equal(t, 3, stats.Failures[model.FailureCancelled])
}

func TestSignalStage_ProgressCountsEveryItem(t *testing.T) {
	fetcher := &fakeSignals{counts: map[string]int{"1": 1}}
	p := &countingProgress{}
	stage := NewSignalStage(fetcher, SignalOptions{MaxConcurrent: 3, Timeout: time.Second, Progress: p})

	stage.Run(context.Background(), catalogItems(5))

	assert.Equal(t, StageSignal, p.stage)
	assert.Equal(t, 5, p.total)
	assert.Equal(t, int64(5), p.done.Load())
}
