package crawl

import (
	"context"
	"errors"
	"net"

	"github.com/rotisserie/eris"

	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

// ErrEmptyCatalog halts a run whose catalog produced no items.
var ErrEmptyCatalog = eris.New("crawl: catalog is empty")

// ErrBelowThreshold excludes an item whose signal did not exceed the minimum.
var ErrBelowThreshold = eris.New("crawl: signal below threshold")

// errNotAdmitted marks an item the stage never started because the run was cancelled.
var errNotAdmitted = eris.New("crawl: not admitted before cancellation")

// Classify maps a per-item error to its failure kind. A nil error is FailureNone.
func Classify(err error) model.FailureKind {
	if err == nil {
		return model.FailureNone
	}

	var se *steam.StatusError
	switch {
	case errors.Is(err, errNotAdmitted), errors.Is(err, context.Canceled):
		return model.FailureCancelled
	case errors.Is(err, ErrBelowThreshold):
		return model.FailureBelowThreshold
	case errors.Is(err, steam.ErrRateLimited):
		return model.FailureRateLimited
	case errors.Is(err, steam.ErrMalformed):
		return model.FailureMalformed
	case errors.As(err, &se):
		return model.FailureBadStatus
	case errors.Is(err, context.DeadlineExceeded):
		return model.FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FailureTimeout
	}
	return model.FailureNetwork
}
