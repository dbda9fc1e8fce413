package steam

import (
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// ErrRateLimited is returned when an endpoint answers 429 Too Many Requests.
var ErrRateLimited = eris.New("steam: rate limited")

// ErrMalformed is returned when a response body does not have the expected shape.
var ErrMalformed = eris.New("steam: malformed response")

// StatusError is returned for any non-200 response other than 429.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("steam: unexpected status %d from %s", e.StatusCode, e.URL)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500
}
