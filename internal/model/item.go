// Package model defines the values that flow through a crawl run.
package model

import (
	"strings"
	"time"
)

// Sentinel values stamped on a record whose enrichment failed.
const (
	SentinelPrice       = -1.0
	SentinelIsFree      = false
	SentinelTags        = ""
	SentinelReleaseDate = ""
)

// CatalogItem is a candidate produced by the catalog source.
type CatalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SignalResult is a catalog item that passed the signal filter.
type SignalResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Signal int    `json:"signal"`
}

// EnrichedRecord is the final per-item row of a crawl run.
type EnrichedRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Signal      int       `json:"signal"`
	Price       float64   `json:"price"`
	IsFree      bool      `json:"is_free"`
	Tags        []string  `json:"tags"`
	ReleaseDate string    `json:"release_date"`
	ObservedAt  time.Time `json:"observed_at"`

	// Failure is empty for a successful enrichment. It is not an output column.
	Failure FailureKind `json:"failure,omitempty"`
}

// SentinelRecord returns the degraded record for a survivor whose
// enrichment could not be completed.
func SentinelRecord(sr SignalResult, kind FailureKind) EnrichedRecord {
	return EnrichedRecord{
		ID:          sr.ID,
		Name:        sr.Name,
		Signal:      sr.Signal,
		Price:       SentinelPrice,
		IsFree:      SentinelIsFree,
		ReleaseDate: SentinelReleaseDate,
		Failure:     kind,
	}
}

// IsSentinel reports whether r carries the enrichment-failure sentinel.
// All four fields must match; price alone is not enough.
func (r EnrichedRecord) IsSentinel() bool {
	return r.Price == SentinelPrice &&
		r.IsFree == SentinelIsFree &&
		len(r.Tags) == 0 &&
		r.ReleaseDate == SentinelReleaseDate
}

// TagString joins the tags the way they are written to output files.
func (r EnrichedRecord) TagString() string {
	return strings.Join(r.Tags, ", ")
}

// WithObservedAt returns a copy of r stamped with t.
func (r EnrichedRecord) WithObservedAt(t time.Time) EnrichedRecord {
	r.ObservedAt = t
	if r.Tags != nil {
		r.Tags = append([]string(nil), r.Tags...)
	}
	return r
}
