package model

import "time"

// Output column names, in file order. Downstream readers depend on these
// names and on signal and price being numeric.
const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnSignal      = "signal"
	ColumnPrice       = "price"
	ColumnIsFree      = "is_free"
	ColumnTags        = "tags"
	ColumnReleaseDate = "release_date"
	ColumnObservedAt  = "observed_at"
)

// ObservedAtLayout formats the observed_at column.
const ObservedAtLayout = "2006-01-02 15:04:05"

// Columns returns the fixed output column order.
func Columns() []string {
	return []string{
		ColumnID,
		ColumnName,
		ColumnSignal,
		ColumnPrice,
		ColumnIsFree,
		ColumnTags,
		ColumnReleaseDate,
		ColumnObservedAt,
	}
}

// Table is the assembled output of one run. Every record shares ObservedAt.
type Table struct {
	ObservedAt time.Time
	Records    []EnrichedRecord
}

// Values returns the row cells of r in Columns order with their native types.
func (r EnrichedRecord) Values() []any {
	return []any{
		r.ID,
		r.Name,
		r.Signal,
		r.Price,
		r.IsFree,
		r.TagString(),
		r.ReleaseDate,
		r.ObservedAt.Format(ObservedAtLayout),
	}
}
