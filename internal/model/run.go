package model

import "time"

// RunStatus represents the state of a crawl run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded crawl run.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Status     RunStatus  `json:"status" yaml:"status"`
	Result     *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// RunResult holds the outcome of a completed crawl.
type RunResult struct {
	CatalogSize int          `json:"catalog_size" yaml:"catalog_size"`
	Survivors   int          `json:"survivors" yaml:"survivors"`
	Enriched    int          `json:"enriched" yaml:"enriched"`
	Sentinels   int          `json:"sentinels" yaml:"sentinels"`
	ObservedAt  time.Time    `json:"observed_at" yaml:"observed_at"`
	OutputPath  string       `json:"output_path" yaml:"output_path"`
	Stages      []StageStats `json:"stages" yaml:"stages"`
}
