package model

// FailureKind classifies why a per-item fetch did not succeed.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNetwork        FailureKind = "network"
	FailureTimeout        FailureKind = "timeout"
	FailureBadStatus      FailureKind = "bad_status"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureMalformed      FailureKind = "malformed"
	FailureBelowThreshold FailureKind = "below_threshold"
	FailureCancelled      FailureKind = "cancelled"
)

// FailureKinds returns every failure kind in display order.
func FailureKinds() []FailureKind {
	return []FailureKind{
		FailureBelowThreshold,
		FailureTimeout,
		FailureNetwork,
		FailureBadStatus,
		FailureRateLimited,
		FailureMalformed,
		FailureCancelled,
	}
}

// StageStats summarizes one stage pass.
type StageStats struct {
	Stage     string              `json:"stage" yaml:"stage"`
	Submitted int                 `json:"submitted" yaml:"submitted"`
	Succeeded int                 `json:"succeeded" yaml:"succeeded"`
	Failures  map[FailureKind]int `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failed returns the total number of failed items.
func (s StageStats) Failed() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// Record counts one outcome.
func (s *StageStats) Record(kind FailureKind) {
	if kind == FailureNone {
		s.Succeeded++
		return
	}
	if s.Failures == nil {
		s.Failures = make(map[FailureKind]int)
	}
	s.Failures[kind]++
}
