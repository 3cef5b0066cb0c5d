// Package construction records the outcome of driving a model into a target
// state.
package construction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the outcome of a construction.
type Status string

const (
	StatusPending   Status = "pending"   // Not yet finished
	StatusCompleted Status = "completed" // Path inserted and verified
	StatusFailed    Status = "failed"    // Terminated with error
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Measures records the cost of each construction phase.
type Measures struct {
	GenerationTime    time.Duration `json:"generation_time"`
	ApplicationTime   time.Duration `json:"application_time"`
	AdaptationTime    time.Duration `json:"adaptation_time"`
	VerificationTime  time.Duration `json:"verification_time"`
	SequenceLength    int           `json:"sequence_length"`
	ReducedLength     int           `json:"reduced_length,omitempty"`
	InsertedLocations int           `json:"inserted_locations"`
	InsertedEdges     int           `json:"inserted_edges"`
}

// Total returns the summed phase durations.
func (m Measures) Total() time.Duration {
	return m.GenerationTime + m.ApplicationTime + m.AdaptationTime + m.VerificationTime
}

// Report is the aggregate root of one construction.
type Report struct {
	ID        string           `json:"id"`
	Model     string           `json:"model"`
	Locations []string         `json:"locations"`
	Variables map[string]any   `json:"variables,omitempty"`
	Zone      []string         `json:"zone,omitempty"`
	Strategy  string           `json:"strategy,omitempty"`
	Sequence  []string         `json:"sequence,omitempty"`
	Witness   map[string]int64 `json:"witness,omitempty"`
	Exact     bool             `json:"exact"`
	Path      []string         `json:"path,omitempty"`
	Verified  bool             `json:"verified"`
	Artifact  string           `json:"artifact,omitempty"`
	Status    Status           `json:"status"`
	Error     string           `json:"error,omitempty"`
	Measures  Measures         `json:"measures"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time,omitempty"`
}

// NewReport creates a pending report with a fresh ID.
func NewReport(modelName string, locations []string) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Model:     modelName,
		Locations: append([]string(nil), locations...),
		Status:    StatusPending,
		StartTime: time.Now(),
	}
}

// Complete marks the construction as finished.
func (r *Report) Complete() {
	r.Status = StatusCompleted
	r.EndTime = time.Now()
}

// Fail marks the construction as failed with an error.
func (r *Report) Fail(err error) {
	r.Status = StatusFailed
	r.EndTime = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the wall time of the construction so far.
func (r *Report) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}
