package construction

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Store defines the interface for report persistence.
// Implementations may be in-memory, SQLite, PostgreSQL or MongoDB.
type Store interface {
	// Save persists a new report.
	Save(ctx context.Context, report *Report) error

	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (*Report, error)

	// Delete removes a report by ID.
	Delete(ctx context.Context, id string) error

	// List returns reports matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Report, error)

	// Count returns the number of reports matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// ListFilter specifies criteria for listing reports.
type ListFilter struct {
	// Status filters by outcome (empty means all).
	Status []Status

	// Model filters by model name (empty means all).
	Model string

	// Strategy filters by synthesis strategy (empty means all).
	Strategy string

	// FromTime filters reports started after this time.
	FromTime time.Time

	// ToTime filters reports started before this time.
	ToTime time.Time

	// Limit is the maximum number of reports to return (0 = no limit).
	Limit int

	// Offset is the number of reports to skip for pagination.
	Offset int

	// OrderBy specifies the sort order.
	OrderBy OrderBy

	// Descending reverses the sort order.
	Descending bool
}

// OrderBy specifies how to sort report results.
type OrderBy string

const (
	// OrderByStartTime sorts by start time.
	OrderByStartTime OrderBy = "start_time"

	// OrderByID sorts by report ID.
	OrderByID OrderBy = "id"

	// OrderByLength sorts by synthesized sequence length.
	OrderByLength OrderBy = "sequence_length"
)

// Matches reports whether r satisfies the filter, ignoring paging.
func (f ListFilter) Matches(r *Report) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Model != "" && !strings.EqualFold(r.Model, f.Model) {
		return false
	}
	if f.Strategy != "" && r.Strategy != f.Strategy {
		return false
	}
	if !f.FromTime.IsZero() && r.StartTime.Before(f.FromTime) {
		return false
	}
	if !f.ToTime.IsZero() && r.StartTime.After(f.ToTime) {
		return false
	}
	return true
}

// Apply filters, sorts and pages reports in memory. Backends that cannot
// express the filter natively use it on their scan results.
func (f ListFilter) Apply(reports []*Report) []*Report {
	var out []*Report
	for _, r := range reports {
		if f.Matches(r) {
			out = append(out, r)
		}
	}

	less := func(a, b *Report) bool { return a.StartTime.Before(b.StartTime) }
	switch f.OrderBy {
	case OrderByID:
		less = func(a, b *Report) bool { return a.ID < b.ID }
	case OrderByLength:
		less = func(a, b *Report) bool { return a.Measures.SequenceLength < b.Measures.SequenceLength }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// Summary provides aggregate statistics about constructions.
type Summary struct {
	// Total is the number of reports.
	Total int64

	// Completed is the number of verified constructions.
	Completed int64

	// Failed is the number of failed constructions.
	Failed int64

	// AverageLength is the mean synthesized sequence length.
	AverageLength float64

	// AverageDuration is the mean construction time.
	AverageDuration time.Duration
}

// Summarize aggregates reports.
func Summarize(reports []*Report) Summary {
	var s Summary
	var length int
	var total time.Duration
	for _, r := range reports {
		s.Total++
		switch r.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
		length += r.Measures.SequenceLength
		total += r.Duration()
	}
	if s.Total > 0 {
		s.AverageLength = float64(length) / float64(s.Total)
		s.AverageDuration = total / time.Duration(s.Total)
	}
	return s
}

// SummaryProvider is an optional interface for stores that support summaries.
type SummaryProvider interface {
	// Summary returns aggregate statistics.
	Summary(ctx context.Context, filter ListFilter) (Summary, error)
}
