package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// ReportStore is an in-memory implementation of construction.Store.
// Reports are stored encoded so callers never share state with the store.
type ReportStore struct {
	reports map[string][]byte
	mu      sync.RWMutex
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string][]byte),
	}
}

// Save persists a new report.
func (s *ReportStore) Save(ctx context.Context, r *construction.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || r.ID == "" {
		return construction.ErrInvalidReportID
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return construction.ErrReportExists
	}
	s.reports[r.ID] = data
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (*construction.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, construction.ErrInvalidReportID
	}

	s.mu.RLock()
	data, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, construction.ErrReportNotFound
	}

	var r construction.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes a report by ID.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return construction.ErrInvalidReportID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[id]; !exists {
		return construction.ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

// List returns reports matching the filter.
func (s *ReportStore) List(ctx context.Context, filter construction.ListFilter) ([]*construction.Report, error) {
	all, err := s.decodeAll(ctx)
	if err != nil {
		return nil, err
	}
	out := filter.Apply(all)
	if out == nil {
		out = []*construction.Report{}
	}
	return out, nil
}

// Count returns the number of reports matching the filter.
func (s *ReportStore) Count(ctx context.Context, filter construction.ListFilter) (int64, error) {
	all, err := s.decodeAll(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range all {
		if filter.Matches(r) {
			n++
		}
	}
	return n, nil
}

// Summary returns aggregate statistics over the matching reports.
func (s *ReportStore) Summary(ctx context.Context, filter construction.ListFilter) (construction.Summary, error) {
	filter.Limit, filter.Offset = 0, 0
	reports, err := s.List(ctx, filter)
	if err != nil {
		return construction.Summary{}, err
	}
	return construction.Summarize(reports), nil
}

func (s *ReportStore) decodeAll(ctx context.Context) ([]*construction.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*construction.Report, 0, len(s.reports))
	for _, data := range s.reports {
		var r construction.Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

var (
	_ construction.Store           = (*ReportStore)(nil)
	_ construction.SummaryProvider = (*ReportStore)(nil)
)
