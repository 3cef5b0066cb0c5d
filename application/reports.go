package application

import (
	"context"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// Report returns a stored construction report. A missing report is not
// retried.
func (e *Engine) Report(ctx context.Context, id string) (*construction.Report, error) {
	var r *construction.Report
	err := e.executor.DoOnce(ctx, func(ctx context.Context) error {
		var err error
		r, err = e.reports.Get(ctx, id)
		return err
	})
	return r, err
}

// Reports lists stored construction reports.
func (e *Engine) Reports(ctx context.Context, filter construction.ListFilter) ([]*construction.Report, error) {
	var out []*construction.Report
	err := e.executor.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.reports.List(ctx, filter)
		return err
	})
	return out, err
}

// Summary aggregates the reports matching filter, natively when the store
// supports it.
func (e *Engine) Summary(ctx context.Context, filter construction.ListFilter) (construction.Summary, error) {
	if sp, ok := e.reports.(construction.SummaryProvider); ok {
		var s construction.Summary
		err := e.executor.Do(ctx, func(ctx context.Context) error {
			var err error
			s, err = sp.Summary(ctx, filter)
			return err
		})
		return s, err
	}
	filter.Limit, filter.Offset = 0, 0
	reports, err := e.Reports(ctx, filter)
	if err != nil {
		return construction.Summary{}, err
	}
	return construction.Summarize(reports), nil
}
