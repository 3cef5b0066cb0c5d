package construction

import (
	"errors"
	"testing"
	"time"
)

func TestNewReport(t *testing.T) {
	r := NewReport("train-gate", []string{"idle", "s0"})
	if r.ID == "" || r.Status != StatusPending {
		t.Fatalf("NewReport() = %+v", r)
	}
	if other := NewReport("train-gate", nil); other.ID == r.ID {
		t.Error("NewReport() should generate unique IDs")
	}

	r.Fail(errors.New("boom"))
	if r.Status != StatusFailed || r.Error != "boom" || r.EndTime.IsZero() {
		t.Errorf("Fail() left %+v", r)
	}
}

func TestListFilter_Apply(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reports := []*Report{
		{ID: "a", Model: "m", Status: StatusCompleted, Strategy: "witness", StartTime: base, Measures: Measures{SequenceLength: 4}},
		{ID: "b", Model: "m", Status: StatusFailed, Strategy: "zone", StartTime: base.Add(time.Hour), Measures: Measures{SequenceLength: 1}},
		{ID: "c", Model: "other", Status: StatusCompleted, Strategy: "witness", StartTime: base.Add(2 * time.Hour), Measures: Measures{SequenceLength: 9}},
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all", ListFilter{}, []string{"a", "b", "c"}},
		{"status", ListFilter{Status: []Status{StatusCompleted}}, []string{"a", "c"}},
		{"model", ListFilter{Model: "M"}, []string{"a", "b"}},
		{"strategy", ListFilter{Strategy: "zone"}, []string{"b"}},
		{"from", ListFilter{FromTime: base.Add(30 * time.Minute)}, []string{"b", "c"}},
		{"by length desc", ListFilter{OrderBy: OrderByLength, Descending: true}, []string{"c", "a", "b"}},
		{"paged", ListFilter{Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", ListFilter{Offset: 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(reports)
			if len(got) != len(tt.want) {
				t.Fatalf("Apply() returned %d reports, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Apply()[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	reports := []*Report{
		{Status: StatusCompleted, StartTime: start, EndTime: start.Add(2 * time.Second), Measures: Measures{SequenceLength: 2}},
		{Status: StatusFailed, StartTime: start, EndTime: start.Add(4 * time.Second), Measures: Measures{SequenceLength: 4}},
	}
	s := Summarize(reports)
	if s.Total != 2 || s.Completed != 1 || s.Failed != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
	if s.AverageLength != 3 || s.AverageDuration != 3*time.Second {
		t.Errorf("Summarize() averages = %v, %v", s.AverageLength, s.AverageDuration)
	}
}
