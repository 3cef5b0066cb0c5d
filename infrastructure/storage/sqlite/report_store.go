package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

const reportSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		status TEXT NOT NULL,
		strategy TEXT,
		sequence_length INTEGER NOT NULL DEFAULT 0,
		data BLOB NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_reports_model ON reports(model);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_start_time ON reports(start_time);
`

// ReportStore persists construction reports in SQLite. The filterable
// columns are denormalized next to the JSON document.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore opens the database described by cfg and creates a report
// store on it.
func NewReportStore(cfg Config) (*ReportStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &ReportStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewReportStoreFromDB creates a report store on an existing connection.
func NewReportStoreFromDB(db *sql.DB) (*ReportStore, error) {
	s := &ReportStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ReportStore) migrate() error {
	if _, err := s.db.Exec(reportSchema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Save persists a new report.
func (s *ReportStore) Save(ctx context.Context, r *construction.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		return construction.ErrInvalidReportID
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	var endTime sql.NullInt64
	if !r.EndTime.IsZero() {
		endTime = sql.NullInt64{Int64: r.EndTime.UnixNano(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, model, status, strategy, sequence_length, data, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Model, string(r.Status), r.Strategy, r.Measures.SequenceLength,
		data, r.StartTime.UnixNano(), endTime,
	)
	if isUniqueViolation(err) {
		return construction.ErrReportExists
	}
	return err
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (*construction.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, construction.ErrInvalidReportID
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM reports WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, construction.ErrReportNotFound
	}
	if err != nil {
		return nil, err
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

	result, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return construction.ErrReportNotFound
	}
	return nil
}

// List returns reports matching the filter.
func (s *ReportStore) List(ctx context.Context, filter construction.ListFilter) ([]*construction.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, args := buildListQuery(filter, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reports := []*construction.Report{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r construction.Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue // Skip malformed entries
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// Count returns the number of reports matching the filter.
func (s *ReportStore) Count(ctx context.Context, filter construction.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query, args := buildListQuery(filter, true)
	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// Summary returns aggregate statistics computed in SQL.
func (s *ReportStore) Summary(ctx context.Context, filter construction.ListFilter) (construction.Summary, error) {
	if err := ctx.Err(); err != nil {
		return construction.Summary{}, err
	}

	where, args := buildWhereClause(filter)
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(sequence_length), 0),
			COALESCE(AVG(CASE WHEN end_time IS NOT NULL THEN end_time - start_time END), 0)
		FROM reports`
	if where != "" {
		query += " WHERE " + where
	}

	var summary construction.Summary
	var avgNanos float64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.Total,
		&summary.Completed,
		&summary.Failed,
		&summary.AverageLength,
		&avgNanos,
	)
	if err != nil {
		return construction.Summary{}, err
	}
	summary.AverageDuration = time.Duration(avgNanos)
	return summary, nil
}

func buildListQuery(filter construction.ListFilter, countOnly bool) (string, []any) {
	query := "SELECT data FROM reports"
	if countOnly {
		query = "SELECT COUNT(*) FROM reports"
	}

	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	if countOnly {
		return query, args
	}

	orderBy := "start_time"
	switch filter.OrderBy {
	case construction.OrderByID:
		orderBy = "id"
	case construction.OrderByLength:
		orderBy = "sequence_length"
	}
	query += " ORDER BY " + orderBy
	if filter.Descending {
		query += " DESC"
	}

	// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := -1
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}
	return query, args
}

func buildWhereClause(filter construction.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ? COLLATE NOCASE")
		args = append(args, filter.Model)
	}
	if filter.Strategy != "" {
		conditions = append(conditions, "strategy = ?")
		args = append(args, filter.Strategy)
	}
	if !filter.FromTime.IsZero() {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.FromTime.UnixNano())
	}
	if !filter.ToTime.IsZero() {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, filter.ToTime.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

// Close closes the database connection.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *ReportStore) DB() *sql.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ construction.Store           = (*ReportStore)(nil)
	_ construction.SummaryProvider = (*ReportStore)(nil)
)
