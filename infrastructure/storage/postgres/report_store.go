package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// ReportStore is a PostgreSQL-backed implementation of construction.Store.
// The report document lives in a JSONB column next to the columns that
// filters and ordering need.
type ReportStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewReportStore creates a report store on an existing pool.
func NewReportStore(pool *pgxpool.Pool, schema string) *ReportStore {
	if schema == "" {
		schema = "public"
	}
	return &ReportStore{pool: pool, schema: schema}
}

func (s *ReportStore) tableName() string {
	return fmt.Sprintf("%s.reports", s.schema)
}

// Migrate creates the reports table and its indexes.
func (s *ReportStore) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			status TEXT NOT NULL,
			strategy TEXT NOT NULL DEFAULT '',
			sequence_length INTEGER NOT NULL DEFAULT 0,
			data JSONB NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ
		)`, s.tableName()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS reports_model_idx ON %s (lower(model))`, s.tableName()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS reports_start_time_idx ON %s (start_time)`, s.tableName()),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return s.wrapError(err)
		}
	}
	return nil
}

// Save persists a new report.
func (s *ReportStore) Save(ctx context.Context, r *construction.Report) error {
	if r.ID == "" {
		return construction.ErrInvalidReportID
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var endTime *time.Time
	if !r.EndTime.IsZero() {
		endTime = &r.EndTime
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model, status, strategy, sequence_length, data, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.Model,
		string(r.Status),
		r.Strategy,
		r.Measures.SequenceLength,
		data,
		r.StartTime,
		endTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return construction.ErrReportExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (*construction.Report, error) {
	if id == "" {
		return nil, construction.ErrInvalidReportID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, construction.ErrReportNotFound
		}
		return nil, s.wrapError(err)
	}

	var r construction.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// Delete removes a report by ID.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return construction.ErrInvalidReportID
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName()), id)
	if err != nil {
		return s.wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return construction.ErrReportNotFound
	}
	return nil
}

// List returns reports matching the filter.
func (s *ReportStore) List(ctx context.Context, filter construction.ListFilter) ([]*construction.Report, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	reports := []*construction.Report{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		var r construction.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return reports, nil
}

// Count returns the number of reports matching the filter.
func (s *ReportStore) Count(ctx context.Context, filter construction.ListFilter) (int64, error) {
	query, args := s.buildCountQuery(filter)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

// Summary returns aggregate statistics.
func (s *ReportStore) Summary(ctx context.Context, filter construction.ListFilter) (construction.Summary, error) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(sequence_length), 0)::float8,
			COALESCE(EXTRACT(EPOCH FROM AVG(end_time - start_time)), 0)::float8
		FROM %s
		%s
	`, s.tableName(), whereClause)

	var summary construction.Summary
	var avgSeconds float64
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&summary.Total,
		&summary.Completed,
		&summary.Failed,
		&summary.AverageLength,
		&avgSeconds,
	)
	if err != nil {
		return construction.Summary{}, s.wrapError(err)
	}
	summary.AverageDuration = time.Duration(avgSeconds * float64(time.Second))
	return summary, nil
}

func (s *ReportStore) buildListQuery(filter construction.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`SELECT data FROM %s %s`, s.tableName(), whereClause)

	orderBy := "start_time"
	switch filter.OrderBy {
	case construction.OrderByID:
		orderBy = "id"
	case construction.OrderByLength:
		orderBy = "sequence_length"
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (s *ReportStore) buildCountQuery(filter construction.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, s.tableName(), whereClause), args
}

func (s *ReportStore) buildWhereClause(filter construction.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Model != "" {
		args = append(args, strings.ToLower(filter.Model))
		conditions = append(conditions, fmt.Sprintf("lower(model) = $%d", len(args)))
	}
	if filter.Strategy != "" {
		args = append(args, filter.Strategy)
		conditions = append(conditions, fmt.Sprintf("strategy = $%d", len(args)))
	}
	if !filter.FromTime.IsZero() {
		args = append(args, filter.FromTime)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !filter.ToTime.IsZero() {
		args = append(args, filter.ToTime)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// wrapError tags driver errors with the domain connection error. Context
// errors pass through untouched.
func (s *ReportStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(construction.ErrConnectionFailed, err)
}

// Close releases the pool.
func (s *ReportStore) Close() error {
	s.pool.Close()
	return nil
}

var (
	_ construction.Store           = (*ReportStore)(nil)
	_ construction.SummaryProvider = (*ReportStore)(nil)
)
