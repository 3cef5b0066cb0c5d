package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// reportDocument is the MongoDB document representation of a report.
// ModelKey holds the lower-cased model name for case-insensitive lookups.
type reportDocument struct {
	ID             string                `bson:"_id"`
	Model          string                `bson:"model"`
	ModelKey       string                `bson:"model_key"`
	Locations      []string              `bson:"locations"`
	Variables      map[string]any        `bson:"variables,omitempty"`
	Zone           []string              `bson:"zone,omitempty"`
	Strategy       string                `bson:"strategy"`
	Sequence       []string              `bson:"sequence,omitempty"`
	Witness        map[string]int64      `bson:"witness,omitempty"`
	Exact          bool                  `bson:"exact"`
	Path           []string              `bson:"path,omitempty"`
	Verified       bool                  `bson:"verified"`
	Artifact       string                `bson:"artifact,omitempty"`
	Status         string                `bson:"status"`
	Error          string                `bson:"error,omitempty"`
	Measures       construction.Measures `bson:"measures"`
	SequenceLength int                   `bson:"sequence_length"`
	StartTime      time.Time             `bson:"start_time"`
	EndTime        *time.Time            `bson:"end_time,omitempty"`
}

// ReportStore is a MongoDB-backed implementation of construction.Store.
type ReportStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewReportStore creates a report store on the named collection.
func NewReportStore(client *Client, collectionName string) *ReportStore {
	if collectionName == "" {
		collectionName = "reports"
	}
	return &ReportStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
}

// CollectionName returns the name of the backing collection.
func (s *ReportStore) CollectionName() string {
	return s.collection.Name()
}

// Save persists a new report.
func (s *ReportStore) Save(ctx context.Context, r *construction.Report) error {
	if r.ID == "" {
		return construction.ErrInvalidReportID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, toDocument(r)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return construction.ErrReportExists
		}
		return wrapError(err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (*construction.Report, error) {
	if id == "" {
		return nil, construction.ErrInvalidReportID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc reportDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, construction.ErrReportNotFound
		}
		return nil, wrapError(err)
	}
	return fromDocument(&doc), nil
}

// Delete removes a report by ID.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return construction.ErrInvalidReportID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapError(err)
	}
	if result.DeletedCount == 0 {
		return construction.ErrReportNotFound
	}
	return nil
}

// List returns reports matching the filter.
func (s *ReportStore) List(ctx context.Context, filter construction.ListFilter) ([]*construction.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, buildFilter(filter), buildFindOptions(filter))
	if err != nil {
		return nil, wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	reports := []*construction.Report{}
	for cursor.Next(ctx) {
		var doc reportDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, wrapError(err)
		}
		reports = append(reports, fromDocument(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapError(err)
	}
	return reports, nil
}

// Count returns the number of reports matching the filter.
func (s *ReportStore) Count(ctx context.Context, filter construction.ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, wrapError(err)
	}
	return count, nil
}

// Summary returns aggregate statistics computed by an aggregation pipeline.
func (s *ReportStore) Summary(ctx context.Context, filter construction.ListFilter) (construction.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	countStatus := func(status construction.Status) bson.D {
		return bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$cond", Value: bson.A{bson.D{{Key: "$eq", Value: bson.A{"$status", string(status)}}}, 1, 0}},
		}}}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: buildFilter(filter)}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "completed", Value: countStatus(construction.StatusCompleted)},
			{Key: "failed", Value: countStatus(construction.StatusFailed)},
			{Key: "avg_length", Value: bson.D{{Key: "$avg", Value: "$sequence_length"}}},
			{Key: "avg_duration", Value: bson.D{{Key: "$avg", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$end_time", false}}},
					bson.D{{Key: "$subtract", Value: bson.A{"$end_time", "$start_time"}}},
					nil,
				}},
			}}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return construction.Summary{}, wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var summary construction.Summary
	if cursor.Next(ctx) {
		var result struct {
			Total       int64   `bson:"total"`
			Completed   int64   `bson:"completed"`
			Failed      int64   `bson:"failed"`
			AvgLength   float64 `bson:"avg_length"`
			AvgDuration float64 `bson:"avg_duration"`
		}
		if err := cursor.Decode(&result); err != nil {
			return construction.Summary{}, wrapError(err)
		}
		summary.Total = result.Total
		summary.Completed = result.Completed
		summary.Failed = result.Failed
		summary.AverageLength = result.AvgLength
		// Date subtraction yields milliseconds.
		summary.AverageDuration = time.Duration(result.AvgDuration * float64(time.Millisecond))
	}
	return summary, nil
}

func buildFilter(filter construction.ListFilter) bson.M {
	m := bson.M{}

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		m["status"] = bson.M{"$in": statuses}
	}
	if filter.Model != "" {
		m["model_key"] = strings.ToLower(filter.Model)
	}
	if filter.Strategy != "" {
		m["strategy"] = filter.Strategy
	}

	startTime := bson.M{}
	if !filter.FromTime.IsZero() {
		startTime["$gte"] = filter.FromTime
	}
	if !filter.ToTime.IsZero() {
		startTime["$lte"] = filter.ToTime
	}
	if len(startTime) > 0 {
		m["start_time"] = startTime
	}
	return m
}

func buildFindOptions(filter construction.ListFilter) *options.FindOptions {
	opts := options.Find()

	sortField := "start_time"
	switch filter.OrderBy {
	case construction.OrderByID:
		sortField = "_id"
	case construction.OrderByLength:
		sortField = "sequence_length"
	}

	sortDir := 1
	if filter.Descending {
		sortDir = -1
	}
	opts.SetSort(bson.D{{Key: sortField, Value: sortDir}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	return opts
}

func toDocument(r *construction.Report) *reportDocument {
	doc := &reportDocument{
		ID:             r.ID,
		Model:          r.Model,
		ModelKey:       strings.ToLower(r.Model),
		Locations:      r.Locations,
		Variables:      r.Variables,
		Zone:           r.Zone,
		Strategy:       r.Strategy,
		Sequence:       r.Sequence,
		Witness:        r.Witness,
		Exact:          r.Exact,
		Path:           r.Path,
		Verified:       r.Verified,
		Artifact:       r.Artifact,
		Status:         string(r.Status),
		Error:          r.Error,
		Measures:       r.Measures,
		SequenceLength: r.Measures.SequenceLength,
		StartTime:      r.StartTime,
	}
	if !r.EndTime.IsZero() {
		end := r.EndTime
		doc.EndTime = &end
	}
	return doc
}

func fromDocument(doc *reportDocument) *construction.Report {
	r := &construction.Report{
		ID:        doc.ID,
		Model:     doc.Model,
		Locations: doc.Locations,
		Variables: doc.Variables,
		Zone:      doc.Zone,
		Strategy:  doc.Strategy,
		Sequence:  doc.Sequence,
		Witness:   doc.Witness,
		Exact:     doc.Exact,
		Path:      doc.Path,
		Verified:  doc.Verified,
		Artifact:  doc.Artifact,
		Status:    construction.Status(doc.Status),
		Error:     doc.Error,
		Measures:  doc.Measures,
		StartTime: doc.StartTime,
	}
	if doc.EndTime != nil {
		r.EndTime = *doc.EndTime
	}
	return r
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(construction.ErrConnectionFailed, err)
}

var (
	_ construction.Store           = (*ReportStore)(nil)
	_ construction.SummaryProvider = (*ReportStore)(nil)
)
