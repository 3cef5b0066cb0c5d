package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/tastate/domain/cache"
)

const (
	attrKey     = "key"
	attrExpires = "expires_at"

	// batchWriteLimit is the most requests one BatchWriteItem accepts.
	batchWriteLimit = 25
)

// item is one cached synthesis result.
type item struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

func (i item) expired(now time.Time) bool {
	return i.ExpiresAt > 0 && now.Unix() > i.ExpiresAt
}

// Cache is a DynamoDB-backed implementation of cache.Cache.
type Cache struct {
	client       *dynamodb.Client
	tableName    string
	queryTimeout time.Duration
	now          func() time.Time
	hits         atomic.Int64
	misses       atomic.Int64
}

// NewCache connects to DynamoDB and, when asked, creates the cache table.
func NewCache(ctx context.Context, cfg Config, opts ...ConfigOption) (*Cache, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	if cfg.CreateTable {
		if err := createTable(ctx, client, cfg.TableName); err != nil {
			return nil, fmt.Errorf("create table %s: %w", cfg.TableName, err)
		}
	}
	return NewCacheFromClient(client, cfg.TableName, cfg.QueryTimeout), nil
}

// NewCacheFromClient creates a cache on an existing client.
func NewCacheFromClient(client *dynamodb.Client, tableName string, queryTimeout time.Duration) *Cache {
	if queryTimeout <= 0 {
		queryTimeout = DefaultConfig().QueryTimeout
	}
	return &Cache{
		client:       client,
		tableName:    tableName,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

// Get retrieves a cached value by key. Expired items count as misses and
// are deleted.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       keyOf(key),
	})
	if err != nil {
		return nil, false, c.wrapError(err)
	}
	if out.Item == nil {
		c.misses.Add(1)
		return nil, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, false, fmt.Errorf("decode cache item: %w", err)
	}
	if it.expired(c.now()) {
		c.misses.Add(1)
		_, _ = c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(c.tableName),
			Key:       keyOf(key),
		})
		return nil, false, nil
	}

	c.hits.Add(1)
	return it.Value, true, nil
}

// Set stores a value in the cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	av, err := c.marshal(key, value, opts.TTL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	})
	return c.wrapError(err)
}

func (c *Cache) marshal(key string, value []byte, ttl time.Duration) (map[string]types.AttributeValue, error) {
	it := item{Key: key, Value: value}
	if ttl > 0 {
		it.ExpiresAt = c.now().Add(ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("encode cache item: %w", err)
	}
	return av, nil
}

// Delete removes a cached entry by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       keyOf(key),
	})
	return c.wrapError(err)
}

// Exists reports whether an unexpired entry exists for key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	expr, err := projection(attrKey, attrExpires)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(c.tableName),
		Key:                      keyOf(key),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return false, c.wrapError(err)
	}
	if out.Item == nil {
		return false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return false, fmt.Errorf("decode cache item: %w", err)
	}
	return !it.expired(c.now()), nil
}

// Clear scans the table and deletes every item in batches.
func (c *Cache) Clear(ctx context.Context) error {
	expr, err := projection(attrKey)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var lastKey map[string]types.AttributeValue
	for {
		out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(c.tableName),
			ExclusiveStartKey:        lastKey,
			ProjectionExpression:     expr.Projection(),
			ExpressionAttributeNames: expr.Names(),
		})
		if err != nil {
			return c.wrapError(err)
		}

		for _, batch := range deleteBatches(c.tableName, out.Items) {
			if _, err := c.client.BatchWriteItem(ctx, batch); err != nil {
				return c.wrapError(err)
			}
		}

		if out.LastEvaluatedKey == nil {
			return nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

// projection builds a projection expression over the named attributes.
// "key" is a reserved word, so the names are always aliased.
func projection(names ...string) (expression.Expression, error) {
	if len(names) == 0 {
		return expression.Expression{}, errors.New("projection needs at least one attribute")
	}
	proj := expression.NamesList(expression.Name(names[0]))
	for _, n := range names[1:] {
		proj = proj.AddNames(expression.Name(n))
	}
	return expression.NewBuilder().WithProjection(proj).Build()
}

// deleteBatches groups delete requests for items into BatchWriteItem
// inputs of at most batchWriteLimit requests.
func deleteBatches(table string, items []map[string]types.AttributeValue) []*dynamodb.BatchWriteItemInput {
	var batches []*dynamodb.BatchWriteItemInput
	for start := 0; start < len(items); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(items))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, it := range items[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{attrKey: it[attrKey]},
				},
			})
		}
		batches = append(batches, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: reqs},
		})
	}
	return batches
}

// Stats returns hit and miss counts. Size would need a full scan and is
// not reported.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Close is a no-op; the SDK client holds no connections that need release.
func (c *Cache) Close() error {
	return nil
}

// wrapError maps timeouts and throttling onto cache.ErrOperationTimeout.
func (c *Cache) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	var throttled *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	return err
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
