// Package dynamodb provides a DynamoDB-backed synthesis result cache.
package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Config contains DynamoDB connection configuration.
type Config struct {
	// Region is the AWS region.
	Region string

	// Endpoint overrides the DynamoDB endpoint (DynamoDB Local, LocalStack).
	Endpoint string

	// QueryTimeout bounds every request.
	QueryTimeout time.Duration

	// TableName is the cache table.
	TableName string

	// CreateTable creates the table on connect when it is missing.
	CreateTable bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Region:       "us-east-1",
		QueryTimeout: 10 * time.Second,
		TableName:    "tastate_cache",
	}
}

// ConfigOption configures the DynamoDB connection.
type ConfigOption func(*Config)

// WithRegion sets the AWS region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) {
		if region != "" {
			c.Region = region
		}
	}
}

// WithEndpoint sets the DynamoDB endpoint.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithQueryTimeout sets the per-request timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.QueryTimeout = d
		}
	}
}

// WithTableName sets the cache table name.
func WithTableName(name string) ConfigOption {
	return func(c *Config) {
		if name != "" {
			c.TableName = name
		}
	}
}

// WithCreateTable creates the cache table on connect.
func WithCreateTable() ConfigOption {
	return func(c *Config) {
		c.CreateTable = true
	}
}

// NewClient loads the default AWS credential chain and returns a DynamoDB
// client for cfg.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}

	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return dynamodb.NewFromConfig(awsCfg, ddbOpts...), nil
}

// tableInput describes the cache table: a string hash key and on-demand
// billing. Expired items are dropped on read.
func tableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(attrKey),
				KeyType:       types.KeyTypeHash,
			},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(attrKey),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}

// createTable creates the cache table unless it already exists and waits
// until it is active.
func createTable(ctx context.Context, client *dynamodb.Client, name string) error {
	_, err := client.CreateTable(ctx, tableInput(name))
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	}, 2*time.Minute)
}
