// Package s3 provides an Amazon S3 bucket for the object artifact store.
// Any S3-compatible endpoint works through Config.Endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/felixgeelhaar/tastate/infrastructure/storage/objectstore"
)

// API is the subset of the S3 client the bucket uses.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// Config configures the S3 bucket.
type Config struct {
	// Bucket is the bucket name.
	Bucket string

	// Region is the AWS region (default us-east-1).
	Region string

	// Endpoint overrides the service endpoint for S3-compatible stores.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. The
	// default credential chain is used when either is empty.
	AccessKeyID     string
	SecretAccessKey string
}

// Bucket implements objectstore.Bucket on an S3 bucket.
type Bucket struct {
	api    API
	bucket string
}

// NewBucket loads the AWS configuration and creates an S3 client.
func NewBucket(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewBucketWithAPI(awss3.NewFromConfig(awsCfg, clientOpts...), cfg.Bucket), nil
}

// NewBucketWithAPI binds an existing client to a bucket.
func NewBucketWithAPI(api API, bucket string) *Bucket {
	return &Bucket{api: api, bucket: bucket}
}

// Put uploads an object.
func (b *Bucket) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   content,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := b.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3: failed to put object: %w", err)
	}
	return nil
}

// Get opens an object for reading.
func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Join(objectstore.ErrObjectNotFound, err)
		}
		return nil, fmt.Errorf("s3: failed to get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes an object. S3 does not report missing keys on delete.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: failed to delete object: %w", err)
	}
	return nil
}

// Exists reports whether an object exists.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3: failed to head object: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

var _ objectstore.Bucket = (*Bucket)(nil)
