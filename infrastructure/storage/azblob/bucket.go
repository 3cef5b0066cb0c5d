// Package azblob provides an Azure Blob Storage container for the object
// artifact store.
package azblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	azstorage "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/felixgeelhaar/tastate/infrastructure/storage/objectstore"
)

// API is the subset of the blob client the bucket uses. UploadStream,
// DownloadStream and DeleteBlob match *azstorage.Client.
type API interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azstorage.UploadStreamOptions) (azstorage.UploadStreamResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azstorage.DownloadStreamOptions) (azstorage.DownloadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azstorage.DeleteBlobOptions) (azstorage.DeleteBlobResponse, error)
	BlobProperties(ctx context.Context, containerName, blobName string) (blob.GetPropertiesResponse, error)
}

// Config configures the container.
type Config struct {
	// Container is the blob container name.
	Container string

	// Account is the storage account name.
	Account string

	// AccountKey selects shared key authentication.
	AccountKey string

	// ConnectionString takes precedence over Account and AccountKey.
	ConnectionString string

	// Endpoint overrides the service URL (Azurite, sovereign clouds).
	Endpoint string
}

// Bucket implements objectstore.Bucket on a blob container.
type Bucket struct {
	api       API
	container string
}

// NewBucket creates a blob client. Without a key or connection string the
// default Azure credential chain is used.
func NewBucket(_ context.Context, cfg Config) (*Bucket, error) {
	if cfg.Container == "" {
		return nil, errors.New("azblob: container name is required")
	}
	if cfg.Account == "" && cfg.ConnectionString == "" {
		return nil, errors.New("azblob: account name or connection string is required")
	}

	serviceURL := cfg.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	}

	var client *azstorage.Client
	var err error
	switch {
	case cfg.ConnectionString != "":
		client, err = azstorage.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountKey != "":
		var cred *azstorage.SharedKeyCredential
		cred, err = azstorage.NewSharedKeyCredential(cfg.Account, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("azblob: failed to create shared key credential: %w", err)
		}
		client, err = azstorage.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("azblob: failed to create default credential: %w", credErr)
		}
		client, err = azstorage.NewClient(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("azblob: failed to create client: %w", err)
	}

	return NewBucketWithAPI(clientAPI{client}, cfg.Container), nil
}

// NewBucketWithAPI binds an existing client to a container.
func NewBucketWithAPI(api API, container string) *Bucket {
	return &Bucket{api: api, container: container}
}

// Put uploads a block blob.
func (b *Bucket) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	opts := &azstorage.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := b.api.UploadStream(ctx, b.container, key, content, opts); err != nil {
		return fmt.Errorf("azblob: failed to upload blob: %w", err)
	}
	return nil
}

// Get opens a blob for reading.
func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := b.api.DownloadStream(ctx, b.container, key, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Join(objectstore.ErrObjectNotFound, err)
		}
		return nil, fmt.Errorf("azblob: failed to download blob: %w", err)
	}
	return resp.Body, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.api.DeleteBlob(ctx, b.container, key, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("azblob: failed to delete blob: %w", err)
	}
	return nil
}

// Exists reports whether a blob exists.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.BlobProperties(ctx, b.container, key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("azblob: failed to get blob properties: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// clientAPI adds BlobProperties to the SDK client.
type clientAPI struct {
	*azstorage.Client
}

func (c clientAPI) BlobProperties(ctx context.Context, containerName, blobName string) (blob.GetPropertiesResponse, error) {
	return c.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobName).GetProperties(ctx, nil)
}

var _ objectstore.Bucket = (*Bucket)(nil)
