// Package azure is a Source over the blobs of an Azure Blob Storage
// container. It registers the "azblob" scheme:
//
//	azblob://account/container/prefix/?endpoint=http://127.0.0.1:10000/devstoreaccount1
//
// The account key is read from the key query parameter or, when absent,
// from AZURE_STORAGE_KEY. Without a key the container is read anonymously.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/gobeaver/lockscan/source"
)

func init() {
	source.Register("azblob", func(_ context.Context, u *url.URL) (source.Source, error) {
		cfg, err := ParseURL(u)
		if err != nil {
			return nil, err
		}
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return New(client, cfg.ContainerName, WithPrefix(cfg.Prefix)), nil
	})
}

// Config holds the connection settings of an Azure source
type Config struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Prefix        string
	Endpoint      string
}

// ServiceURL returns the blob service URL of the account
func (c Config) ServiceURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
}

// ParseURL reads a Config from an azblob:// URL
func ParseURL(u *url.URL) (Config, error) {
	if u.Host == "" {
		return Config{}, errors.New("azure account name is required")
	}

	containerName, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if containerName == "" {
		return Config{}, errors.New("azure container name is required")
	}

	q := u.Query()
	cfg := Config{
		AccountName:   u.Host,
		AccountKey:    q.Get("key"),
		ContainerName: containerName,
		Prefix:        source.Prefix(prefix),
		Endpoint:      q.Get("endpoint"),
	}
	if cfg.AccountKey == "" {
		cfg.AccountKey = os.Getenv("AZURE_STORAGE_KEY")
	}
	return cfg, nil
}

// NewClient creates a blob client from config
func NewClient(cfg Config) (*azblob.Client, error) {
	if cfg.AccountKey == "" {
		client, err := azblob.NewClientWithNoCredential(cfg.ServiceURL(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure client: %w", err)
		}
		return client, nil
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL(), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}
	return client, nil
}

// Adapter provides an Azure Blob Storage implementation of source.Source
type Adapter struct {
	client        *azblob.Client
	containerName string
	prefix        string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix limits the source to blobs below prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = source.Prefix(prefix)
	}
}

// New creates an Azure source
func New(client *azblob.Client, containerName string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:        client,
		containerName: containerName,
	}
	for _, option := range options {
		option(adapter)
	}
	return adapter
}

// Walk implements source.Source
func (a *Adapter) Walk(ctx context.Context, fn source.WalkFunc) error {
	pager := a.client.NewListBlobsFlatPager(a.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &a.prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(source.Object{Path: strings.TrimSuffix(a.prefix, "/"), Size: -1}, err)
		}

		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil || strings.HasSuffix(*blob.Name, "/") {
				continue
			}

			size := int64(-1)
			if blob.Properties != nil && blob.Properties.ContentLength != nil {
				size = *blob.Properties.ContentLength
			}
			rel := strings.TrimPrefix(*blob.Name, a.prefix)
			if err := fn(source.Object{Path: rel, Size: size}, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Open implements source.Source
func (a *Adapter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	blobName := path.Join(a.prefix, p)

	resp, err := a.client.DownloadStream(ctx, a.containerName, blobName, nil)
	if err != nil {
		return nil, mapAzureError(p, err)
	}
	return resp.Body, nil
}

// Close implements source.Source
func (a *Adapter) Close() error {
	return nil
}

func mapAzureError(p string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}
	return fmt.Errorf("open %s: %w", p, err)
}

var _ source.Source = (*Adapter)(nil)
