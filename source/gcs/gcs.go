// Package gcs is a Source over the objects of a Google Cloud Storage
// bucket. It registers the "gs" scheme:
//
//	gs://bucket/prefix/?endpoint=http://localhost:4443/storage/v1/&anonymous=true
//
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or the default chain.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gobeaver/lockscan/source"
)

func init() {
	source.Register("gs", func(ctx context.Context, u *url.URL) (source.Source, error) {
		cfg, err := ParseURL(u)
		if err != nil {
			return nil, err
		}

		client, err := storage.NewClient(ctx, cfg.ClientOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}

		a := New(client, cfg.Bucket, WithPrefix(cfg.Prefix))
		a.ownsClient = true
		return a, nil
	})
}

// Config holds the connection settings of a GCS source
type Config struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Anonymous bool
}

// ParseURL reads a Config from a gs:// URL
func ParseURL(u *url.URL) (Config, error) {
	if u.Host == "" {
		return Config{}, errors.New("GCS bucket is required")
	}

	q := u.Query()
	cfg := Config{
		Bucket:   u.Host,
		Prefix:   source.Prefix(u.Path),
		Endpoint: q.Get("endpoint"),
	}
	if v := q.Get("anonymous"); v != "" {
		anonymous, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid anonymous %q: %w", v, err)
		}
		cfg.Anonymous = anonymous
	}
	return cfg, nil
}

// ClientOptions converts the config into storage client options
func (c Config) ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	return opts
}

// Adapter provides a Google Cloud Storage implementation of source.Source
type Adapter struct {
	client     *storage.Client
	bucket     string
	prefix     string
	ownsClient bool
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix limits the source to objects below prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = source.Prefix(prefix)
	}
}

// New creates a GCS source. The client stays owned by the caller.
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}
	for _, option := range options {
		option(adapter)
	}
	return adapter
}

// Walk implements source.Source
func (a *Adapter) Walk(ctx context.Context, fn source.WalkFunc) error {
	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{
		Prefix: a.prefix,
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(source.Object{Path: strings.TrimSuffix(a.prefix, "/"), Size: -1}, err)
		}

		// Folder placeholders
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		rel := strings.TrimPrefix(attrs.Name, a.prefix)
		if err := fn(source.Object{Path: rel, Size: attrs.Size}, nil); err != nil {
			return err
		}
	}
}

// Open implements source.Source
func (a *Adapter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	name := path.Join(a.prefix, p)

	reader, err := a.client.Bucket(a.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return reader, nil
}

// Close implements source.Source. It closes the client only when the
// source created it.
func (a *Adapter) Close() error {
	if a.ownsClient {
		return a.client.Close()
	}
	return nil
}

var _ source.Source = (*Adapter)(nil)
