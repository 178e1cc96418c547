// Package s3 is a Source over the objects of an S3 bucket, optionally below
// a key prefix. It registers the "s3" scheme:
//
//	s3://bucket/prefix/?region=eu-west-1&endpoint=http://localhost:9000&path_style=true
//
// Credentials come from the default AWS chain unless access_key and
// secret_key are given in the query.
package s3

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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gobeaver/lockscan/source"
)

func init() {
	source.Register("s3", func(ctx context.Context, u *url.URL) (source.Source, error) {
		cfg, err := ParseURL(u)
		if err != nil {
			return nil, err
		}
		client, err := NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return New(client, cfg.Bucket, WithPrefix(cfg.Prefix)), nil
	})
}

// Config holds the connection settings of an S3 source
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// ParseURL reads a Config from an s3:// URL
func ParseURL(u *url.URL) (Config, error) {
	if u.Host == "" {
		return Config{}, errors.New("S3 bucket is required")
	}

	q := u.Query()
	cfg := Config{
		Bucket:          u.Host,
		Prefix:          source.Prefix(u.Path),
		Region:          q.Get("region"),
		Endpoint:        q.Get("endpoint"),
		AccessKeyID:     q.Get("access_key"),
		SecretAccessKey: q.Get("secret_key"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if v := q.Get("path_style"); v != "" {
		pathStyle, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid path_style %q: %w", v, err)
		}
		cfg.ForcePathStyle = pathStyle
	}
	return cfg, nil
}

// NewClient creates an S3 client from config
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}

	// Override with explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// Adapter provides an S3 implementation of source.Source
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix limits the source to keys below prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = source.Prefix(prefix)
	}
}

// New creates an S3 source
func New(client *s3.Client, bucket string, options ...AdapterOption) *Adapter {
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
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(source.Object{Path: strings.TrimSuffix(a.prefix, "/"), Size: -1}, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// Folder placeholders
			if strings.HasSuffix(key, "/") {
				continue
			}

			size := int64(-1)
			if obj.Size != nil {
				size = *obj.Size
			}
			rel := strings.TrimPrefix(key, a.prefix)
			if err := fn(source.Object{Path: rel, Size: size}, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Open implements source.Source
func (a *Adapter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key := path.Join(a.prefix, p)

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(p, err)
	}
	return resp.Body, nil
}

// Close implements source.Source
func (a *Adapter) Close() error {
	return nil
}

func mapS3Error(p string, err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
	}
	return fmt.Errorf("open %s: %w", p, err)
}

var _ source.Source = (*Adapter)(nil)
