// Package s3store provides a blob store backed by an S3-compatible object
// store, using the AWS SDK for Go v2. Retrieval references are derived
// deterministically from the bucket configuration, so Resolve needs no
// network call.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// Config holds connection settings for an S3-compatible object store.
// Endpoint is optional; when set it overrides the AWS default (for MinIO
// and other compatible stores) and path-style addressing is used.
// PublicURL is the base under which objects are reachable by clients.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store provides object-store blob operations for one namespace. Keys are
// stored under the configured prefix inside the bucket.
type Store struct {
	client  API
	bucket  string
	prefix  string
	baseURL string
}

// New builds an S3 client from cfg and returns a Store scoped to the
// given object prefix ("books/" or "covers/").
func New(ctx context.Context, cfg Config, prefix string) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg, prefix), nil
}

// NewWithClient returns a Store using a caller-supplied S3 client.
func NewWithClient(client API, cfg Config, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	baseURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if baseURL == "" && cfg.Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		baseURL: baseURL,
	}
}

func (s *Store) objectKey(key string) string {
	return s.prefix + key
}

// countingReader tracks how many bytes the SDK consumed during upload.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Put uploads content under key, overwriting any previous object. The
// etag is the one reported by the backend.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (biblioteca.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return biblioteca.PutResult{}, err
	}

	if !biblioteca.IsValidKey(key) {
		return biblioteca.PutResult{}, fmt.Errorf("key %q: %w", key, biblioteca.ErrAccessDenied)
	}

	counted := &countingReader{r: content}
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        counted,
		ContentType: aws.String(biblioteca.ContentTypeForKey(key)),
	})
	if err != nil {
		return biblioteca.PutResult{}, fmt.Errorf("put object %q: %w", key, err)
	}

	return biblioteca.PutResult{
		BytesWritten: counted.n,
		Etag:         strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// Get fetches an object's content, for formats that must be proxied
// through the service rather than linked directly.
// Returns biblioteca.ErrNotFound if the key is absent.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !biblioteca.IsValidKey(key) {
		return nil, fmt.Errorf("key %q: %w", key, biblioteca.ErrAccessDenied)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, biblioteca.ErrNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}

	return out.Body, nil
}

// Resolve derives the public URL for key from the bucket configuration.
// No network call is made; whether the URL is actually served is up to
// the bucket's access policy.
func (s *Store) Resolve(key string) biblioteca.Reference {
	return biblioteca.Reference{
		URL:     s.baseURL + "/" + s.objectKey(key),
		Proxied: false,
	}
}

// Delete removes an object. S3 deletes are idempotent; an absent key is
// not an error, matching the "already absent is success" contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !biblioteca.IsValidKey(key) {
		return fmt.Errorf("key %q: %w", key, biblioteca.ErrAccessDenied)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}

	return nil
}

// Keys lists the storage keys of all objects under the namespace prefix.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	var continuationToken *string

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range out.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	return keys, nil
}
