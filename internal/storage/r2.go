// Package storage reads résumé files from a Cloudflare R2 bucket through the
// S3 API.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/muhammadolammi/atsresume/internal/retry"
)

var ErrObjectNotFound = errors.New("object not found")

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type R2 struct {
	client ObjectAPI
	bucket string
	policy retry.Policy
}

// NewR2 builds an S3 client pointed at the account's R2 endpoint.
func NewR2(ctx context.Context, cfg R2Config) (*R2, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return NewWithClient(client, cfg.Bucket), nil
}

func NewWithClient(client ObjectAPI, bucket string) *R2 {
	return &R2{client: client, bucket: bucket, policy: retry.Default}
}

// WithRetryPolicy returns a copy of r using p for transient failures.
func (r *R2) WithRetryPolicy(p retry.Policy) *R2 {
	cp := *r
	cp.policy = p
	return &cp
}

// ObjectInfo is the metadata needed to admit an object as a résumé.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// Stat reads an object's metadata without downloading it.
func (r *R2) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	return retry.Do(ctx, r.policy, func() (ObjectInfo, error) {
		out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return ObjectInfo{}, classify(key, err)
		}
		return ObjectInfo{
			Key:         key,
			ContentType: aws.ToString(out.ContentType),
			Size:        aws.ToInt64(out.ContentLength),
		}, nil
	})
}

// Download fetches the object body.
func (r *R2) Download(ctx context.Context, key string) ([]byte, error) {
	return retry.Do(ctx, r.policy, func() ([]byte, error) {
		out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, classify(key, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read object body: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// classify turns missing-object responses into a permanent ErrObjectNotFound
// so they are not retried.
func classify(key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return retry.Permanent(fmt.Errorf("%w: %s", ErrObjectNotFound, key))
	}
	return fmt.Errorf("failed to get object %s: %w", key, err)
}

// Object returns a lazy file handle for key; the body is downloaded each time
// the handle is opened.
func (r *R2) Object(info ObjectInfo) *ObjectFile {
	return &ObjectFile{store: r, info: info}
}

// ObjectFile is a résumé handle backed by an R2 object.
type ObjectFile struct {
	store *R2
	info  ObjectInfo
}

func (f *ObjectFile) Name() string      { return path.Base(f.info.Key) }
func (f *ObjectFile) MediaType() string { return f.info.ContentType }
func (f *ObjectFile) Size() int64       { return f.info.Size }
func (f *ObjectFile) Key() string       { return f.info.Key }

func (f *ObjectFile) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := f.store.Download(ctx, f.info.Key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
