// Package storage is the object storage adapter: report bytes are kept in an
// S3-compatible bucket and addressed by storage key.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/logging"
	sc "github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/sethvargo/go-retry"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 2

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options tune an S3Store.
type Options struct {
	Bucket string
	// UseSSE requests AES256 server-side encryption on put.
	UseSSE     bool
	MaxRetries uint64
	RetryBase  time.Duration
	RetryCap   time.Duration
}

// Object is a downloaded object.
type Object struct {
	Body        []byte
	ContentType string
}

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// S3Store implements report object storage on top of an S3-compatible API.
type S3Store struct {
	client    s3API
	presigner presigner
	opts      Options
	logger    logging.Logger
}

// New wraps an existing client. presigner may be nil when PresignGet is unused.
func New(client s3API, p presigner, opts Options, logger logging.Logger) *S3Store {
	if opts.RetryCap < opts.RetryBase {
		opts.RetryCap = opts.RetryBase
	}
	return &S3Store{client: client, presigner: p, opts: opts, logger: logger}
}

// NewS3Store builds a store from server configuration: static credentials,
// custom base endpoint and optional path-style addressing (MinIO).
func NewS3Store(ctx context.Context, cfg *sc.Config, logger logging.Logger) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return New(client, s3.NewPresignClient(client), Options{
		Bucket:     cfg.S3Bucket,
		UseSSE:     cfg.S3UseSSE,
		MaxRetries: DefaultMaxRetries,
		RetryBase:  cfg.StorageRetryBase,
		RetryCap:   cfg.StorageRetryCap,
	}, logger), nil
}

// Bucket returns the configured bucket name.
func (s *S3Store) Bucket() string {
	return s.opts.Bucket
}

// backoff waits min(base*attempt, cap) before each retry.
func (s *S3Store) backoff() retry.Backoff {
	var attempt int64
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return s.opts.RetryBase * time.Duration(attempt), false
	})
	return retry.WithMaxRetries(s.opts.MaxRetries, retry.WithCappedDuration(s.opts.RetryCap, b))
}

func (s *S3Store) do(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isNotFound(err) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn(ctx, "storage attempt failed", "op", op, "key", key, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w", op, key, common.ErrorNotFound)
	}
	if errors.Is(err, common.ErrorEmptyObject) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", common.ErrorServiceUnavailable, op, key, err)
}

// Put stores body under key. Metadata becomes x-amz-meta-* headers.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	return s.do(ctx, "put", key, func(ctx context.Context) error {
		in := &s3.PutObjectInput{
			Bucket:        aws.String(s.opts.Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			ContentType:   aws.String(contentType),
			Metadata:      metadata,
		}
		if s.opts.UseSSE {
			in.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
		_, err := s.client.PutObject(ctx, in)
		return err
	})
}

// Get downloads the object. A zero-length body counts as a failed attempt
// and ends in common.ErrorEmptyObject once retries run out.
func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	var obj *Object
	err := s.do(ctx, "get", key, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		body, err := io.ReadAll(out.Body)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return common.ErrorEmptyObject
		}

		obj = &Object{Body: body, ContentType: aws.ToString(out.ContentType)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.do(ctx, "delete", key, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(key),
		})
		return err
	})
}

// List returns the objects whose keys start with prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var result []ObjectInfo

	err := s.do(ctx, "list", prefix, func(ctx context.Context) error {
		result = result[:0]
		var token *string
		for {
			out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.opts.Bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: token,
			})
			if err != nil {
				return err
			}
			for _, o := range out.Contents {
				result = append(result, ObjectInfo{
					Key:          aws.ToString(o.Key),
					Size:         aws.ToInt64(o.Size),
					LastModified: aws.ToTime(o.LastModified),
				})
			}
			if !aws.ToBool(out.IsTruncated) {
				return nil
			}
			token = out.NextContinuationToken
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Exists reports whether an object with exactly this key is present.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	objects, err := s.List(ctx, key)
	if err != nil {
		return false, err
	}
	for _, o := range objects {
		if o.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("%w: presigning not configured", common.ErrorInternal)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.opts.Bucket)}); err != nil {
		return fmt.Errorf("%w: head bucket %s: %w", common.ErrorServiceUnavailable, s.opts.Bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
