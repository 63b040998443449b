// Package s3 provides an AWS S3-backed blob store. Refs are object keys
// within a single bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.jetify.com/typeid/v2"

	"github.com/tributo/courier/blob"
)

// compile-time interface check.
var _ blob.Store = (*Store)(nil)

// API is the subset of the S3 client the store uses. Narrowed for test
// doubles.
type API interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Store is an S3-backed blob.Store.
type Store struct {
	client API
	bucket string
	prefix string
}

// Config holds S3 store settings.
type Config struct {
	// Bucket is the bucket all blobs live in. Required.
	Bucket string

	// Prefix is an optional key prefix (e.g. "courier/").
	Prefix string

	// Region overrides the default AWS region resolution.
	Region string
}

// New creates an S3 blob store using the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	return &Store{
		client: awss3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// NewWithClient creates an S3 blob store with a caller-supplied client.
func NewWithClient(client API, cfg Config) *Store {
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Put uploads data under a fresh key and returns it as the ref.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	tid, err := typeid.Generate("blob")
	if err != nil {
		return "", fmt.Errorf("s3: generate ref: %w", err)
	}
	ref := tid.String()

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + ref),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", ref, err)
	}
	return ref, nil
}

// Get downloads the object named by ref.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + ref),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("s3: get %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the object named by ref. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + ref),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", ref, err)
	}
	return nil
}
