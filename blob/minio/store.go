// Package minio provides a Minio-backed blob store. Refs are object keys
// within a single bucket.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.jetify.com/typeid/v2"

	"github.com/tributo/courier/blob"
)

// compile-time interface check.
var _ blob.Store = (*Store)(nil)

// Store is a Minio-backed blob.Store.
type Store struct {
	client *minio.Client
	bucket string
}

// Config holds Minio store settings.
type Config struct {
	// Endpoint is the host:port of the Minio server. Required.
	Endpoint string

	// AccessKey and SecretKey authenticate against the server.
	AccessKey string
	SecretKey string

	// Bucket is the bucket all blobs live in. Required.
	Bucket string

	// UseSSL enables TLS to the server.
	UseSSL bool
}

// New creates a Minio blob store, creating the bucket when it is missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: make bucket: %w", err)
		}
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data under a fresh key and returns it as the ref.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	tid, err := typeid.Generate("blob")
	if err != nil {
		return "", fmt.Errorf("minio: generate ref: %w", err)
	}
	ref := tid.String()

	_, err = s.client.PutObject(ctx, s.bucket, ref,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("minio: put %s: %w", ref, err)
	}
	return ref, nil
}

// Get downloads the object named by ref.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("minio: read %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the object named by ref. Minio deletes are idempotent.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: delete %s: %w", ref, err)
	}
	return nil
}
