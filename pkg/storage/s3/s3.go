// Package s3 provides a storage backend on Amazon S3 or any S3-compatible
// object store (MinIO, Localstack, Cubbit DS3).
//
// Object layout mirrors the filesystem backend: content bytes live at
// <prefix>data/<pathnamehash> and resource metadata JSON at
// <prefix>meta/<pathnamehash>. S3 PutObject is atomic per key, so a reader
// racing a Replace observes either the old or the new object, never a mix.
// Metadata is written after bytes for the same reason as the filesystem
// backend: metadata must never describe unpublished content.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// S3Backend implements storage.Backend on an S3 bucket.
type S3Backend struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// S3BackendConfig contains configuration for the S3 backend.
type S3BackendConfig struct {
	// Client is the configured S3 client.
	Client *awss3.Client

	// Bucket is the bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "collabora/" results in keys like "collabora/data/abc123".
	KeyPrefix string
}

// NewS3Backend creates the backend and verifies bucket access. The bucket
// is not created if missing.
func NewS3Backend(ctx context.Context, cfg S3BackendConfig) (*S3Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("S3 storage backend initialized: bucket=%s prefix=%s", cfg.Bucket, cfg.KeyPrefix)
	return &S3Backend{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (b *S3Backend) metaKey(hash string) string {
	return b.keyPrefix + "meta/" + hash
}

func (b *S3Backend) dataKey(hash string) string {
	return b.keyPrefix + "data/" + hash
}

// isNotFound reports whether an S3 error means "no such object".
func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

func (b *S3Backend) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *S3Backend) readMeta(ctx context.Context, hash string) (*storage.Resource, error) {
	raw, err := b.getObject(ctx, b.metaKey(hash))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to read resource metadata: %w", err)
	}

	var res storage.Resource
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("corrupt resource metadata for %s: %w", hash, err)
	}
	return &res, nil
}

func (b *S3Backend) putObject(ctx context.Context, key string, content []byte) error {
	_, err := b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	return err
}

func (b *S3Backend) writeResource(ctx context.Context, res *storage.Resource, content []byte) error {
	if err := b.putObject(ctx, b.dataKey(res.PathnameHash), content); err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resource metadata: %w", err)
	}
	if err := b.putObject(ctx, b.metaKey(res.PathnameHash), raw); err != nil {
		return fmt.Errorf("failed to store resource metadata: %w", err)
	}
	return nil
}

func (b *S3Backend) FindByHash(ctx context.Context, hash string) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.readMeta(ctx, hash)
}

func (b *S3Backend) FindByItem(ctx context.Context, component, filearea string, itemID int64) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := b.keyPrefix + "meta/"
	paginator := awss3.NewListObjectsV2Paginator(b.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resource metadata: %w", err)
		}
		for _, obj := range page.Contents {
			hash := aws.ToString(obj.Key)[len(prefix):]
			res, err := b.readMeta(ctx, hash)
			if err != nil {
				continue
			}
			if res.Component == component && res.FileArea == filearea && res.ItemID == itemID {
				return res, nil
			}
		}
	}
	return nil, fmt.Errorf("item %d in %s/%s: %w", itemID, component, filearea, storage.ErrResourceNotFound)
}

func (b *S3Backend) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.dataKey(hash)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return out.Body, nil
}

func (b *S3Backend) Create(ctx context.Context, meta storage.ResourceMeta, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := meta.PathnameHash()
	if _, err := b.readMeta(ctx, hash); err == nil {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceExists)
	} else if !errors.Is(err, storage.ErrResourceNotFound) {
		return nil, err
	}

	now := time.Now()
	res := &storage.Resource{
		ContextID:    meta.ContextID,
		Component:    meta.Component,
		FileArea:     meta.FileArea,
		ItemID:       meta.ItemID,
		FilePath:     meta.FilePath,
		Filename:     meta.Filename,
		Size:         int64(len(content)),
		ContentHash:  storage.ContentHash(content),
		PathnameHash: hash,
		TimeCreated:  now,
		TimeModified: now,
	}

	if err := b.writeResource(ctx, res, content); err != nil {
		return nil, err
	}
	return res, nil
}

func (b *S3Backend) Replace(ctx context.Context, hash string, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := b.readMeta(ctx, hash)
	if err != nil {
		return nil, err
	}

	res.Size = int64(len(content))
	res.ContentHash = storage.ContentHash(content)
	res.TimeModified = time.Now()

	if err := b.writeResource(ctx, res, content); err != nil {
		return nil, err
	}
	return res, nil
}

func (b *S3Backend) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.readMeta(ctx, hash); err != nil {
		return err
	}

	for _, key := range []string{b.dataKey(hash), b.metaKey(hash)} {
		_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}
