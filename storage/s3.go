package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

// S3Backend implements a storage backend using Amazon S3 or compatible services.
// Objects use the same layout as FileBackend under an optional prefix:
//
//	<prefix>/<key prefix>/<key rest>/<value name>
//
// PutObject replaces whole objects, so readers never see partial values.
type S3Backend struct {
	client         *s3.S3
	writeClient    *s3.S3
	bucketName     string
	prefix         string
	namer          *naming.Namer
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// S3Config holds the connection parameters of an S3Backend.
type S3Config struct {
	BucketName string
	Prefix     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string

	// PathStyle forces path-style addressing, needed by most S3-compatible servers.
	PathStyle bool
}

// NewS3Backend creates a new S3 storage backend.
// If AccessKey and SecretKey are provided, the backend will have write access.
// Otherwise, it will be read-only for publicly accessible objects.
func NewS3Backend(cfg S3Config, namer *naming.Namer, log *slog.Logger) (*S3Backend, error) {
	if namer == nil {
		namer = naming.Default
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.BucketName, cfg.Prefix, cfg.Region)
	if cfg.AccessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", cfg.AccessKey, cfg.BucketName, cfg.Prefix, cfg.Region)
	}
	if cfg.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", cfg.Endpoint)
	}

	baseCfg := aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		baseCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	// Public buckets can be read without credentials
	baseSess, err := session.NewSession(baseCfg.Copy().WithCredentials(credentials.AnonymousCredentials))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	readClient := s3.New(baseSess)

	hasWriteAccess := cfg.AccessKey != "" && cfg.SecretKey != ""
	writeClient := readClient

	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")

		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS write session: %w", err)
		}

		writeClient = s3.New(writeSess)
		// Private buckets need credentials for listing as well
		readClient = writeClient
	} else {
		log.Warn("No S3 credentials provided - write operations may fail unless bucket is public writable")
	}

	return &S3Backend{
		client:         readClient,
		writeClient:    writeClient,
		bucketName:     cfg.BucketName,
		prefix:         strings.Trim(cfg.Prefix, "/"),
		namer:          namer,
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Save uploads value. Re-uploading identical bytes to the same key is harmless.
func (b *S3Backend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	objectKey := b.getObjectKey(key, value)

	_, err := b.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		if !b.hasWriteAccess {
			err = fmt.Errorf("no write credentials provided: %w", err)
		}
		return interfaces.NewStoreError("save", objectKey, err)
	}

	b.log.Debug("Stored example in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(value)))

	return nil
}

// Fetch lists the key's objects page by page and downloads each one.
// Objects that fail to download or whose content does not match their name
// are skipped.
func (b *S3Backend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	keyPrefix := b.getKeyPrefix(key) + "/"

	return func(yield func(interfaces.Value) bool) {
		start := time.Now()
		stopped := false

		err := b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(b.bucketName),
			Prefix: aws.String(keyPrefix),
		}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				objectKey := aws.StringValue(obj.Key)
				name := strings.TrimPrefix(objectKey, keyPrefix)
				if !b.namer.IsName(name) {
					continue
				}

				data, err := b.getObject(ctx, objectKey)
				if err != nil {
					b.log.Debug("Skipping unreadable S3 object",
						slog.String("key", objectKey),
						"err", err)
					continue
				}
				if b.namer.NameFor(data) != name {
					b.log.Debug("Skipping S3 object with mismatched content hash", slog.String("key", objectKey))
					continue
				}

				if !yield(data) {
					stopped = true
					return false
				}
			}
			return true
		})

		if err != nil && !stopped {
			b.log.Debug("Failed to list S3 objects",
				slog.String("bucket", b.bucketName),
				slog.String("prefix", keyPrefix),
				"err", err,
				slog.Duration("duration", time.Since(start)))
		}
	}
}

func (b *S3Backend) getObject(ctx context.Context, objectKey string) ([]byte, error) {
	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Delete removes the value's object. S3 reports success for missing objects.
func (b *S3Backend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	objectKey := b.getObjectKey(key, value)

	_, err := b.writeClient.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return interfaces.NewStoreError("delete", objectKey, err)
	}
	return nil
}

func (b *S3Backend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	if err := b.Save(ctx, dest, value); err != nil {
		return err
	}
	if src.Equal(dest) {
		return nil
	}
	return b.Delete(ctx, src, value)
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

// getKeyPrefix returns the object key prefix shared by all values of key.
func (b *S3Backend) getKeyPrefix(key interfaces.Key) string {
	shard, rest := b.namer.Shard(key)
	return path.Join(b.prefix, shard, rest)
}

// getObjectKey generates the S3 object key of value under key.
func (b *S3Backend) getObjectKey(key interfaces.Key, value interfaces.Value) string {
	return path.Join(b.getKeyPrefix(key), b.namer.NameFor(value))
}
