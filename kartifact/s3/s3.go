package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/birdayz/tilestreams/kartifact"
)

// Config addresses an S3 compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string
}

// Store publishes artifacts as objects of one bucket.
type Store struct {
	client *minio.Client

	prefix string
	bucket string
}

var _ kartifact.Store = (*Store)(nil)

// New connects to the endpoint and creates the bucket if it does not exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Store{
		client: client,
		prefix: cfg.Prefix,
		bucket: cfg.Bucket,
	}, nil
}

func (s *Store) Put(ctx context.Context, a kartifact.Artifact) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(a.Name), bytes.NewReader(a.Data), int64(len(a.Data)), minio.PutObjectOptions{
		ContentType: a.ContentType,
	})
	return err
}

// Get returns the content of a published artifact.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", s.prefix, name)
}
