package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/BartekS5/commentflow/pkg/models"
)

// DefaultEndpoint is the S3-compatible XML API of Cloud Storage (HMAC keys).
const DefaultEndpoint = "storage.googleapis.com"

// S3Config configures an S3-compatible object store.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// S3Store implements the pipeline object store on top of minio-go.
type S3Store struct {
	client *minio.Client
	cfg    S3Config
}

// NewS3Store creates a client; it does not contact the endpoint.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, wrapError(CodeAuthInvalid, errors.New("access key id and secret access key are required"))
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, wrapError(CodeUnreachable, fmt.Errorf("create minio client: %w", err))
	}
	return &S3Store{client: client, cfg: cfg}, nil
}

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context, bucket string) error {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return classify(err, CodeUnreachable)
	}
	if !ok {
		return wrapError(CodeBucketNotFound, fmt.Errorf("bucket %s", bucket))
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, ref models.ObjectRef, data []byte, contentType string) error {
	if ref.Bucket == "" || ref.Key == "" {
		return wrapError(CodeWriteFailed, errors.New("bucket and key are required"))
	}
	_, err := s.client.PutObject(ctx, ref.Bucket, ref.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return classify(err, CodeWriteFailed)
}

func (s *S3Store) Exists(ctx context.Context, ref models.ObjectRef) (bool, error) {
	_, err := s.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	err = classify(err, CodeReadFailed)
	var se *Error
	if errors.As(err, &se) && se.Code == CodeObjectNotFound {
		return false, nil
	}
	return false, err
}

func (s *S3Store) Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, ref.Bucket, ref.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, CodeReadFailed)
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classify(err, CodeReadFailed)
	}
	return obj, nil
}
