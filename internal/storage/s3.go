package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kenchrcum/selfencrypt/internal/config"
)

// S3 is a Storage collaborator backed by an S3-compatible bucket. Chunks are
// objects named by the hex encoding of their storage name (the hash of
// their ciphertext), so puts are naturally idempotent: re-uploading the same
// ciphertext is a no-op keyed by its own content.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3-backed Storage from cfg, pointed at a specific
// S3-compatible provider (AWS, MinIO, Wasabi, ...) per providers.go.
func NewS3(ctx context.Context, cfg config.BackendConfig) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: s3 backend requires a bucket")
	}

	endpoint, region, err := ValidateProviderConfig(cfg.Endpoint, cfg.Provider, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Provider != "aws" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = RequiresPathStyleAddressing(cfg.Provider)
		})
	}

	return &S3{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

func objectKey(name []byte) string {
	return "chunks/" + hex.EncodeToString(name)
}

// Get implements selfenc.Storage.
func (s *S3) Get(ctx context.Context, name []byte) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %x: %w", name, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put implements selfenc.Storage.
func (s *S3) Put(ctx context.Context, name []byte, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("storage: put %x: %w", name, err)
	}
	return nil
}

// Delete implements selfenc.Storage.
func (s *S3) Delete(ctx context.Context, name []byte) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: delete %x: %w", name, err)
	}
	return nil
}
