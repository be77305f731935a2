package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/choplife/choplifeib/internal/config"
)

// S3 stores objects in an S3 (or S3-compatible) bucket.
type S3 struct {
	client    *s3.S3
	bucket    string
	publicURL string
}

func NewS3(cfg config.Storage) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.S3Region)}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.S3AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" || strings.HasPrefix(publicURL, "/") {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return &S3{client: s3.New(sess), bucket: cfg.S3Bucket, publicURL: publicURL}, nil
}

func (s *S3) Save(ctx context.Context, key, contentType string, r io.Reader) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read object: %w", err)
		}
		body = bytes.NewReader(data)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

func (s *S3) URL(key string) string {
	return s.publicURL + "/" + key
}
