package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Signer issues presigned GET URLs for objects in one bucket
type S3Signer struct {
	client *s3.S3
	bucket string
}

// NewS3Signer creates a signer using the default AWS credential chain
func NewS3Signer(region, bucket string) (*S3Signer, error) {
	if region == "" || bucket == "" {
		return nil, ErrNotConfigured
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Signer{client: s3.New(sess), bucket: bucket}, nil
}

// SignURL returns a presigned URL for path that expires after ttl
func (s *S3Signer) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(path, "/")),
	})
	req.SetContext(ctx)

	uri, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", path, err)
	}
	return uri, nil
}
