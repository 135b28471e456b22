package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client used for loading artifacts.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3State implements State backed by an S3 object.
type S3State struct {
	bucket string
	key    string
	s3     ObjectGetter
}

func NewS3State(s3Client ObjectGetter, bucket, key string) *S3State {
	return &S3State{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3State) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
