// Package storage reserves object-store space for new archives.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MarkerName is the object written under every archive prefix.
const MarkerName = ".archive"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

// S3Store writes archive markers to an S3 compatible bucket (MinIO in
// development).
type S3Store struct {
	cfg S3Config
}

func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey, s.cfg.SecretKey, "")))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// MarkerKey returns the marker object key for an archive prefix.
func MarkerKey(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + MarkerName
}

// Reserve writes an empty marker object under prefix.
func (s *S3Store) Reserve(ctx context.Context, prefix string) error {
	c, err := s.client(ctx)
	if err != nil {
		return fmt.Errorf("s3 config: %w", err)
	}

	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(MarkerKey(prefix)),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", MarkerKey(prefix), err)
	}
	return nil
}

// Discard accepts every reservation without storing anything. It stands in
// when no bucket is configured.
type Discard struct{}

func (Discard) Reserve(context.Context, string) error { return nil }
