package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dgallion1/docmerge/internal/generator"
)

// S3Config options for the S3 backend.
type S3Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	Prefix          string // Key prefix, e.g. "docmerge/artifacts"
	AccessKeyID     string // Static credentials, optional
	SecretAccessKey string
	Endpoint        string // Custom endpoint for S3-compatible services
	UsePathStyle    bool
	TTL             time.Duration
}

// objectAPI is the part of the S3 client the cache needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores one JSON object per fingerprint.
type S3 struct {
	client objectAPI
	bucket string
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewS3 builds an S3 client from the default AWS config chain plus cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3(client, cfg.Bucket, cfg.Prefix, cfg.TTL), nil
}

func newS3(client objectAPI, bucket, prefix string, ttl time.Duration) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, ttl: ttl, now: time.Now}
}

func (c *S3) objectKey(key string) string {
	return path.Join(c.prefix, key+".json")
}

func (c *S3) Get(ctx context.Context, key string) ([]generator.Artifact, bool, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, &Error{Backend: "s3", Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, &Error{Backend: "s3", Op: "get", Key: key, Err: err}
	}
	artifacts, ok, err := decodeEntry(key, data, c.now())
	if err != nil {
		return nil, false, &Error{Backend: "s3", Op: "get", Key: key, Err: err}
	}
	return artifacts, ok, nil
}

func (c *S3) Put(ctx context.Context, key string, artifacts []generator.Artifact) error {
	data, err := encodeEntry(key, artifacts, c.ttl, c.now())
	if err != nil {
		return &Error{Backend: "s3", Op: "put", Key: key, Err: err}
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return &Error{Backend: "s3", Op: "put", Key: key, Err: err}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}
