package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RemoteConfig holds credentials for an S3-compatible remote cache tier
// (S3 proper or Cloudflare R2 via the account endpoint).
type RemoteConfig struct {
	AccountID string // R2 account; empty for plain S3
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // key prefix inside the bucket
}

// Remote is a shared artifact cache backed by an S3-compatible bucket.
// Artifacts travel as packed tarballs under <prefix>/<key>.tar.gz.
type Remote struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewRemote builds a remote tier client from configuration values.
func NewRemote(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("remote cache credentials missing (bucket, access key, secret key)")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("loading remote cache config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.AccountID != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		}
	})

	return &Remote{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Pull downloads and unpacks the artifact for key into dst. Any error is a
// cache miss to the caller.
func (r *Remote) Pull(ctx context.Context, key, dst string) error {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", key, err)
	}
	defer out.Body.Close()

	return Unpack(out.Body, dst)
}

// Push packs dir and uploads it under key.
func (r *Remote) Push(ctx context.Context, key, dir string) error {
	var buf bytes.Buffer
	if err := Pack(dir, &buf); err != nil {
		return err
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.objectKey(key)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (r *Remote) objectKey(key string) string {
	if r.prefix == "" {
		return key + ".tar.gz"
	}
	return r.prefix + "/" + key + ".tar.gz"
}
