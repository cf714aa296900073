// Package mirror copies downloaded files to S3-compatible object storage
// (AWS S3, MinIO, LocalStack). It is optional: the local output directory is
// always the primary copy.
package mirror

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects the bucket and, for MinIO-style deployments, a custom
// endpoint with static credentials.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // e.g. minio:9000; empty for AWS
	AccessKey string
	SecretKey string
	Prefix    string // key prefix, e.g. "audio/"
}

// putter is the part of *s3.Client the mirror uses.
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 implements pipeline.Mirror.
type S3 struct {
	client putter
	cfg    Config
}

// NewS3 builds an S3 mirror from cfg.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror: bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mirror: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint))
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, cfg: cfg}, nil
}

// Put uploads the file at localPath under Prefix + base name and returns an
// s3:// URI for it.
func (m *S3) Put(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("mirror: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("mirror: %w", err)
	}
	key := m.key(localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("mirror: upload %s: %w", key, err)
	}
	return "s3://" + m.cfg.Bucket + "/" + key, nil
}

func (m *S3) key(localPath string) string {
	return path.Join(strings.Trim(m.cfg.Prefix, "/"), filepath.Base(localPath))
}

func contentType(p string) string {
	if strings.EqualFold(filepath.Ext(p), ".ogg") {
		return "audio/ogg"
	}
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func endpointURL(e string) string {
	if strings.HasPrefix(e, "http://") || strings.HasPrefix(e, "https://") {
		return e
	}
	return "http://" + e
}
