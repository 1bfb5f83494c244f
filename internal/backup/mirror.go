package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Mirror copies a finished archive somewhere off the machine.
type Mirror interface {
	// Upload stores the file at localPath and returns where it went.
	Upload(ctx context.Context, localPath string) (string, error)
}

// MirrorConfig selects an S3-compatible bucket for archives.
type MirrorConfig struct {
	Bucket string
	Region string
	// Endpoint is set for S3-compatible stores such as MinIO.
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// S3Mirror uploads archives to one bucket.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror builds a mirror using the default AWS credential chain.
func NewS3Mirror(ctx context.Context, cfg MirrorConfig) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Mirror(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Mirror(client *s3.Client, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (m *S3Mirror) key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

func (m *S3Mirror) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := m.key(localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}
