package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 output storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	// KeyPrefix is prepended to object keys (default "reels").
	KeyPrefix string
}

// S3Store wraps LocalStore and makes composed outputs publicly reachable
// by uploading them to S3 when a publish needs a URL. Uploads and cleanup
// still use local disk.
type S3Store struct {
	*LocalStore
	client    *s3.Client
	bucket    string
	region    string
	keyPrefix string
}

// NewS3Store creates a new S3Store on top of a LocalStore.
func NewS3Store(uploadDir string, cfg S3Config) (*S3Store, error) {
	local, err := NewLocalStore(uploadDir, "")
	if err != nil {
		return nil, err
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "reels"
	}

	return &S3Store{
		LocalStore: local,
		client:     s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		keyPrefix:  prefix,
	}, nil
}

// OutputURL uploads the composed output to S3 and returns its public URL.
func (s *S3Store) OutputURL(ctx context.Context, filePath, filename string) (string, error) {
	f, err := os.Open(filePath) // #nosec G304 - path is produced by the composition worker
	if err != nil {
		return "", fmt.Errorf("open output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := path.Join(s.keyPrefix, filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("upload output to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// Compile-time check that S3Store implements Store.
var _ Store = (*S3Store)(nil)
