package scripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds S3 backend settings. Credentials come from the default
// AWS chain (environment, shared config, instance role).
type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`   // optional, e.g. MinIO
	PathStyle bool   `koanf:"path_style"` // required by most S3-compatible servers
}

// S3API is the subset of *s3.Client used by S3.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 reads scripts from a bucket. A configured path maps to the object key
// with its leading slash removed, so /app/merge.sql is key app/merge.sql.
type S3 struct {
	client S3API
	bucket string
	logger *slog.Logger
}

// OpenS3 builds an S3 client from cfg and the default credential chain.
func OpenS3(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.s3.bucket is required for the s3 driver")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3(client, cfg.Bucket, logger), nil
}

// NewS3 creates an S3 Source over an existing client.
func NewS3(client S3API, bucket string, logger *slog.Logger) *S3 {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &S3{client: client, bucket: bucket, logger: logger}
}

// Driver returns DriverS3.
func (*S3) Driver() Driver { return DriverS3 }

// Key returns the object key for a script path.
func Key(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Open fetches the object for path.
func (s *S3) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key := Key(path)
	s.logger.Debug("fetching script", "bucket", s.bucket, "key", key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

// Exists issues a HEAD request for path.
func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	key := Key(path)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head s3://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
		respErr   *awshttp.ResponseError
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return true
	case errors.As(err, &respErr):
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
