// Package archive stores raw alarm uploads in S3-compatible object
// storage. Every import keeps its original bytes so a parse can be
// replayed after pipeline changes.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config holds S3 connection settings.
type Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("archive: region is required")
	}
	if c.Bucket == "" {
		return errors.New("archive: bucket is required")
	}
	return nil
}

// Client uploads raw imports to the archive bucket.
type Client struct {
	client *s3.Client
	config Config
	logger *slog.Logger

	bytesUploaded   atomic.Int64
	objectsUploaded atomic.Int64
	uploadErrors    atomic.Int64
}

// NewClient creates an archive client. Static credentials are used when
// configured; otherwise the ambient AWS credential chain applies. A
// custom endpoint with path-style addressing targets MinIO and friends.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	c := &Client{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
		logger: logger,
	}

	logger.Info("archive client initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
	)

	return c, nil
}

// ArchiveImport uploads the raw bytes of one import. The key embeds the
// import date and id so listings group naturally by day.
func (c *Client) ArchiveImport(ctx context.Context, importID, source string, raw []byte, when time.Time) (string, error) {
	key := ImportKey(c.config.Prefix, importID, when)

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata: map[string]string{
			"import-id": importID,
			"source":    source,
		},
	})
	if err != nil {
		c.uploadErrors.Add(1)
		return "", fmt.Errorf("archive: failed to upload import %s: %w", importID, err)
	}

	c.bytesUploaded.Add(int64(len(raw)))
	c.objectsUploaded.Add(1)

	c.logger.Debug("archived import",
		"key", key,
		"size", len(raw),
	)

	return key, nil
}

// ImportKey builds the object key for an import.
func ImportKey(prefix, importID string, when time.Time) string {
	return fmt.Sprintf("%s%s/%s.txt", prefix, when.UTC().Format("2006/01/02"), importID)
}

// HealthCheck verifies the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("archive: bucket %s does not exist", c.config.Bucket)
		}
		return fmt.Errorf("archive: bucket check failed: %w", err)
	}
	return nil
}

// Metrics contains archive client counters.
type Metrics struct {
	BytesUploaded   int64 `json:"bytesUploaded"`
	ObjectsUploaded int64 `json:"objectsUploaded"`
	Errors          int64 `json:"errors"`
}

// GetMetrics returns current client counters.
func (c *Client) GetMetrics() Metrics {
	return Metrics{
		BytesUploaded:   c.bytesUploaded.Load(),
		ObjectsUploaded: c.objectsUploaded.Load(),
		Errors:          c.uploadErrors.Load(),
	}
}
