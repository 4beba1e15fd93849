// Package s3store reads and writes encoded maps stored as S3 objects.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/humanfmt"
)

// TransferConfig configures the S3 transfer managers.
type TransferConfig struct {
	// Concurrency is the number of parts transferred in parallel.
	// Default: NumCPU clamped to [2, 8].
	Concurrency int

	// PartSize is the size of each ranged GET or multipart upload part.
	// Default: 8MB. Most maps fit in a single part.
	PartSize int64
}

// DefaultTransferConfig returns defaults based on the current machine.
func DefaultTransferConfig() TransferConfig {
	concurrency := min(max(runtime.NumCPU(), 2), 8)
	return TransferConfig{
		Concurrency: concurrency,
		PartSize:    8 * 1024 * 1024,
	}
}

func (c TransferConfig) withDefaults() TransferConfig {
	def := DefaultTransferConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize < manager.MinUploadPartSize {
		c.PartSize = def.PartSize
	}
	return c
}

// Client provides S3 Get and Put for map objects.
type Client struct {
	s3Client   *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
	config     TransferConfig
}

// NewClient creates a client using the default AWS configuration chain.
func NewClient(ctx context.Context, cfg TransferConfig) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(awsCfg, cfg), nil
}

// NewClientWithConfig creates a client with a custom AWS config.
func NewClientWithConfig(awsCfg aws.Config, cfg TransferConfig, optFns ...func(*s3.Options)) *Client {
	cfg = cfg.withDefaults()
	s3Client := s3.NewFromConfig(awsCfg, optFns...)

	return &Client{
		s3Client: s3Client,
		downloader: manager.NewDownloader(s3Client, func(d *manager.Downloader) {
			d.Concurrency = cfg.Concurrency
			d.PartSize = cfg.PartSize
		}),
		uploader: manager.NewUploader(s3Client, func(u *manager.Uploader) {
			u.Concurrency = cfg.Concurrency
			u.PartSize = cfg.PartSize
		}),
		config: cfg,
	}
}

// Config returns the transfer configuration in effect.
func (c *Client) Config() TransferConfig {
	return c.config
}

// Get downloads the object at uri into memory.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	log := logctx.FromContext(ctx)
	start := time.Now()

	buf := manager.NewWriteAtBuffer(make([]byte, 0, c.config.PartSize))
	n, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}

	elapsed := time.Since(start)
	log.Debug().
		Str("uri", uri).
		Str("size", humanfmt.Bytes(n)).
		Str("throughput", humanfmt.Throughput(n, elapsed)).
		Dur("elapsed", elapsed).
		Msg("downloaded map")
	return buf.Bytes()[:n], nil
}

// Put uploads data to uri, replacing any existing object.
func (c *Client) Put(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}
	log := logctx.FromContext(ctx)
	start := time.Now()

	if _, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", uri, err)
	}

	elapsed := time.Since(start)
	log.Debug().
		Str("uri", uri).
		Str("size", humanfmt.Bytes(int64(len(data)))).
		Dur("elapsed", elapsed).
		Msg("uploaded map")
	return nil
}
