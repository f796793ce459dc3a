package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/4245877/liteforest-backend/pkg/config"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
)

const defaultOpTimeout = 30 * time.Second

// Client wraps the object store connection. All operations run against the
// single configured bucket.
type Client struct {
	api       *minio.Client
	bucket    string
	region    string
	publicURL string
	opTimeout time.Duration
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds a client from configuration and verifies the endpoint is
// reachable. The bucket is created when missing so fresh environments come
// up without manual provisioning.
func New(ctx context.Context, cfg config.S3Config, logg *logger.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing s3 client: %w", err)
	}

	client := &Client{
		api:       api,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		publicURL: cfg.PublicBase(),
		opTimeout: cfg.OpTimeout,
	}
	if client.opTimeout <= 0 {
		client.opTimeout = defaultOpTimeout
	}

	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.Bucket), "s3 client initialized")
	}

	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// EnsureBucket creates the configured bucket when it does not exist yet.
// Concurrent workers racing on creation is fine; the loser's error is
// swallowed when the bucket turns out to exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "checking bucket")
	}
	if exists {
		return nil
	}

	err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "creating bucket")
	}
	return nil
}

// PutObject uploads the full reader content under key, overwriting any
// existing object. Pass size -1 to stream without a known length.
func (c *Client) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if r == nil {
		return apperrors.New(apperrors.CodeInternal, "nil reader for upload")
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err := c.api.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, fmt.Sprintf("uploading %s", key))
	}
	return nil
}

// GetObjectStream opens the object at key for reading. The caller owns the
// returned stream and must close it. A missing key maps to a not-found
// error; everything else is a dependency failure.
func (c *Client) GetObjectStream(ctx context.Context, key string) (io.ReadCloser, error) {
	// The existence round trip is bounded by the operation timeout; the
	// stream itself rides the caller's context since reads outlive the call.
	statCtx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.api.StatObject(statCtx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, err, fmt.Sprintf("object %s not found", key))
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, fmt.Sprintf("stat %s", key))
	}

	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, fmt.Sprintf("opening %s", key))
	}
	return obj, nil
}

// PublicURL joins the configured public base with an object key.
func (c *Client) PublicURL(key string) string {
	return c.publicURL + "/" + strings.TrimPrefix(key, "/")
}

// Ping verifies the endpoint and bucket are reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.api.BucketExists(ctx, c.bucket); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "s3 health check failed")
	}
	return nil
}

func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}
