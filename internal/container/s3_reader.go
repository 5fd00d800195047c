package container

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures access to an object store container
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Timeout bounds each object store call (0 = no timeout)
	Timeout time.Duration
}

// S3Reader treats every object below a bucket prefix as a member
type S3Reader struct {
	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
	closed  atomic.Bool
}

// ParseS3Location splits "s3://bucket/prefix" into bucket and prefix.
// The returned prefix is empty or ends in Separator.
func ParseS3Location(location string) (string, string, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if strings.TrimSpace(bucket) == "" {
		return "", "", fmt.Errorf("s3 bucket is required in %q", location)
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += Separator
	}
	return bucket, prefix, nil
}

// NewS3Reader creates a reader over the objects at location ("s3://bucket/prefix")
func NewS3Reader(cfg S3Config, location string) (*S3Reader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket, prefix, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	r := &S3Reader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: cfg.Timeout,
	}

	ctx, cancel := r.callContext()
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s: %w", bucket, ErrNotExist)
	}
	return r, nil
}

// List returns object keys below the prefix, relative to it
func (r *S3Reader) List() ([]string, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := r.callContext()
	defer cancel()

	members := make([]string, 0, 64)
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    r.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		if rel := strings.TrimPrefix(obj.Key, r.prefix); rel != "" {
			members = append(members, rel)
		}
	}
	return members, nil
}

// Open streams the object for member
func (r *S3Reader) Open(member string) (io.ReadCloser, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	// The stream outlives this call, so it gets no deadline.
	obj, err := r.client.GetObject(context.Background(), r.bucket, r.prefix+member, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateS3Error(member, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, translateS3Error(member, err)
	}
	return obj, nil
}

// Read downloads the object for member
func (r *S3Reader) Read(member string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := r.callContext()
	defer cancel()

	obj, err := r.client.GetObject(ctx, r.bucket, r.prefix+member, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateS3Error(member, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateS3Error(member, err)
	}
	return data, nil
}

// Release is a no-op
func (r *S3Reader) Release([]byte) {}

// Close marks the reader closed; the HTTP client has no per-reader state
func (r *S3Reader) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *S3Reader) callContext() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(context.Background(), r.timeout)
	}
	return context.WithCancel(context.Background())
}

func translateS3Error(member string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return fmt.Errorf("%s: %w", member, ErrNotExist)
	}
	return err
}
