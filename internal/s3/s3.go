package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Api interface {
	manager.DownloadAPIClient
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type Client struct {
	s3Client   S3Api
	downloader *manager.Downloader
	uploader   *manager.Uploader
	bucketName string // Default bucket for uploaded payloads
}

type Config struct {
	S3EndpointURL string
	DefaultBucket string
}

// ObjectInfo is the subset of HeadObject metadata used to identify a specific
// version of an object.
type ObjectInfo struct {
	ETag      string
	VersionId string
	Size      int64
}

func NewS3Client(awsCfg aws.Config, cfg Config) *Client {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
		}
		// Needed for MinIO which doesn't enforce bucket naming rules always
		o.UsePathStyle = true
	})

	return NewFromClient(s3Client, cfg.DefaultBucket)
}

func NewFromClient(client S3Api, bucketName string) *Client {
	return &Client{
		s3Client:   client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
		bucketName: bucketName,
	}
}

func (c *Client) DefaultBucket() string {
	return c.bucketName
}

func (c *Client) UploadFile(ctx context.Context, localPath, bucket, key, contentType string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	return c.UploadObject(ctx, bucket, key, contentType, file)
}

func (c *Client) UploadObject(ctx context.Context, bucket, key, contentType string, data io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	slog.Debug("uploading object", "bucket", bucket, "key", key)
	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to s3://%s/%s: %w", bucket, key, err)
	}

	s3Path := fmt.Sprintf("s3://%s/%s", bucket, key)
	slog.Info("object uploaded successfully", "path", s3Path)
	return s3Path, nil
}

// ReadObject fetches the whole object in a single GetObject call. The SDK
// error is wrapped, so callers can still check it with IsNotFound.
func (c *Client) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object s3://%s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading body of s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (c *Client) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	resp, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to head object s3://%s/%s: %w", bucket, key, err)
	}

	return ObjectInfo{
		ETag:      strings.Trim(aws.ToString(resp.ETag), `"`),
		VersionId: aws.ToString(resp.VersionId),
		Size:      aws.ToInt64(resp.ContentLength),
	}, nil
}

func (c *Client) HeadBucket(ctx context.Context, bucket string) error {
	if _, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return fmt.Errorf("failed to verify access to s3://%s: %w", bucket, err)
	}
	return nil
}

func (c *Client) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	slog.Debug("downloading object", "bucket", bucket, "key", key, "dest", localPath)
	_, err = c.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// Clean up empty file on failure
		file.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to download file s3://%s/%s: %w", bucket, key, err)
	}
	slog.Info("object downloaded successfully", "bucket", bucket, "key", key, "dest", localPath)
	return nil
}

// ParseS3Path splits s3://bucket/key on the first slash after the bucket. The
// key is taken verbatim: '#', '?' and '%' are valid key characters, not URL syntax.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(s3Path, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid scheme in S3 path '%s', expected 's3'", s3Path)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("S3 path '%s' must include both bucket and key", s3Path)
	}
	return bucket, key, nil
}
