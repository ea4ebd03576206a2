package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"async-inference/internal/s3"
)

type CacheMode int

const (
	// CacheByName reuses any local file named after the key's last segment,
	// without looking at S3 at all.
	CacheByName CacheMode = iota
	// CacheByContent names local files after a hash of bucket, key and the
	// object's ETag/version, so a changed object is downloaded again.
	CacheByContent
)

type ObjectSource interface {
	HeadObject(ctx context.Context, bucket, key string) (s3.ObjectInfo, error)
	HeadBucket(ctx context.Context, bucket string) error
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
}

type Downloader struct {
	source ObjectSource
	dir    string
	mode   CacheMode
}

func NewDownloader(source ObjectSource, dir string, mode CacheMode) *Downloader {
	if dir == "" {
		dir = "."
	}
	return &Downloader{source: source, dir: dir, mode: mode}
}

// Download fetches the object at uri into the downloader's directory and
// returns the local path. If the object does not exist it logs and returns
// an empty path with a nil error.
func (d *Downloader) Download(ctx context.Context, uri string) (string, error) {
	bucket, key, err := s3.ParseS3Path(uri)
	if err != nil {
		return "", err
	}

	var localPath string
	switch d.mode {
	case CacheByContent:
		info, err := d.source.HeadObject(ctx, bucket, key)
		if err != nil {
			if s3.IsNotFound(err) {
				// HEAD responses carry no error code, so a missing bucket also looks like NotFound.
				if err := d.source.HeadBucket(ctx, bucket); err != nil {
					return "", err
				}
				slog.Warn("object does not exist", "bucket", bucket, "key", key)
				return "", nil
			}
			return "", err
		}
		localPath = filepath.Join(d.dir, contentAddressedName(bucket, key, info))
	default:
		localPath = filepath.Join(d.dir, path.Base(key))
	}

	if _, err := os.Stat(localPath); err == nil {
		slog.Debug("local copy already exists, skipping download", "uri", uri, "path", localPath)
		return localPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	slog.Info("downloading inference output", "uri", uri, "path", localPath)
	if err := d.source.DownloadFile(ctx, bucket, key, localPath); err != nil {
		if s3.IsNotFound(err) {
			slog.Warn("object does not exist", "bucket", bucket, "key", key)
			return "", nil
		}
		return "", err
	}

	return localPath, nil
}

func contentAddressedName(bucket, key string, info s3.ObjectInfo) string {
	version := info.VersionId
	if version == "" {
		version = info.ETag
	}
	sum := sha256.Sum256([]byte(bucket + "/" + key + "@" + version))
	return hex.EncodeToString(sum[:8]) + "_" + path.Base(key)
}
