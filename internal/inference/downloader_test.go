package inference_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"async-inference/internal/inference"
	"async-inference/internal/s3"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	buckets   map[string]bool
	objects   map[string]string
	etags     map[string]string
	err       error
	heads     int
	downloads int
}

func (f *fakeSource) HeadObject(ctx context.Context, bucket, key string) (s3.ObjectInfo, error) {
	f.heads++
	if f.err != nil {
		return s3.ObjectInfo{}, f.err
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return s3.ObjectInfo{}, fmt.Errorf("failed to head object: %w", &types.NotFound{})
	}
	return s3.ObjectInfo{ETag: f.etags[bucket+"/"+key], Size: int64(len(data))}, nil
}

func (f *fakeSource) HeadBucket(ctx context.Context, bucket string) error {
	if f.buckets != nil && !f.buckets[bucket] {
		return fmt.Errorf("failed to verify access to s3://%s: %w", bucket, &types.NotFound{})
	}
	return nil
}

func (f *fakeSource) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	f.downloads++
	if f.err != nil {
		return f.err
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("failed to download file: %w", &types.NoSuchKey{})
	}
	return os.WriteFile(localPath, []byte(data), 0644)
}

func TestDownloadByName(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{objects: map[string]string{"bucket/out/music.wav": "audio"}}
	downloader := inference.NewDownloader(source, dir, inference.CacheByName)

	path, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "music.wav"), path)
	assert.Equal(t, 1, source.downloads)
	assert.Equal(t, 0, source.heads)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestDownloadByNameKeepsKeyVerbatim(t *testing.T) {
	for _, name := range []string{"take#1.wav", "what?.wav", "a%20b.wav"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			source := &fakeSource{objects: map[string]string{"bucket/out/" + name: "audio " + name}}
			downloader := inference.NewDownloader(source, dir, inference.CacheByName)

			path, err := downloader.Download(context.Background(), "s3://bucket/out/"+name)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, name), path)
			assert.Equal(t, 1, source.downloads)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "audio "+name, string(data))
		})
	}
}

func TestDownloadByContentMissingBucket(t *testing.T) {
	source := &fakeSource{buckets: map[string]bool{"bucket": true}, objects: map[string]string{}}
	downloader := inference.NewDownloader(source, t.TempDir(), inference.CacheByContent)

	path, err := downloader.Download(context.Background(), "s3://no-such-bucket/out/music.wav")
	require.Error(t, err)
	assert.Empty(t, path)

	path, err = downloader.Download(context.Background(), "s3://bucket/out/missing.wav")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 0, source.downloads)
}

func TestDownloadByNameSkipsExistingFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "music.wav")
	require.NoError(t, os.WriteFile(existing, []byte("something else entirely"), 0644))

	source := &fakeSource{objects: map[string]string{"bucket/out/music.wav": "audio"}}
	downloader := inference.NewDownloader(source, dir, inference.CacheByName)

	path, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
	require.NoError(t, err)
	assert.Equal(t, existing, path)
	assert.Equal(t, 0, source.downloads)
	assert.Equal(t, 0, source.heads)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "something else entirely", string(data))
}

func TestDownloadMissingObject(t *testing.T) {
	for _, mode := range []inference.CacheMode{inference.CacheByName, inference.CacheByContent} {
		source := &fakeSource{objects: map[string]string{}}
		downloader := inference.NewDownloader(source, t.TempDir(), mode)

		path, err := downloader.Download(context.Background(), "s3://bucket/out/missing.wav")
		require.NoError(t, err)
		assert.Empty(t, path)
	}
}

func TestDownloadOtherErrors(t *testing.T) {
	for _, mode := range []inference.CacheMode{inference.CacheByName, inference.CacheByContent} {
		source := &fakeSource{err: &smithy.GenericAPIError{Code: "AccessDenied"}}
		downloader := inference.NewDownloader(source, t.TempDir(), mode)

		path, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
		require.Error(t, err)
		assert.Empty(t, path)
	}
}

func TestDownloadByContent(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{
		objects: map[string]string{"bucket/out/music.wav": "take one"},
		etags:   map[string]string{"bucket/out/music.wav": "etag-1"},
	}
	downloader := inference.NewDownloader(source, dir, inference.CacheByContent)

	first, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first, "_music.wav"))
	assert.Equal(t, 1, source.downloads)

	// Same version is served from disk.
	again, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, source.downloads)

	// A new version of the object gets a new local file.
	source.objects["bucket/out/music.wav"] = "take two"
	source.etags["bucket/out/music.wav"] = "etag-2"

	second, err := downloader.Download(context.Background(), "s3://bucket/out/music.wav")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, source.downloads)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "take two", string(data))
}
