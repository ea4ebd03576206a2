package payload_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"async-inference/internal/payload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	data := map[string]any{
		"texts": []any{"Warm jazz with a walking bass line", "Lo-fi beat"},
		"generation_params": map[string]any{
			"guidance_scale": 3.0,
			"max_new_tokens": 256.0,
			"do_sample":      true,
			"temperature":    1.0,
		},
	}

	filename, err := payload.Generate(dir, data)
	require.NoError(t, err)

	base := filepath.Base(filename)
	assert.True(t, strings.HasPrefix(base, "payload_"))
	assert.True(t, strings.HasSuffix(base, ".json"))

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, data, parsed)
}

func TestGenerateUnserializable(t *testing.T) {
	_, err := payload.Generate(t.TempDir(), map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestGenerateUniqueNames(t *testing.T) {
	dir := t.TempDir()

	const n = 64
	names := make(chan string, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, err := payload.Generate(dir, map[string]any{"i": i})
			assert.NoError(t, err)
			names <- name
		}(i)
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		assert.False(t, seen[name], "duplicate payload name %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestDeleteIsIdempotent(t *testing.T) {
	filename, err := payload.Generate(t.TempDir(), map[string]any{"a": 1})
	require.NoError(t, err)

	require.NoError(t, payload.Delete(filename))
	_, err = os.Stat(filename)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, payload.Delete(filename))
	require.NoError(t, payload.Delete(filepath.Join(t.TempDir(), "never-existed.json")))
}

type recordingUploader struct {
	localPath, bucket, key, contentType string
	err                                 error
}

func (u *recordingUploader) UploadFile(ctx context.Context, localPath, bucket, key, contentType string) (string, error) {
	u.localPath, u.bucket, u.key, u.contentType = localPath, bucket, key, contentType
	if u.err != nil {
		return "", u.err
	}
	return "s3://" + bucket + "/" + key, nil
}

func TestUpload(t *testing.T) {
	filename, err := payload.Generate(t.TempDir(), map[string]any{"a": 1})
	require.NoError(t, err)

	uploader := &recordingUploader{}
	location, err := payload.Upload(context.Background(), uploader, "default-bucket", "", filename)
	require.NoError(t, err)

	expectedKey := "musicgen_large/input_payload/" + filepath.Base(filename)
	assert.Equal(t, "s3://default-bucket/"+expectedKey, location)
	assert.Equal(t, filename, uploader.localPath)
	assert.Equal(t, "default-bucket", uploader.bucket)
	assert.Equal(t, expectedKey, uploader.key)
	assert.Equal(t, "application/json", uploader.contentType)
}

func TestUploadError(t *testing.T) {
	denied := errors.New("AccessDenied")
	uploader := &recordingUploader{err: denied}

	_, err := payload.Upload(context.Background(), uploader, "bucket", "custom/prefix", "payload_x.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, "custom/prefix/payload_x.json", uploader.key)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("texts:\n  - ambient pads\ngeneration_params:\n  guidance_scale: 3\n"), 0644))

	data, err := payload.LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []any{"ambient pads"}, data["texts"])
	assert.Equal(t, map[string]any{"guidance_scale": 3}, data["generation_params"])

	jsonPath := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"texts": ["ambient pads"]}`), 0644))

	data, err = payload.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []any{"ambient pads"}, data["texts"])

	_, err = payload.LoadFile(filepath.Join(dir, "request.txt"))
	assert.Error(t, err)
}
