package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInputKeyPrefix = "musicgen_large/input_payload"
	ContentTypeJSON       = "application/json"
)

type Uploader interface {
	UploadFile(ctx context.Context, localPath, bucket, key, contentType string) (string, error)
}

// Generate writes data as JSON to dir/payload_<uuid>.json and returns the path.
// The uuid is version 1 so that names stay unique across concurrent callers.
func Generate(dir string, data any) (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate payload id: %w", err)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("payload_%s.json", id.String()))
	if err := os.WriteFile(filename, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write payload file %s: %w", filename, err)
	}

	return filename, nil
}

func Upload(ctx context.Context, uploader Uploader, bucket, keyPrefix, filename string) (string, error) {
	if keyPrefix == "" {
		keyPrefix = DefaultInputKeyPrefix
	}
	key := path.Join(keyPrefix, filepath.Base(filename))

	location, err := uploader.UploadFile(ctx, filename, bucket, key, ContentTypeJSON)
	if err != nil {
		return "", fmt.Errorf("failed to upload payload %s: %w", filename, err)
	}
	slog.Info("payload uploaded", "file", filename, "location", location)
	return location, nil
}

// Delete removes the payload file. A missing file is not an error.
func Delete(filename string) error {
	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete payload file %s: %w", filename, err)
	}
	return nil
}

func LoadFile(filename string) (map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload description %s: %w", filename, err)
	}

	data := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(raw, &data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		return nil, fmt.Errorf("unsupported payload file extension '%s'", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload description %s: %w", filename, err)
	}

	return data, nil
}
