package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Open reads a local path or an s3:// object. S3 objects are buffered in
// memory; s3Client is created on first use when nil.
func Open(ctx context.Context, path string, s3Client *S3) (io.ReadCloser, error) {
	if !IsS3URI(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file %s: %w", path, err)
		}
		return file, nil
	}

	bucket, key, err := ParseS3URI(path)
	if err != nil {
		return nil, err
	}
	if s3Client == nil {
		if s3Client, err = NewS3(ctx); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := s3Client.ReadFile(ctx, bucket, key, &buf); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// WriteLocalFile writes data to dir/name, creating dir when missing. The
// file is written under a temporary name and renamed into place.
func WriteLocalFile(dir string, name string, data []byte) error {
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}
