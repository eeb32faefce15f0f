// Package storage keeps uploaded images in named buckets and hands out the
// public addresses they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Buckets.
const (
	BucketImages  = "images"
	BucketAvatars = "avatars"
)

var ErrInvalidPath = errors.New("invalid object path")

type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath string, data []byte) error
	PublicURL(bucket, objectPath string) string
}

// DiskStore writes objects under Root/<bucket>/<path>. The HTTP side server
// publishes Root at BaseURL.
type DiskStore struct {
	Root    string
	BaseURL string
}

func NewDiskStore(root, baseURL string) *DiskStore {
	return &DiskStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *DiskStore) Upload(ctx context.Context, bucket, objectPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	// write then rename so readers never see a partial object
	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

func (s *DiskStore) PublicURL(bucket, objectPath string) string {
	return s.BaseURL + "/" + path.Join(bucket, objectPath)
}

func (s *DiskStore) resolve(bucket, objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if bucket == "" || strings.ContainsAny(bucket, `/\.`) || clean == "/" {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, bucket, objectPath)
	}
	return filepath.Join(s.Root, bucket, filepath.FromSlash(clean)), nil
}
