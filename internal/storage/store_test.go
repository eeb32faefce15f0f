package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDiskStore_UploadAndURL(t *testing.T) {
	root := t.TempDir()
	s := NewDiskStore(root, "http://localhost:8080/storage/")

	require.NoError(t, s.Upload(context.Background(), BucketImages, "report-images/1-abc.png", pngHeader))

	got, err := os.ReadFile(filepath.Join(root, "images", "report-images", "1-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)
	assert.Equal(t, "http://localhost:8080/storage/images/report-images/1-abc.png", s.PublicURL(BucketImages, "report-images/1-abc.png"))
}

func TestDiskStore_RejectsEscapes(t *testing.T) {
	root := t.TempDir()
	s := NewDiskStore(root, "http://x")
	ctx := context.Background()

	// traversal is clamped inside the bucket
	require.NoError(t, s.Upload(ctx, BucketImages, "../../evil.png", pngHeader))
	_, err := os.Stat(filepath.Join(root, "images", "evil.png"))
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Upload(ctx, "../etc", "x.png", pngHeader), ErrInvalidPath)
	assert.ErrorIs(t, s.Upload(ctx, BucketImages, "", pngHeader), ErrInvalidPath)
}

func TestDiskStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewDiskStore(t.TempDir(), "").Upload(ctx, BucketImages, "a.png", pngHeader), context.Canceled)
}

func TestCheckImage(t *testing.T) {
	img, msg := CheckImage(pngHeader, MaxReportImageBytes)
	assert.Empty(t, msg)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "png", img.Ext)

	_, msg = CheckImage([]byte("just some text"), MaxReportImageBytes)
	assert.Equal(t, "file must be an image", msg)

	_, msg = CheckImage(nil, MaxReportImageBytes)
	assert.Equal(t, "image is empty", msg)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxAvatarBytes)...)
	_, msg = CheckImage(big, MaxAvatarBytes)
	assert.Equal(t, "image must be at most 2MB", msg)
}

func TestObjectPaths(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Regexp(t, regexp.MustCompile(`^report-images/1700000000123-[0-9a-f]{8}\.png$`), ReportImagePath(now, "png"))
	assert.NotEqual(t, ReportImagePath(now, "png"), ReportImagePath(now, "png"))
	assert.Equal(t, "avatars/u1-1700000000123.jpg", AvatarPath("u1", now, "jpg"))
}
