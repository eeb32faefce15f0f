package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Size limits for uploads.
const (
	MaxReportImageBytes = 5 << 20
	MaxAvatarBytes      = 2 << 20
)

// Image is a sniffed upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// CheckImage accepts data only when it sniffs as image/* and fits maxBytes.
// The returned message is meant for the user.
func CheckImage(data []byte, maxBytes int64) (Image, string) {
	if len(data) == 0 {
		return Image{}, "image is empty"
	}
	if int64(len(data)) > maxBytes {
		return Image{}, fmt.Sprintf("image must be at most %dMB", maxBytes>>20)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, "file must be an image"
	}

	ext := strings.TrimPrefix(mt.Extension(), ".")
	if ext == "" {
		ext = "bin"
	}
	return Image{Data: data, ContentType: mt.String(), Ext: ext}, ""
}

// ReportImagePath names a report image: report-images/<unixms>-<rand>.<ext>.
func ReportImagePath(now time.Time, ext string) string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("report-images/%d-%s.%s", now.UnixMilli(), rand, ext)
}

// AvatarPath names an avatar: avatars/<user>-<unixms>.<ext>.
func AvatarPath(userID string, now time.Time, ext string) string {
	return fmt.Sprintf("avatars/%s-%d.%s", userID, now.UnixMilli(), ext)
}

// Upload is raw file content sent by a client. Data travels base64-encoded
// in JSON.
type Upload struct {
	Name string `json:"name,omitempty"`
	Data []byte `json:"data"`
}
