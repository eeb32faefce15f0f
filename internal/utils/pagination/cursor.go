package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned for tokens that do not decode to a Cursor.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// CreatedNano (unix nanoseconds) + ID establish a stable cursor over the
// newest-first report listing. Nanoseconds keep rows created within the
// same millisecond apart.
type Cursor struct {
	ID          string `json:"id"`
	CreatedNano int64  `json:"created_ns,omitempty"`
}

// NewCursor points at the row identified by id and created.
func NewCursor(id string, created time.Time) Cursor {
	return Cursor{ID: id, CreatedNano: created.UnixNano()}
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool {
	return c.ID == "" || c.CreatedNano == 0
}

// CreatedAt rebuilds the exact creation time of the cursor row, in UTC.
func (c Cursor) CreatedAt() time.Time {
	return time.Unix(0, c.CreatedNano).UTC()
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
