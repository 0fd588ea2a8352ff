// Package journal defines the plaintext payload sealed inside every journal
// record and the helpers that turn stored records back into readable entries.
package journal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/PolarWolf314/diario/internal/secrets"
)

// UntitledLabel is shown for entries without a title.
const UntitledLabel = "Untitled"

// MaxPhotoBytes caps the size of an attached photo.
const MaxPhotoBytes = 8 << 20

// Payload is the JSON document encrypted into a record.
type Payload struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	Photo     string `json:"photo,omitempty"`
}

// NewPayload trims the inputs and stamps the creation time.
func NewPayload(title, content string, now time.Time) Payload {
	return Payload{
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		CreatedAt: now.UnixMilli(),
	}
}

// DisplayTitle returns the trimmed title, or UntitledLabel.
func (p Payload) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return UntitledLabel
}

// Seal serializes the payload and encrypts it with c.
func (p Payload) Seal(c secrets.Cipher) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode entry: %w", err)
	}
	return c.EncryptString(string(data))
}

// PhotoDataURL reads an image file into a data: URL.
func PhotoDataURL(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	if info.Size() > MaxPhotoBytes {
		return "", fmt.Errorf("photo is %d bytes, limit is %d", info.Size(), MaxPhotoBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (detected %s)", path, mtype.String())
	}
	// Drop parameters such as charset, which never apply to images.
	mime, _, _ := strings.Cut(mtype.String(), ";")
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
