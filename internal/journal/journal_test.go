package journal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/records"
)

// plainCipher "encrypts" by wrapping text, enough to exercise the payload
// plumbing without deriving keys.
type plainCipher struct{}

func (plainCipher) EncryptString(s string) (string, error) { return "enc:" + s, nil }

func (plainCipher) DecryptString(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("tag mismatch")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

func TestPayloadSealAndDescribe(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	p := NewPayload("  Monday  ", " walked the dog ", now)

	ct, err := p.Seal(plainCipher{})
	require.NoError(t, err)

	d := Describe(plainCipher{}, records.Record{ID: 1, Ciphertext: ct, CreatedAt: 5})
	require.True(t, d.OK())
	assert.Equal(t, "Monday", d.Title())
	assert.Equal(t, "walked the dog", d.Payload.Content)
	assert.Equal(t, now, d.CreatedAt())
}

func TestDescribeTagsFailures(t *testing.T) {
	undecryptable := Describe(plainCipher{}, records.Record{ID: 1, Ciphertext: "garbage"})
	assert.ErrorIs(t, undecryptable.Err, kerrors.ErrDecryptionFailed)
	assert.Equal(t, "(cannot decrypt)", undecryptable.Title())

	corrupt := Describe(plainCipher{}, records.Record{ID: 2, Ciphertext: "enc:{not json"})
	assert.ErrorIs(t, corrupt.Err, kerrors.ErrCorruptEntry)
	assert.Equal(t, "(corrupt entry)", corrupt.Title())

	locked := Describe(nil, records.Record{ID: 3, CreatedAt: 99})
	assert.ErrorIs(t, locked.Err, kerrors.ErrNoSession)
	assert.Equal(t, time.UnixMilli(99), locked.CreatedAt())
}

func TestDisplayTitleFallback(t *testing.T) {
	assert.Equal(t, UntitledLabel, Payload{Title: "   "}.DisplayTitle())
}

func TestSortNewestFirstThenID(t *testing.T) {
	entries := []Described{
		{Record: records.Record{ID: 1, CreatedAt: 100}},
		{Record: records.Record{ID: 2, CreatedAt: 300}},
		{Record: records.Record{ID: 3, CreatedAt: 100}},
		{Record: records.Record{ID: 4, CreatedAt: 1}, Payload: Payload{CreatedAt: 200}},
	}
	Sort(entries)

	var ids []int64
	for _, e := range entries {
		ids = append(ids, e.Record.ID)
	}
	assert.Equal(t, []int64{2, 4, 3, 1}, ids)
}

func TestPhotoDataURL(t *testing.T) {
	dir := t.TempDir()

	// Smallest valid PNG header is enough for detection.
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	imgPath := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(imgPath, png, 0600))

	url, err := PhotoDataURL(imgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("just text"), 0600))
	_, err = PhotoDataURL(txtPath)
	assert.Error(t, err)

	_, err = PhotoDataURL(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
