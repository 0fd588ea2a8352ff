// Package backup reads and writes diario backup files and reconciles a
// backup with the local journal. Records are compared by ciphertext bytes and
// id only; plaintext is decrypted solely to describe records to the user.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/records"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// FileVersion is written into every backup.
const FileVersion = 2

// Entry is one record in a backup.
type Entry struct {
	ID         int64  `json:"id,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	Ciphertext string `json:"ciphertext"`
}

type entryRaw struct {
	ID         int64           `json:"id"`
	CreatedAt  int64           `json:"createdAt"`
	Ciphertext json.RawMessage `json:"ciphertext"`
}

// UnmarshalJSON accepts ciphertext either as a JSON string holding the
// envelope or as the envelope object itself.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ct := bytes.TrimSpace(raw.Ciphertext)
	switch {
	case len(ct) == 0 || bytes.Equal(ct, []byte("null")):
		return fmt.Errorf("entry has no ciphertext")
	case ct[0] == '"':
		if err := json.Unmarshal(ct, &e.Ciphertext); err != nil {
			return err
		}
	case ct[0] == '{':
		e.Ciphertext = string(ct)
	default:
		return fmt.Errorf("unsupported ciphertext encoding")
	}
	if e.Ciphertext == "" {
		return fmt.Errorf("entry has no ciphertext")
	}
	e.ID = raw.ID
	e.CreatedAt = raw.CreatedAt
	return nil
}

// File is a parsed backup.
type File struct {
	Version    int               `json:"version"`
	ExportedAt string            `json:"exportedAt"`
	Meta       *secrets.KeyState `json:"meta"`
	Entries    []Entry           `json:"entries"`
}

type fileRaw struct {
	Version    int               `json:"version"`
	ExportedAt string            `json:"exportedAt"`
	Meta       *secrets.KeyState `json:"meta"`
	Entries    *[]Entry          `json:"entries"`
}

// Parse reads a backup in either the current object form or the legacy bare
// array form. A backup without entries is malformed.
func Parse(data []byte) (*File, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", kerrors.ErrMalformedBackup)
	}

	switch data[0] {
	case '[':
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrMalformedBackup, err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: backup has no entries", kerrors.ErrMalformedBackup)
		}
		return &File{Version: 1, Entries: entries}, nil
	case '{':
		var raw fileRaw
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrMalformedBackup, err)
		}
		if raw.Entries == nil {
			return nil, fmt.Errorf("%w: no entries list", kerrors.ErrMalformedBackup)
		}
		if len(*raw.Entries) == 0 {
			return nil, fmt.Errorf("%w: backup has no entries", kerrors.ErrMalformedBackup)
		}
		return &File{
			Version:    raw.Version,
			ExportedAt: raw.ExportedAt,
			Meta:       raw.Meta,
			Entries:    *raw.Entries,
		}, nil
	default:
		return nil, fmt.Errorf("%w: not a JSON object or array", kerrors.ErrMalformedBackup)
	}
}

// Build assembles a backup of recs. meta may be nil.
func Build(recs []records.Record, meta *secrets.KeyState, now time.Time) *File {
	entries := make([]Entry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, Entry{ID: r.ID, CreatedAt: r.CreatedAt, Ciphertext: r.Ciphertext})
	}
	return &File{
		Version:    FileVersion,
		ExportedAt: now.UTC().Format(time.RFC3339Nano),
		Meta:       meta,
		Entries:    entries,
	}
}

// Marshal encodes the file with two-space indentation.
func (f *File) Marshal() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// Records converts the entries to records, keeping their ids.
func (f *File) Records() []records.Record {
	out := make([]records.Record, 0, len(f.Entries))
	for _, e := range f.Entries {
		out = append(out, records.Record{ID: e.ID, Ciphertext: e.Ciphertext, CreatedAt: e.CreatedAt})
	}
	return out
}

// Filename returns the name a backup exported at now is stored under.
func Filename(now time.Time) string {
	return "diario-backup-" + now.UTC().Format("2006-01-02") + ".json"
}
