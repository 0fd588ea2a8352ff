package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Operation names.
const (
	OpSetPassword     = "set-password"
	OpUnlock          = "unlock"
	OpLock            = "lock"
	OpAddEntry        = "add"
	OpDeleteEntry     = "delete"
	OpExport          = "export"
	OpUpload          = "upload"
	OpRestore         = "restore"
	OpAdopt           = "adopt"
	OpConnect         = "connect"
	OpDisconnect      = "disconnect"
	OpBiometricEnable = "biometric-enable"
	OpBiometricOff    = "biometric-disable"
)

// Entry represents a single audit log entry.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Device    string `json:"device,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	Operation string `json:"op"`

	// Optional fields depending on operation.
	Method   string `json:"method,omitempty"`   // For unlock: password or biometric.
	EntryID  int64  `json:"entry_id,omitempty"` // For add/delete.
	Mode     string `json:"mode,omitempty"`     // For restore (merge/replace).
	Added    int    `json:"added,omitempty"`    // For restore.
	Replaced int    `json:"replaced,omitempty"` // For restore.
	Count    int    `json:"count,omitempty"`    // For export/upload/adopt.
	Path     string `json:"path,omitempty"`     // For export/upload.
	Account  string `json:"account,omitempty"`  // For connect.
	Error    string `json:"error,omitempty"`    // For failed operations.
}

// Trail appends entries to one audit log file.
type Trail struct {
	Path     string
	Device   string
	DeviceID string
	Now      func() time.Time
}

// Log appends an entry to the audit log.
// If logging fails, the entry is dropped. Operations should not fail just
// because audit logging failed.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.Path == "" {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		now := time.Now
		if t.Now != nil {
			now = t.Now
		}
		entry.Timestamp = now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.Device == "" {
		entry.Device = t.Device
	}
	if entry.DeviceID == "" {
		entry.DeviceID = t.DeviceID
	}

	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(t.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// Op is a convenience for entries that carry only an operation name.
func (t *Trail) Op(op string) {
	t.Log(Entry{Operation: op})
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Filter keeps entries matching op (any when empty) at or after since (any
// when zero).
func Filter(entries []Entry, op string, since time.Time) []Entry {
	var out []Entry
	for _, e := range entries {
		if op != "" && e.Operation != op {
			continue
		}
		if !since.IsZero() {
			ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
			if err != nil || ts.Before(since) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
