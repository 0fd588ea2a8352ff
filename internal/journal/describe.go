package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/records"
)

// Decryptor opens envelope JSON text.
type Decryptor interface {
	DecryptString(envelope string) (string, error)
}

// Described is a record together with its decrypted payload, or the reason it
// could not be read.
type Described struct {
	Record  records.Record
	Payload Payload
	Err     error

	// Plaintext is the decrypted payload text exactly as stored.
	Plaintext string
}

// OK reports whether the record was readable.
func (d Described) OK() bool {
	return d.Err == nil
}

// CreatedAt prefers the payload timestamp over the plaintext hint.
func (d Described) CreatedAt() time.Time {
	ms := d.Payload.CreatedAt
	if ms == 0 {
		ms = d.Record.CreatedAt
	}
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Title is the display title, or a label describing why it is unreadable.
func (d Described) Title() string {
	switch {
	case d.OK():
		return d.Payload.DisplayTitle()
	case errors.Is(d.Err, kerrors.ErrCorruptEntry):
		return "(corrupt entry)"
	case errors.Is(d.Err, kerrors.ErrNoSession):
		return "(locked)"
	default:
		return "(cannot decrypt)"
	}
}

// Describe decrypts and parses one record. Failures are recorded on the
// result, never returned.
func Describe(dec Decryptor, r records.Record) Described {
	d := Described{Record: r}
	if dec == nil {
		d.Err = kerrors.ErrNoSession
		return d
	}

	plaintext, err := dec.DecryptString(r.Ciphertext)
	if err != nil {
		if !errors.Is(err, kerrors.ErrNoSession) && !errors.Is(err, kerrors.ErrDecryptionFailed) {
			err = fmt.Errorf("%w: %v", kerrors.ErrDecryptionFailed, err)
		}
		d.Err = err
		return d
	}

	d.Plaintext = plaintext
	if err := json.Unmarshal([]byte(plaintext), &d.Payload); err != nil {
		d.Err = fmt.Errorf("%w: %v", kerrors.ErrCorruptEntry, err)
		d.Payload = Payload{}
	}
	return d
}

// DescribeAll describes every record in order.
func DescribeAll(dec Decryptor, recs []records.Record) []Described {
	out := make([]Described, 0, len(recs))
	for _, r := range recs {
		out = append(out, Describe(dec, r))
	}
	return out
}

// Sort orders entries newest first, breaking ties by id descending.
func Sort(entries []Described) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].CreatedAt(), entries[j].CreatedAt()
		if a.Equal(b) {
			return entries[i].Record.ID > entries[j].Record.ID
		}
		return a.After(b)
	})
}
