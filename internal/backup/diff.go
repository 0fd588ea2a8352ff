package backup

import (
	"encoding/base64"

	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/records"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// Conflict pairs a local record with a backup record at the same id.
type Conflict struct {
	Local  journal.Described
	Backup journal.Described
}

// Diff classifies every backup record against the local set.
type Diff struct {
	NewEntries     []journal.Described
	Conflicts      []Conflict
	IdenticalCount int
	TotalBackup    int

	// Foreign is set when the backup was encrypted under another key.
	Foreign bool

	// Backup holds every described backup record, in file order.
	Backup []journal.Described
}

// Blocked reports whether a merge would touch a record that could not be
// described.
func (d *Diff) Blocked() bool {
	for _, n := range d.NewEntries {
		if !n.OK() {
			return true
		}
	}
	for _, c := range d.Conflicts {
		if !c.Local.OK() || !c.Backup.OK() {
			return true
		}
	}
	return false
}

// ReplaceBlocked reports whether any backup record could not be described.
func (d *Diff) ReplaceBlocked() bool {
	for _, b := range d.Backup {
		if !b.OK() {
			return true
		}
	}
	return false
}

// Empty reports whether the backup adds or changes nothing.
func (d *Diff) Empty() bool {
	return len(d.NewEntries) == 0 && len(d.Conflicts) == 0
}

// identity is the comparison key for ciphertext. Envelopes compare by their
// decoded bytes so that the legacy and current encodings of the same
// envelope match; anything else compares as raw text.
func identity(ciphertext string) string {
	if e, err := secrets.ParseEnvelope(ciphertext); err == nil {
		return "env:" + base64.StdEncoding.EncodeToString(e.IV) + ":" + base64.StdEncoding.EncodeToString(e.CT)
	}
	return "raw:" + ciphertext
}

// Compare computes the diff of backup against local. localDec describes local
// records and backupDec describes backup records; either may be nil.
func Compare(local, backup []records.Record, localDec, backupDec journal.Decryptor) *Diff {
	byID := make(map[int64]records.Record, len(local))
	seen := make(map[string]struct{}, len(local))
	for _, r := range local {
		byID[r.ID] = r
		seen[identity(r.Ciphertext)] = struct{}{}
	}

	d := &Diff{TotalBackup: len(backup)}
	for _, b := range backup {
		described := journal.Describe(backupDec, b)
		d.Backup = append(d.Backup, described)

		if _, ok := seen[identity(b.Ciphertext)]; ok {
			d.IdenticalCount++
			continue
		}
		if l, ok := byID[b.ID]; ok && b.ID != 0 {
			d.Conflicts = append(d.Conflicts, Conflict{
				Local:  journal.Describe(localDec, l),
				Backup: described,
			})
			continue
		}
		d.NewEntries = append(d.NewEntries, described)
	}
	return d
}
