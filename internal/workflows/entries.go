package workflows

import (
	"context"

	"github.com/PolarWolf314/diario/internal/audit"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// AddEntryOptions configures AddEntry.
type AddEntryOptions struct {
	Title   string
	Content string

	// PhotoPath attaches an image file when set.
	PhotoPath string
}

// AddEntryResult contains the outcome of AddEntry.
type AddEntryResult struct {
	ID      int64
	Payload journal.Payload
}

func (j *Journal) session() (*secrets.Session, error) {
	s := j.keys.Session()
	if s == nil {
		return nil, kerrors.ErrNoSession
	}
	return s, nil
}

// AddEntry encrypts a new entry and stores it.
//
// Returns ErrNoSession if the journal is locked.
func (j *Journal) AddEntry(ctx context.Context, opts AddEntryOptions) (*AddEntryResult, error) {
	s, err := j.session()
	if err != nil {
		return nil, err
	}

	payload := journal.NewPayload(opts.Title, opts.Content, j.now())
	if opts.PhotoPath != "" {
		photo, err := journal.PhotoDataURL(opts.PhotoPath)
		if err != nil {
			return nil, err
		}
		payload.Photo = photo
	}

	ciphertext, err := payload.Seal(s)
	if err != nil {
		return nil, err
	}
	id, err := j.store.Add(ctx, ciphertext, payload.CreatedAt)
	if err != nil {
		return nil, err
	}

	j.keys.Touch()
	j.trail.Log(audit.Entry{Operation: audit.OpAddEntry, EntryID: id})
	return &AddEntryResult{ID: id, Payload: payload}, nil
}

// ListEntries describes every entry, newest first. While locked every entry
// is listed with the locked label; unreadable entries are tagged, never
// fatal.
func (j *Journal) ListEntries(ctx context.Context) ([]journal.Described, error) {
	recs, err := j.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var dec journal.Decryptor
	if s := j.keys.Session(); s != nil {
		dec = s
		j.keys.Touch()
	}
	entries := journal.DescribeAll(dec, recs)
	journal.Sort(entries)
	return entries, nil
}

// GetEntry describes one entry.
//
// Returns ErrRecordNotFound if no entry has the id.
// Returns ErrNoSession if the journal is locked.
func (j *Journal) GetEntry(ctx context.Context, id int64) (journal.Described, error) {
	s, err := j.session()
	if err != nil {
		return journal.Described{}, err
	}
	rec, err := j.store.Get(ctx, id)
	if err != nil {
		return journal.Described{}, err
	}
	j.keys.Touch()
	return journal.Describe(s, rec), nil
}

// DeleteEntry removes an entry.
//
// Returns ErrNoSession if the journal is locked.
// Returns ErrRecordNotFound if no entry has the id.
func (j *Journal) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := j.session(); err != nil {
		return err
	}
	if err := j.store.Delete(ctx, id); err != nil {
		return err
	}
	j.keys.Touch()
	j.trail.Log(audit.Entry{Operation: audit.OpDeleteEntry, EntryID: id})
	return nil
}
