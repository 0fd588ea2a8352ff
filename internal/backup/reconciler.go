package backup

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/journal"
	logger "github.com/PolarWolf314/diario/internal/logging"
	"github.com/PolarWolf314/diario/internal/records"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// RecordStore is the subset of the record store the reconciler writes to.
type RecordStore interface {
	Add(ctx context.Context, ciphertext string, createdAt int64) (int64, error)
	List(ctx context.Context) ([]records.Record, error)
	PutAtID(ctx context.Context, r records.Record) error
	ReplaceAll(ctx context.Context, recs []records.Record) error
}

// Keys is the subset of the key manager the reconciler needs.
type Keys interface {
	Session() *secrets.Session
	ImportState(state secrets.KeyState) error
	TryUnlock(password string) (bool, error)
}

// Options controls how backup ciphertext is written locally.
type Options struct {
	// KeepForeign writes foreign ciphertext as is, for a caller that adopts
	// the backup's key state afterwards. Otherwise foreign records are
	// re-encrypted with the local session.
	KeepForeign bool
}

// Result counts what a merge or replace changed.
type Result struct {
	Added    int
	Replaced int
}

// Reconciler applies diffs to the record store.
type Reconciler struct {
	keys  Keys
	store RecordStore
	log   logger.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(keys Keys, store RecordStore, log logger.Logger) *Reconciler {
	return &Reconciler{keys: keys, store: store, log: log}
}

func (r *Reconciler) session() (*secrets.Session, error) {
	s := r.keys.Session()
	if s == nil {
		return nil, kerrors.ErrNoSession
	}
	return s, nil
}

// Diff compares backup with the local records. alt describes backup records
// when non-nil, otherwise the installed session does.
func (r *Reconciler) Diff(ctx context.Context, backup []records.Record, alt journal.Decryptor) (*Diff, error) {
	local, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var localDec journal.Decryptor
	if s := r.keys.Session(); s != nil {
		localDec = s
	}
	backupDec := localDec
	if alt != nil {
		backupDec = alt
	}

	d := Compare(local, backup, localDec, backupDec)
	d.Foreign = alt != nil
	r.log.Debugf("Diff: %d identical, %d new, %d conflicts of %d", d.IdenticalCount, len(d.NewEntries), len(d.Conflicts), d.TotalBackup)
	return d, nil
}

// ciphertextFor returns what to store locally for a backup record.
func (r *Reconciler) ciphertextFor(s *secrets.Session, d *Diff, b journal.Described, opts Options) (string, error) {
	if !d.Foreign || opts.KeepForeign {
		return b.Record.Ciphertext, nil
	}
	return s.EncryptString(b.Plaintext)
}

func createdAt(b journal.Described) int64 {
	if b.Record.CreatedAt != 0 {
		return b.Record.CreatedAt
	}
	return b.Payload.CreatedAt
}

// Merge appends new entries and overwrites conflicting local records with the
// backup version. It stops at the first failure and returns the counts so
// far; the caller must not record a sync until Merge returns nil.
func (r *Reconciler) Merge(ctx context.Context, d *Diff, opts Options) (Result, error) {
	var res Result
	if d.Blocked() {
		return res, kerrors.ErrUndescribable
	}
	s, err := r.session()
	if err != nil {
		return res, err
	}

	for _, n := range d.NewEntries {
		ct, err := r.ciphertextFor(s, d, n, opts)
		if err != nil {
			return res, fmt.Errorf("failed to prepare entry %d: %w", n.Record.ID, err)
		}
		if _, err := r.store.Add(ctx, ct, createdAt(n)); err != nil {
			return res, err
		}
		res.Added++
	}

	for _, c := range d.Conflicts {
		ct, err := r.ciphertextFor(s, d, c.Backup, opts)
		if err != nil {
			return res, fmt.Errorf("failed to prepare entry %d: %w", c.Backup.Record.ID, err)
		}
		rec := records.Record{ID: c.Local.Record.ID, Ciphertext: ct, CreatedAt: createdAt(c.Backup)}
		if err := r.store.PutAtID(ctx, rec); err != nil {
			return res, err
		}
		res.Replaced++
	}

	r.log.Infof("Merged backup: %d added, %d replaced", res.Added, res.Replaced)
	return res, nil
}

// Replace substitutes the whole local set with the backup, keeping backup
// ids.
func (r *Reconciler) Replace(ctx context.Context, d *Diff, opts Options) (Result, error) {
	if d.ReplaceBlocked() {
		return Result{}, kerrors.ErrUndescribable
	}
	if len(d.Backup) == 0 {
		return Result{}, fmt.Errorf("%w: refusing to replace the journal with an empty backup", kerrors.ErrMalformedBackup)
	}
	s, err := r.session()
	if err != nil {
		return Result{}, err
	}

	recs := make([]records.Record, 0, len(d.Backup))
	for _, b := range d.Backup {
		ct, err := r.ciphertextFor(s, d, b, opts)
		if err != nil {
			return Result{}, fmt.Errorf("failed to prepare entry %d: %w", b.Record.ID, err)
		}
		recs = append(recs, records.Record{ID: b.Record.ID, Ciphertext: ct, CreatedAt: createdAt(b)})
	}
	if err := r.store.ReplaceAll(ctx, recs); err != nil {
		return Result{}, err
	}
	r.log.Infof("Replaced local journal with %d backup entries", len(recs))
	return Result{Replaced: len(recs)}, nil
}

// AdoptForeignKeyState moves the whole journal onto a backup's key. Records
// that already open under foreign are skipped, so a retry after a failure is
// safe. On a password mismatch the prior state is restored and
// ErrPasswordMismatch returned. It returns the number of records
// re-encrypted.
func (r *Reconciler) AdoptForeignKeyState(ctx context.Context, foreign *secrets.Session, foreignState secrets.KeyState, password string, prior *secrets.KeyState) (int, error) {
	local, err := r.session()
	if err != nil {
		return 0, err
	}
	recs, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, rec := range recs {
		if _, err := foreign.DecryptString(rec.Ciphertext); err == nil {
			continue
		}
		plaintext, err := local.DecryptString(rec.Ciphertext)
		if errors.Is(err, kerrors.ErrNoSession) {
			return migrated, err
		}
		if err != nil {
			r.log.Warnf("Entry %d opens under neither key, leaving it as is", rec.ID)
			continue
		}
		ct, err := foreign.EncryptString(plaintext)
		if err != nil {
			return migrated, err
		}
		if local.Revoked() {
			return migrated, kerrors.ErrNoSession
		}
		if err := r.store.PutAtID(ctx, records.Record{ID: rec.ID, Ciphertext: ct, CreatedAt: rec.CreatedAt}); err != nil {
			return migrated, err
		}
		migrated++
	}
	if local.Revoked() {
		return migrated, kerrors.ErrNoSession
	}

	if err := r.keys.ImportState(foreignState); err != nil {
		return migrated, err
	}
	ok, err := r.keys.TryUnlock(password)
	if err == nil && ok {
		r.log.Infof("Adopted backup key state, %d entries re-encrypted", migrated)
		return migrated, nil
	}

	if prior != nil {
		if restoreErr := r.keys.ImportState(*prior); restoreErr != nil {
			return migrated, errors.Join(kerrors.ErrPasswordMismatch, restoreErr)
		}
	}
	if err != nil {
		return migrated, errors.Join(kerrors.ErrPasswordMismatch, err)
	}
	return migrated, kerrors.ErrPasswordMismatch
}
