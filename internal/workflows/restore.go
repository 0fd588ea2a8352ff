package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/backup"
	"github.com/PolarWolf314/diario/internal/biometric"
	"github.com/PolarWolf314/diario/internal/dropbox"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// ErrNoRemoteBackups indicates the Dropbox folder holds no backups.
var ErrNoRemoteBackups = errors.New("no backups found in Dropbox")

// RestoreMode represents the restore strategy.
type RestoreMode int

const (
	// RestoreMerge adds new entries and lets the backup win conflicts.
	RestoreMerge RestoreMode = iota
	// RestoreReplace substitutes the whole journal with the backup.
	RestoreReplace
)

func (m RestoreMode) String() string {
	if m == RestoreReplace {
		return "replace"
	}
	return "merge"
}

// ParseRestoreMode parses "merge" or "replace".
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge":
		return RestoreMerge, nil
	case "replace":
		return RestoreReplace, nil
	default:
		return RestoreMerge, fmt.Errorf("unknown restore mode %q (want merge or replace)", s)
	}
}

// PreparedRestore is a parsed backup and its diff against the journal,
// ready to be shown to the user and then applied.
type PreparedRestore struct {
	File *backup.File
	Diff *backup.Diff

	// ForeignState is the backup's key state when it differs from the local
	// one.
	ForeignState *secrets.KeyState

	// NeedsPassword is set when the backup uses another key and no password
	// for it was supplied. Its entries cannot be described until one is.
	NeedsPassword bool

	// Remote is set for backups downloaded from Dropbox; applying one
	// records a sync.
	Remote bool

	foreign         *secrets.Session
	foreignPassword string
}

// Foreign reports whether the backup was encrypted under another key and a
// working password for it was supplied.
func (p *PreparedRestore) Foreign() bool {
	return p.foreign != nil
}

// RestoreOptions configures ApplyRestore.
type RestoreOptions struct {
	Mode RestoreMode

	// Adopt moves the whole journal onto the backup's key and password.
	// Ignored unless the backup is foreign.
	Adopt bool
}

// RestoreResult contains the outcome of ApplyRestore.
type RestoreResult struct {
	Mode     RestoreMode
	Added    int
	Replaced int

	// Adopted is set when the journal now uses the backup's key.
	Adopted bool

	// Migrated counts entries re-encrypted during adoption.
	Migrated int

	// BiometricDisabled is set when adoption invalidated the biometric
	// enrollment.
	BiometricDisabled bool
}

// PrepareRestore parses data and diffs it against the journal. When the
// backup carries a key state other than the local one, foreignPassword is
// used to open it.
//
// Returns ErrNoSession if the journal is locked.
// Returns ErrMalformedBackup if data is not a backup.
// Returns ErrPasswordMismatch if foreignPassword does not open the backup's key.
func (j *Journal) PrepareRestore(ctx context.Context, data []byte, foreignPassword string) (*PreparedRestore, error) {
	if _, err := j.session(); err != nil {
		return nil, err
	}
	file, err := backup.Parse(data)
	if err != nil {
		return nil, err
	}
	p := &PreparedRestore{File: file}

	local, err := j.keys.ExportState()
	if err != nil {
		return nil, err
	}

	var alt journal.Decryptor
	if file.Meta != nil && (local == nil || !file.Meta.Equal(*local)) {
		state, err := file.Meta.Normalize()
		if err != nil {
			return nil, err
		}
		p.ForeignState = &state

		if foreignPassword == "" {
			p.NeedsPassword = true
		} else {
			foreign, err := j.keys.CreateSession(state, foreignPassword)
			if errors.Is(err, kerrors.ErrDecryptionFailed) {
				return nil, kerrors.ErrPasswordMismatch
			}
			if err != nil {
				return nil, err
			}
			p.foreign = foreign
			p.foreignPassword = foreignPassword
			alt = foreign
		}
	}

	p.Diff, err = j.reconciler.Diff(ctx, file.Records(), alt)
	if err != nil {
		return nil, err
	}
	j.keys.Touch()
	return p, nil
}

// ApplyRestore applies a prepared restore. The sync time is only recorded
// once everything, adoption included, has succeeded.
//
// Returns ErrUndescribable if the restore involves entries that could not be
// decrypted.
// Returns ErrPasswordMismatch if adoption failed; the prior key is restored.
func (j *Journal) ApplyRestore(ctx context.Context, p *PreparedRestore, opts RestoreOptions) (*RestoreResult, error) {
	adopt := opts.Adopt && p.Foreign()
	bopts := backup.Options{KeepForeign: adopt}

	var res backup.Result
	var err error
	switch opts.Mode {
	case RestoreReplace:
		res, err = j.reconciler.Replace(ctx, p.Diff, bopts)
	default:
		res, err = j.reconciler.Merge(ctx, p.Diff, bopts)
	}
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{Mode: opts.Mode, Added: res.Added, Replaced: res.Replaced}
	j.trail.Log(audit.Entry{Operation: audit.OpRestore, Mode: opts.Mode.String(), Added: res.Added, Replaced: res.Replaced})

	if adopt {
		if err := j.adopt(ctx, p, result); err != nil {
			return nil, err
		}
	}

	if p.Remote {
		if err := j.tokens.MarkSynced(j.now()); err != nil {
			j.log.Warnf("Could not record sync time: %v", err)
		}
	}
	return result, nil
}

// adopt re-encrypts the journal under the backup's key and carries the
// Dropbox tokens across.
func (j *Journal) adopt(ctx context.Context, p *PreparedRestore, result *RestoreResult) error {
	prior, err := j.keys.ExportState()
	if err != nil {
		return err
	}

	held, err := j.tokens.Current()
	if err != nil && !errors.Is(err, kerrors.ErrNotLinked) {
		j.log.Warnf("Dropbox tokens could not be read and will need reconnecting: %v", err)
	}

	migrated, err := j.reconciler.AdoptForeignKeyState(ctx, p.foreign, *p.ForeignState, p.foreignPassword, prior)
	if err != nil {
		return err
	}
	result.Adopted = true
	result.Migrated = migrated

	if held != nil {
		if err := j.tokens.Save(held); err != nil {
			j.log.Warnf("Could not re-seal Dropbox tokens: %v", err)
		}
	}
	if j.gate.State() != biometric.Unregistered {
		if err := j.gate.Disable(); err != nil {
			j.log.Warnf("Could not remove biometric enrollment: %v", err)
		} else {
			result.BiometricDisabled = true
		}
	}

	j.trail.Log(audit.Entry{Operation: audit.OpAdopt, Count: migrated})
	return nil
}

// ListRemoteBackups lists backups in the Dropbox folder, newest first.
func (j *Journal) ListRemoteBackups(ctx context.Context) ([]dropbox.Metadata, error) {
	var files []dropbox.Metadata
	err := j.tokens.Call(ctx, func(ctx context.Context, c *dropbox.Client, token string) error {
		var err error
		files, err = c.ListFolder(ctx, token, c.Config().Folder)
		return err
	})
	return files, err
}

// DownloadBackup fetches one backup. An empty path selects the newest.
func (j *Journal) DownloadBackup(ctx context.Context, path string) ([]byte, *dropbox.Metadata, error) {
	var meta *dropbox.Metadata
	if path == "" {
		files, err := j.ListRemoteBackups(ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(files) == 0 {
			return nil, nil, ErrNoRemoteBackups
		}
		meta = &files[0]
		path = meta.PathLower
		if path == "" {
			path = meta.PathDisplay
		}
	}

	var data []byte
	err := j.tokens.Call(ctx, func(ctx context.Context, c *dropbox.Client, token string) error {
		var err error
		data, err = c.Download(ctx, token, path)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if meta == nil {
		meta = &dropbox.Metadata{PathDisplay: path}
	}
	return data, meta, nil
}

// PrepareRemoteRestore downloads a backup and prepares it. An empty path
// selects the newest.
func (j *Journal) PrepareRemoteRestore(ctx context.Context, path, foreignPassword string) (*PreparedRestore, error) {
	data, _, err := j.DownloadBackup(ctx, path)
	if err != nil {
		return nil, err
	}
	p, err := j.PrepareRestore(ctx, data, foreignPassword)
	if err != nil {
		return nil, err
	}
	p.Remote = true
	return p, nil
}
