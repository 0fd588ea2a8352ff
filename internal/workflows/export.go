package workflows

import (
	"context"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/backup"
	"github.com/PolarWolf314/diario/internal/dropbox"
	"github.com/PolarWolf314/diario/internal/utils"
)

// ExportOptions configures ExportBackup.
type ExportOptions struct {
	// OutputPath is a file or an existing directory to write the backup to.
	// If empty, nothing is written and the caller uses Data.
	OutputPath string
}

// ExportResult contains the outcome of an export.
type ExportResult struct {
	// Data is the backup file content.
	Data []byte

	// Filename is the conventional name for the backup.
	Filename string

	// Path is where the backup was written, if anywhere.
	Path string

	// Count is the number of entries in the backup.
	Count int
}

// UploadResult contains the outcome of an upload.
type UploadResult struct {
	Metadata *dropbox.Metadata
	Count    int
}

func (j *Journal) buildBackup(ctx context.Context) (*ExportResult, error) {
	if _, err := j.session(); err != nil {
		return nil, err
	}
	recs, err := j.store.List(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := j.keys.ExportState()
	if err != nil {
		return nil, err
	}

	now := j.now()
	data, err := backup.Build(recs, meta, now).Marshal()
	if err != nil {
		return nil, err
	}
	return &ExportResult{Data: data, Filename: backup.Filename(now), Count: len(recs)}, nil
}

// ExportBackup serializes every entry together with the key state needed to
// open them on another device. Entries stay encrypted.
//
// Returns ErrNoSession if the journal is locked.
func (j *Journal) ExportBackup(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	result, err := j.buildBackup(ctx)
	if err != nil {
		return nil, err
	}

	if opts.OutputPath != "" {
		path := opts.OutputPath
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, result.Filename)
		}
		if err := utils.WriteFileAtomic(path, result.Data, 0600); err != nil {
			return nil, err
		}
		result.Path = path
	}

	j.trail.Log(audit.Entry{Operation: audit.OpExport, Count: result.Count, Path: result.Path})
	return result, nil
}

// UploadBackup uploads a fresh backup to the Dropbox folder and records the
// sync time.
//
// Returns ErrNoSession if the journal is locked.
// Returns ErrNotLinked if Dropbox is not connected.
// Returns ErrAuthRevoked if Dropbox rejected the tokens; they are cleared.
func (j *Journal) UploadBackup(ctx context.Context) (*UploadResult, error) {
	result, err := j.buildBackup(ctx)
	if err != nil {
		return nil, err
	}

	var meta *dropbox.Metadata
	err = j.tokens.Call(ctx, func(ctx context.Context, c *dropbox.Client, token string) error {
		var err error
		meta, err = c.Upload(ctx, token, c.PathFor(result.Filename), result.Data)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := j.tokens.MarkSynced(j.now()); err != nil {
		j.log.Warnf("Could not record sync time: %v", err)
	}
	j.trail.Log(audit.Entry{Operation: audit.OpUpload, Count: result.Count, Path: meta.PathDisplay})
	return &UploadResult{Metadata: meta, Count: result.Count}, nil
}
