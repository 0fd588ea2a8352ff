package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/biometric"
	"github.com/PolarWolf314/diario/internal/configs"
	"github.com/PolarWolf314/diario/internal/dropbox"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	logger "github.com/PolarWolf314/diario/internal/logging"
)

var testNow = time.Date(2026, 6, 12, 8, 30, 0, 0, time.UTC)

type remoteFile struct {
	meta dropbox.Metadata
	data []byte
}

// fakeDropbox serves the token, account and file endpoints the journal uses.
type fakeDropbox struct {
	srv *httptest.Server

	mu       sync.Mutex
	files    map[string]remoteFile
	uploads  int
	modified time.Time
}

func newFakeDropbox(t *testing.T) *fakeDropbox {
	t.Helper()
	f := &fakeDropbox{files: map[string]remoteFile{}, modified: testNow}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer","expires_in":14400,"account_id":"dbid:1"}`)
	})
	mux.HandleFunc("/2/users/get_current_account", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"account_id":"dbid:1","name":{"display_name":"Ada"},"email":"ada@example.com"}`)
	})
	mux.HandleFunc("/2/files/list_folder", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		entries := make([]dropbox.Metadata, 0, len(f.files))
		for _, file := range f.files {
			entries = append(entries, file.meta)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].PathLower < entries[j].PathLower })
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries, "cursor": "c1", "has_more": false})
	})
	mux.HandleFunc("/2/files/upload", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.uploads++
		f.modified = f.modified.Add(time.Minute)
		meta := dropbox.Metadata{
			Tag:            "file",
			Name:           path.Base(arg.Path),
			PathLower:      strings.ToLower(arg.Path),
			PathDisplay:    arg.Path,
			ID:             fmt.Sprintf("id:%d", f.uploads),
			Rev:            fmt.Sprintf("rev%d", f.uploads),
			Size:           int64(len(data)),
			ServerModified: f.modified,
		}
		f.files[meta.PathLower] = remoteFile{meta: meta, data: data}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(meta)
	})
	mux.HandleFunc("/2/files/download", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		_ = json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg)

		f.mu.Lock()
		file, ok := f.files[strings.ToLower(arg.Path)]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error_summary":"path/not_found/"}`)
			return
		}
		_, _ = w.Write(file.data)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// put stores a file as if another device had uploaded it.
func (f *fakeDropbox) put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified = f.modified.Add(time.Minute)
	p := "/Diario/" + name
	f.files[strings.ToLower(p)] = remoteFile{
		meta: dropbox.Metadata{
			Tag:            "file",
			Name:           name,
			PathLower:      strings.ToLower(p),
			PathDisplay:    p,
			ServerModified: f.modified,
		},
		data: data,
	}
}

func openJournal(t *testing.T, f *fakeDropbox, dir string) *Journal {
	t.Helper()
	settings, err := configs.ResolveSettings(dir)
	require.NoError(t, err)

	cfg := configs.Default()
	cfg.Device.ID = configs.GenerateDeviceID()
	cfg.Device.Name = filepath.Base(dir)
	cfg.WebAuthn.Authenticator = configs.AuthenticatorSoftware

	var dbx dropbox.Config
	if f != nil {
		dbx = dropbox.Config{
			AuthURL:    f.srv.URL + "/oauth2/authorize",
			TokenURL:   f.srv.URL + "/oauth2/token",
			APIURL:     f.srv.URL,
			ContentURL: f.srv.URL,
			HTTPClient: f.srv.Client(),
		}
	}

	j, err := Open(Options{
		Settings:      settings,
		Config:        cfg,
		Logger:        logger.Discard(),
		Now:           func() time.Time { return testNow },
		Dropbox:       dbx,
		KeyIterations: 1000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newUnlocked(t *testing.T, f *fakeDropbox, password string) *Journal {
	t.Helper()
	j := openJournal(t, f, t.TempDir())
	require.NoError(t, j.SetPassword(context.Background(), password))
	return j
}

func addEntries(t *testing.T, j *Journal, titles ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		res, err := j.AddEntry(context.Background(), AddEntryOptions{Title: title, Content: "about " + title})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	return ids
}

func connect(t *testing.T, j *Journal) {
	t.Helper()
	authURL, err := j.ConnectDropbox("appkey123")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)

	status, err := j.CompleteDropbox(context.Background(), "http://localhost:53682/callback?code=the-code&state="+u.Query().Get("state"))
	require.NoError(t, err)
	require.True(t, status.Linked)
}

func titlesOf(t *testing.T, j *Journal) []string {
	t.Helper()
	entries, err := j.ListEntries(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		require.True(t, e.OK(), "entry %d should decrypt: %v", e.Record.ID, e.Err)
		out = append(out, e.Title())
	}
	sort.Strings(out)
	return out
}

func TestSetPasswordAndUnlock(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, nil, t.TempDir())

	ok, err := j.Initialized()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, j.Unlock(ctx, "whatever"), kerrors.ErrNotInitialized)

	require.NoError(t, j.SetPassword(ctx, "password-a"))
	assert.True(t, j.IsUnlocked())
	assert.ErrorIs(t, j.SetPassword(ctx, "password-b"), kerrors.ErrAlreadyInitialized)

	j.Lock()
	assert.False(t, j.IsUnlocked())
	assert.ErrorIs(t, j.Unlock(ctx, "password-b"), kerrors.ErrWrongPassword)
	assert.False(t, j.IsUnlocked())

	require.NoError(t, j.Unlock(ctx, "password-a"))
	assert.True(t, j.IsUnlocked())

	entries, err := audit.ReadEntries(j.Settings().AuditLogPath)
	require.NoError(t, err)
	ops := make([]string, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, e.Operation)
	}
	assert.Equal(t, []string{audit.OpSetPassword, audit.OpLock, audit.OpUnlock, audit.OpUnlock}, ops)
	assert.NotEmpty(t, entries[2].Error, "failed unlock is recorded with its error")
	assert.Empty(t, entries[3].Error)
}

func TestSetPasswordRejectsShortPassword(t *testing.T) {
	j := openJournal(t, nil, t.TempDir())
	assert.ErrorIs(t, j.SetPassword(context.Background(), "abc"), kerrors.ErrWeakSecret)

	ok, err := j.Initialized()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntriesLifecycle(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	ids := addEntries(t, j, "first", "second")

	assert.Equal(t, []string{"first", "second"}, titlesOf(t, j))

	got, err := j.GetEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title())
	assert.Equal(t, "about first", got.Payload.Content)

	require.NoError(t, j.DeleteEntry(ctx, ids[0]))
	_, err = j.GetEntry(ctx, ids[0])
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)
	assert.ErrorIs(t, j.DeleteEntry(ctx, ids[0]), kerrors.ErrRecordNotFound)
	assert.Equal(t, []string{"second"}, titlesOf(t, j))
}

func TestLockedJournalRefusesWrites(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	ids := addEntries(t, j, "kept")
	j.Lock()

	_, err := j.AddEntry(ctx, AddEntryOptions{Title: "nope"})
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
	_, err = j.GetEntry(ctx, ids[0])
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
	assert.ErrorIs(t, j.DeleteEntry(ctx, ids[0]), kerrors.ErrNoSession)
	_, err = j.ExportBackup(ctx, ExportOptions{})
	assert.ErrorIs(t, err, kerrors.ErrNoSession)

	entries, err := j.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OK(), "locked entries are listed but not readable")
}

func TestAddEntryWithPhoto(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")

	// Smallest valid GIF.
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
	photo := filepath.Join(t.TempDir(), "pixel.gif")
	require.NoError(t, os.WriteFile(photo, gif, 0600))

	res, err := j.AddEntry(ctx, AddEntryOptions{Title: "with photo", Content: "look", PhotoPath: photo})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Payload.Photo, "data:image/gif;base64,"))

	got, err := j.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Payload.Photo, got.Payload.Photo)
}

func TestExportAndRestoreSameKey(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	addEntries(t, j, "one", "two")

	dir := t.TempDir()
	exported, err := j.ExportBackup(ctx, ExportOptions{OutputPath: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, exported.Count)
	assert.Equal(t, filepath.Join(dir, "diario-backup-2026-06-12.json"), exported.Path)

	info, err := os.Stat(exported.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.Equal(t, exported.Data, data)

	p, err := j.PrepareRestore(ctx, data, "")
	require.NoError(t, err)
	assert.Nil(t, p.ForeignState)
	assert.False(t, p.NeedsPassword)
	assert.Equal(t, 2, p.Diff.IdenticalCount)
	assert.True(t, p.Diff.Empty())

	res, err := j.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, []string{"one", "two"}, titlesOf(t, j))
}

func TestPrepareRestoreRejectsMalformed(t *testing.T) {
	j := newUnlocked(t, nil, "password-a")
	_, err := j.PrepareRestore(context.Background(), []byte("not json"), "")
	assert.ErrorIs(t, err, kerrors.ErrMalformedBackup)
}

func TestReplaceWithEmptyBackupIsRefused(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	addEntries(t, j, "one", "two")

	meta, err := j.Keys().ExportState()
	require.NoError(t, err)
	metaJSON, err := json.Marshal(meta)
	require.NoError(t, err)

	for name, data := range map[string]string{
		"legacy":  "[]",
		"current": `{"version":2,"meta":` + string(metaJSON) + `,"entries":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := j.PrepareRestore(ctx, []byte(data), "")
			assert.ErrorIs(t, err, kerrors.ErrMalformedBackup)
		})
	}
	assert.ElementsMatch(t, []string{"one", "two"}, titlesOf(t, j))
}

func TestReplaceRestore(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	addEntries(t, j, "old")

	exported, err := j.ExportBackup(ctx, ExportOptions{})
	require.NoError(t, err)
	assert.Empty(t, exported.Path)

	addEntries(t, j, "newer")
	p, err := j.PrepareRestore(ctx, exported.Data, "")
	require.NoError(t, err)

	res, err := j.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreReplace})
	require.NoError(t, err)
	assert.Equal(t, RestoreReplace, res.Mode)
	assert.Equal(t, []string{"old"}, titlesOf(t, j))
}

func TestDropboxRoundTripAndAdoption(t *testing.T) {
	ctx := context.Background()
	f := newFakeDropbox(t)

	a := newUnlocked(t, f, "password-a")
	addEntries(t, a, "alpha", "beta")
	connect(t, a)

	status := a.DropboxStatus()
	assert.Equal(t, "Ada", status.AccountName)
	assert.Equal(t, "ada@example.com", status.Email)
	assert.True(t, status.LastSync.IsZero())

	up, err := a.UploadBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, up.Count)
	assert.Equal(t, "/Diario/diario-backup-2026-06-12.json", up.Metadata.PathDisplay)
	assert.True(t, a.DropboxStatus().LastSync.Equal(testNow))

	b := newUnlocked(t, f, "password-b")
	// Keep gamma clear of the ids used by the backup.
	scratch := addEntries(t, b, "scratch-1", "scratch-2", "gamma")
	require.NoError(t, b.DeleteEntry(ctx, scratch[0]))
	require.NoError(t, b.DeleteEntry(ctx, scratch[1]))
	connect(t, b)

	remote, err := b.ListRemoteBackups(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)

	p, err := b.PrepareRemoteRestore(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, p.NeedsPassword)
	assert.True(t, p.Remote)
	assert.NotNil(t, p.ForeignState)
	assert.True(t, p.Diff.Blocked())

	_, err = b.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge})
	assert.ErrorIs(t, err, kerrors.ErrUndescribable)
	assert.True(t, b.DropboxStatus().LastSync.IsZero(), "a failed restore is not a sync")

	_, err = b.PrepareRemoteRestore(ctx, "", "not-the-password")
	assert.ErrorIs(t, err, kerrors.ErrPasswordMismatch)

	p, err = b.PrepareRemoteRestore(ctx, remote[0].PathLower, "password-a")
	require.NoError(t, err)
	assert.True(t, p.Foreign())
	assert.Len(t, p.Diff.NewEntries, 2)
	assert.Empty(t, p.Diff.Conflicts)

	res, err := b.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge, Adopt: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.True(t, res.Adopted)
	assert.Equal(t, 1, res.Migrated)
	assert.False(t, res.BiometricDisabled)
	assert.True(t, b.DropboxStatus().LastSync.Equal(testNow))

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, titlesOf(t, b))

	b.Lock()
	assert.ErrorIs(t, b.Unlock(ctx, "password-b"), kerrors.ErrWrongPassword)
	require.NoError(t, b.Unlock(ctx, "password-a"))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, titlesOf(t, b))

	// The tokens were carried across the key change.
	_, err = b.ListRemoteBackups(ctx)
	require.NoError(t, err)
}

func TestMergeConflictBackupWins(t *testing.T) {
	ctx := context.Background()
	a := newUnlocked(t, nil, "password-a")
	addEntries(t, a, "from a")
	exported, err := a.ExportBackup(ctx, ExportOptions{})
	require.NoError(t, err)

	b := newUnlocked(t, nil, "password-b")
	addEntries(t, b, "local")

	p, err := b.PrepareRestore(ctx, exported.Data, "password-a")
	require.NoError(t, err)
	require.Len(t, p.Diff.Conflicts, 1)
	assert.Equal(t, "local", p.Diff.Conflicts[0].Local.Title())
	assert.Equal(t, "from a", p.Diff.Conflicts[0].Backup.Title())

	res, err := b.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, []string{"from a"}, titlesOf(t, b))
}

func TestForeignMergeWithoutAdoption(t *testing.T) {
	ctx := context.Background()
	a := newUnlocked(t, nil, "password-a")
	addEntries(t, a, "from a")
	exported, err := a.ExportBackup(ctx, ExportOptions{})
	require.NoError(t, err)

	b := newUnlocked(t, nil, "password-b")
	p, err := b.PrepareRestore(ctx, exported.Data, "password-a")
	require.NoError(t, err)

	res, err := b.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.False(t, res.Adopted)

	// The entry was re-encrypted, so the local password still opens it.
	b.Lock()
	require.NoError(t, b.Unlock(ctx, "password-b"))
	assert.Equal(t, []string{"from a"}, titlesOf(t, b))
}

func TestDownloadWithoutBackups(t *testing.T) {
	f := newFakeDropbox(t)
	j := newUnlocked(t, f, "password-a")
	connect(t, j)

	_, _, err := j.DownloadBackup(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRemoteBackups)
}

func TestDownloadPicksNewest(t *testing.T) {
	ctx := context.Background()
	f := newFakeDropbox(t)
	f.put("diario-backup-2026-01-01.json", []byte(`[]`))
	f.put("notes.txt", []byte(`ignored`))
	f.put("diario-backup-2026-02-01.json", []byte(`{"version":2,"entries":[]}`))

	j := newUnlocked(t, f, "password-a")
	connect(t, j)

	data, meta, err := j.DownloadBackup(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "diario-backup-2026-02-01.json", meta.Name)
	assert.JSONEq(t, `{"version":2,"entries":[]}`, string(data))
}

func TestDropboxRequiresConnection(t *testing.T) {
	ctx := context.Background()
	f := newFakeDropbox(t)
	j := newUnlocked(t, f, "password-a")

	_, err := j.UploadBackup(ctx)
	assert.ErrorIs(t, err, kerrors.ErrNotLinked)

	_, err = j.ConnectDropbox("")
	assert.ErrorIs(t, err, kerrors.ErrMissingAppKey)

	j.Lock()
	_, err = j.ConnectDropbox("appkey123")
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
}

func TestCompleteDropboxStateMismatch(t *testing.T) {
	f := newFakeDropbox(t)
	j := newUnlocked(t, f, "password-a")

	_, err := j.ConnectDropbox("appkey123")
	require.NoError(t, err)
	_, err = j.CompleteDropbox(context.Background(), "?code=the-code&state=forged")
	assert.ErrorIs(t, err, kerrors.ErrStateMismatch)
	assert.False(t, j.DropboxStatus().Linked)
}

func TestDisconnectDropbox(t *testing.T) {
	ctx := context.Background()
	f := newFakeDropbox(t)
	j := newUnlocked(t, f, "password-a")
	connect(t, j)
	_, err := j.UploadBackup(ctx)
	require.NoError(t, err)

	require.NoError(t, j.DisconnectDropbox())
	st := j.DropboxStatus()
	assert.False(t, st.Linked)
	assert.True(t, st.LastSync.IsZero())
	assert.Equal(t, "appkey123", st.AppKey, "the app key is kept for reconnecting")

	require.NoError(t, j.AcknowledgeDropboxStatus())
	assert.Empty(t, j.DropboxStatus().LastAuthResult)
}

func TestTokensSurviveLockAndReopen(t *testing.T) {
	ctx := context.Background()
	f := newFakeDropbox(t)
	dir := t.TempDir()

	j := openJournal(t, f, dir)
	require.NoError(t, j.SetPassword(ctx, "password-a"))
	connect(t, j)
	require.NoError(t, j.Close())

	j = openJournal(t, f, dir)
	st := j.DropboxStatus()
	assert.True(t, st.Linked, "status is readable while locked")
	assert.Equal(t, "ada@example.com", st.Email)

	_, err := j.ListRemoteBackups(ctx)
	assert.ErrorIs(t, err, kerrors.ErrNoSession)

	require.NoError(t, j.Unlock(ctx, "password-a"))
	_, err = j.ListRemoteBackups(ctx)
	require.NoError(t, err)
}

func TestDefaultConfigHasNoBiometric(t *testing.T) {
	ctx := context.Background()
	settings, err := configs.ResolveSettings(t.TempDir())
	require.NoError(t, err)
	cfg := configs.Default()
	cfg.Device.ID = configs.GenerateDeviceID()

	j, err := Open(Options{Settings: settings, Config: cfg, Logger: logger.Discard(), KeyIterations: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	require.NoError(t, j.SetPassword(ctx, "password-a"))

	assert.ErrorIs(t, j.EnableBiometric(ctx, "password-a"), kerrors.ErrBiometricUnsupported)
	assert.Equal(t, biometric.Unregistered, j.BiometricStatus(ctx).State)
}

func TestBiometricFlow(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")

	st := j.BiometricStatus(ctx)
	assert.Equal(t, biometric.Unregistered, st.State)
	assert.True(t, st.Available)
	assert.ErrorIs(t, j.UnlockBiometric(ctx), kerrors.ErrBiometricNotEnrolled)

	assert.ErrorIs(t, j.EnableBiometric(ctx, "wrong-password"), kerrors.ErrWrongPassword)
	require.NoError(t, j.EnableBiometric(ctx, "password-a"))

	st = j.BiometricStatus(ctx)
	assert.Equal(t, biometric.Enrolled, st.State)
	require.NotNil(t, st.Credential)

	j.Lock()
	require.NoError(t, j.UnlockBiometric(ctx))
	assert.True(t, j.IsUnlocked())

	require.NoError(t, j.DisableBiometric())
	assert.Equal(t, biometric.Unregistered, j.BiometricStatus(ctx).State)
	j.Lock()
	assert.ErrorIs(t, j.UnlockBiometric(ctx), kerrors.ErrBiometricNotEnrolled)
}

func TestEnableBiometricKeepsSession(t *testing.T) {
	ctx := context.Background()
	j := newUnlocked(t, nil, "password-a")
	before := j.Keys().Session()
	require.NotNil(t, before)

	require.NoError(t, j.EnableBiometric(ctx, "password-a"))
	assert.Same(t, before, j.Keys().Session(), "enrolling must not replace the session")

	require.NoError(t, j.DisableBiometric())
	j.Lock()
	require.NoError(t, j.EnableBiometric(ctx, "password-a"))
	assert.False(t, j.Keys().IsUnlocked(), "enrolling must not unlock a locked journal")
}

func TestAdoptionDisablesBiometric(t *testing.T) {
	ctx := context.Background()
	a := newUnlocked(t, nil, "password-a")
	addEntries(t, a, "from a")
	exported, err := a.ExportBackup(ctx, ExportOptions{})
	require.NoError(t, err)

	b := newUnlocked(t, nil, "password-b")
	require.NoError(t, b.EnableBiometric(ctx, "password-b"))

	p, err := b.PrepareRestore(ctx, exported.Data, "password-a")
	require.NoError(t, err)
	res, err := b.ApplyRestore(ctx, p, RestoreOptions{Mode: RestoreMerge, Adopt: true})
	require.NoError(t, err)
	assert.True(t, res.Adopted)
	assert.True(t, res.BiometricDisabled)
	assert.Equal(t, biometric.Unregistered, b.BiometricStatus(ctx).State)
}

func TestParseRestoreMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RestoreMode
		wantErr bool
	}{
		{"merge", RestoreMerge, false},
		{" Replace ", RestoreReplace, false},
		{"overwrite", RestoreMerge, true},
	}
	for _, tt := range tests {
		got, err := ParseRestoreMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
	}
}
