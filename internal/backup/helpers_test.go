package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/kv"
	logger "github.com/PolarWolf314/diario/internal/logging"
	"github.com/PolarWolf314/diario/internal/records"
	"github.com/PolarWolf314/diario/internal/secrets"
)

const (
	localPassword   = "local-password"
	foreignPassword = "foreign-password"
)

type fixture struct {
	km    *secrets.KeyManager
	store *records.Store
	rec   *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := records.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	km := secrets.NewKeyManager(kv.NewMemoryStore(), secrets.Options{Iterations: 1000})
	require.NoError(t, km.SetPassword(localPassword))

	return &fixture{km: km, store: store, rec: NewReconciler(km, store, logger.Discard())}
}

// foreignKey builds a key state and session unrelated to the fixture's key.
func foreignKey(t *testing.T) (secrets.KeyState, *secrets.Session) {
	t.Helper()
	other := secrets.NewKeyManager(kv.NewMemoryStore(), secrets.Options{Iterations: 1000})
	require.NoError(t, other.SetPassword(foreignPassword))
	state, err := other.ExportState()
	require.NoError(t, err)
	session, err := other.CreateSession(*state, foreignPassword)
	require.NoError(t, err)
	return *state, session
}

func seal(t *testing.T, c secrets.Cipher, title string, createdAt int64) string {
	t.Helper()
	ct, err := journal.NewPayload(title, title+" body", time.UnixMilli(createdAt)).Seal(c)
	require.NoError(t, err)
	return ct
}

func (f *fixture) add(t *testing.T, title string, createdAt int64) records.Record {
	t.Helper()
	ct := seal(t, f.km.Session(), title, createdAt)
	id, err := f.store.Add(context.Background(), ct, createdAt)
	require.NoError(t, err)
	return records.Record{ID: id, Ciphertext: ct, CreatedAt: createdAt}
}

func (f *fixture) titles(t *testing.T, dec journal.Decryptor) map[int64]string {
	t.Helper()
	recs, err := f.store.List(context.Background())
	require.NoError(t, err)
	out := make(map[int64]string, len(recs))
	for _, d := range journal.DescribeAll(dec, recs) {
		out[d.Record.ID] = d.Title()
	}
	return out
}
