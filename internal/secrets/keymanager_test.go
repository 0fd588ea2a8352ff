package secrets

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/kv"
)

// testIterations keeps derivation fast in tests that are not about the work
// factor itself.
const testIterations = 1000

func newTestManager(t *testing.T) (*KeyManager, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewKeyManager(store, Options{Iterations: testIterations}), store
}

func TestEndToEndCorrectHorse(t *testing.T) {
	km := NewKeyManager(kv.NewMemoryStore(), Options{})

	require.NoError(t, km.SetPassword("correct-horse"))
	km.Lock()

	ok, err := km.TryUnlock("correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = km.TryUnlock("wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// A rejected attempt leaves the earlier session in place.
	assert.True(t, km.IsUnlocked())

	stored, err := km.EncryptString("hello")
	require.NoError(t, err)

	km.Lock()
	_, err = km.DecryptString(stored)
	assert.ErrorIs(t, err, kerrors.ErrNoSession)

	state, err := km.ExportState()
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, state.Iterations)
}

func TestSetPasswordWeak(t *testing.T) {
	km, store := newTestManager(t)

	err := km.SetPassword("12345")
	assert.ErrorIs(t, err, kerrors.ErrWeakSecret)
	assert.Equal(t, 0, store.Len())
	assert.False(t, km.IsUnlocked())
}

func TestSetPasswordReusesSalt(t *testing.T) {
	km, _ := newTestManager(t)

	require.NoError(t, km.SetPassword("first-password"))
	first, err := km.ExportState()
	require.NoError(t, err)

	require.NoError(t, km.SetPassword("second-password"))
	second, err := km.ExportState()
	require.NoError(t, err)

	assert.Equal(t, first.Salt, second.Salt)
	assert.False(t, first.Verifier.Equal(second.Verifier))

	km.Lock()
	ok, _ := km.TryUnlock("first-password")
	assert.False(t, ok)
	ok, _ = km.TryUnlock("second-password")
	assert.True(t, ok)
}

func TestSetPasswordRejectsCorruptSalt(t *testing.T) {
	km, store := newTestManager(t)
	require.NoError(t, km.SetPassword("first-password"))
	state, err := km.ExportState()
	require.NoError(t, err)

	state.Salt = "not base64!"
	require.NoError(t, kv.SetJSON(store, SlotKeyState, state))

	err = km.SetPassword("second-password")
	assert.ErrorIs(t, err, kerrors.ErrInvalidKeyState)

	stored, err := km.ExportState()
	require.NoError(t, err)
	assert.Equal(t, "not base64!", stored.Salt, "the stored state must be left alone")
}

func TestTryUnlockWithoutState(t *testing.T) {
	km, _ := newTestManager(t)

	ok, err := km.TryUnlock("anything")
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := km.HasKey()
	require.NoError(t, err)
	assert.False(t, has)
}

type failingStore struct{ kv.MemoryStore }

func (f *failingStore) Get(string) ([]byte, error) { return nil, errors.New("disk on fire") }

func TestTryUnlockStorageFault(t *testing.T) {
	km := NewKeyManager(&failingStore{}, Options{Iterations: testIterations})

	_, err := km.TryUnlock("password")
	assert.ErrorIs(t, err, kerrors.ErrStorageUnavailable)
}

func TestLockIsIdempotent(t *testing.T) {
	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("password"))

	var calls atomic.Int32
	km.OnLock(func() { calls.Add(1) })

	km.Lock()
	km.Lock()

	assert.False(t, km.IsUnlocked())
	assert.Nil(t, km.Session())
	assert.Equal(t, int32(1), calls.Load())

	_, err := km.EncryptString("x")
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
}

func TestSnapshotFailsAfterLock(t *testing.T) {
	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("password"))

	s := km.Session()
	ct, err := s.EncryptString("in flight")
	require.NoError(t, err)

	km.Lock()

	_, err = s.DecryptString(ct)
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
	_, err = s.EncryptString("later")
	assert.ErrorIs(t, err, kerrors.ErrNoSession)
	assert.True(t, s.Revoked())
}

func TestUnlockRevokesPreviousSession(t *testing.T) {
	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("password"))
	old := km.Session()

	ok, err := km.TryUnlock("password")
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, old.Revoked())
	assert.False(t, km.Session().Revoked())
}

func TestWrongKeyFailsDecryption(t *testing.T) {
	a, _ := newTestManager(t)
	b, _ := newTestManager(t)
	require.NoError(t, a.SetPassword("password-a"))
	require.NoError(t, b.SetPassword("password-b"))

	ct, err := a.EncryptString("secret")
	require.NoError(t, err)

	_, err = b.DecryptString(ct)
	assert.ErrorIs(t, err, kerrors.ErrDecryptionFailed)
}

func TestFreshIVPerCall(t *testing.T) {
	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("password"))

	x, err := km.EncryptString("same")
	require.NoError(t, err)
	y, err := km.EncryptString("same")
	require.NoError(t, err)

	ex, _ := ParseEnvelope(x)
	ey, _ := ParseEnvelope(y)
	assert.NotEqual(t, ex.IV, ey.IV)
	assert.Len(t, ex.IV, IVSize)
}

func TestCreateSessionIsIsolated(t *testing.T) {
	other, _ := newTestManager(t)
	require.NoError(t, other.SetPassword("foreign-password"))
	foreignState, err := other.ExportState()
	require.NoError(t, err)
	backupCT, err := other.EncryptString("from the other device")
	require.NoError(t, err)

	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("local-password"))
	local := km.Session()

	_, err = km.CreateSession(*foreignState, "nope")
	assert.ErrorIs(t, err, kerrors.ErrDecryptionFailed)

	foreign, err := km.CreateSession(*foreignState, "foreign-password")
	require.NoError(t, err)
	assert.Same(t, local, km.Session())

	pt, err := foreign.DecryptString(backupCT)
	require.NoError(t, err)
	assert.Equal(t, "from the other device", pt)

	// Locking the manager leaves the isolated session usable.
	km.Lock()
	_, err = foreign.DecryptString(backupCT)
	assert.NoError(t, err)
}

func TestImportStateLocks(t *testing.T) {
	other, _ := newTestManager(t)
	require.NoError(t, other.SetPassword("foreign-password"))
	foreignState, _ := other.ExportState()

	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("local-password"))

	require.NoError(t, km.ImportState(*foreignState))
	assert.False(t, km.IsUnlocked())

	ok, _ := km.TryUnlock("local-password")
	assert.False(t, ok)
	ok, _ = km.TryUnlock("foreign-password")
	assert.True(t, ok)

	bad := *foreignState
	bad.Hash = "MD5"
	assert.ErrorIs(t, km.ImportState(bad), kerrors.ErrInvalidKeyState)
}

func TestIdleLockThroughManager(t *testing.T) {
	var now atomic.Int64
	start := time.Unix(1_700_000_000, 0)
	now.Store(start.UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	km := NewKeyManager(kv.NewMemoryStore(), Options{
		Iterations:        testIterations,
		IdleTimeout:       time.Minute,
		IdleCheckInterval: 5 * time.Millisecond,
		Now:               clock,
	})
	locked := make(chan struct{}, 4)
	km.OnLock(func() { locked <- struct{}{} })

	require.NoError(t, km.SetPassword("password"))
	now.Add(int64(2 * time.Minute))

	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("idle watcher did not lock")
	}
	assert.False(t, km.IsUnlocked())

	// A new unlock gets a fresh watcher which must not fire immediately.
	ok, err := km.TryUnlock("password")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)
	assert.True(t, km.IsUnlocked())
	assert.Len(t, locked, 0)
	km.Lock()
}

func TestRoundTripProperty(t *testing.T) {
	km, _ := newTestManager(t)
	require.NoError(t, km.SetPassword("property-password"))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("decrypt(encrypt(s)) == s", prop.ForAll(
		func(s string) bool {
			ct, err := km.EncryptString(s)
			if err != nil {
				return false
			}
			pt, err := km.DecryptString(ct)
			return err == nil && pt == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
