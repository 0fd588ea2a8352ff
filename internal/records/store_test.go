package records

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddListGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id1, err := s.Add(ctx, `{"version":1}`, 100)
	require.NoError(t, err)
	id2, err := s.Add(ctx, `{"version":1,"x":2}`, 200)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Record{ID: id1, Ciphertext: `{"version":1}`, CreatedAt: 100}, list[0])

	r, err := s.Get(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), r.CreatedAt)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.Delete(ctx, 42)
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)

	_, err = s.Get(ctx, 42)
	assert.ErrorIs(t, err, kerrors.ErrRecordNotFound)
}

func TestPutAtIDOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.Add(ctx, "a", 1)
	require.NoError(t, err)

	require.NoError(t, s.PutAtID(ctx, Record{ID: id, Ciphertext: "b", CreatedAt: 2}))
	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "b", r.Ciphertext)

	// Writing at an unused id creates the row.
	require.NoError(t, s.PutAtID(ctx, Record{ID: 99, Ciphertext: "c", CreatedAt: 3}))
	n, _ := s.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestReplaceAllKeepsIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Add(ctx, "old", 1)
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAll(ctx, []Record{
		{ID: 7, Ciphertext: "seven", CreatedAt: 7},
		{Ciphertext: "fresh", CreatedAt: 8},
	}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Equal(t, "seven", list[0].Ciphertext)
	assert.Equal(t, "fresh", list[1].Ciphertext)
	assert.Greater(t, list[1].ID, int64(7))
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Add(ctx, "persisted", 5)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].Ciphertext)
}
