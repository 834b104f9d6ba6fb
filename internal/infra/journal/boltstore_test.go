package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
)

func openTemp(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStore_PutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrJournalNotFound)

	in := usecase.JournalEntry{
		Reference:   "5sig",
		Fingerprint: "fp",
		MintAddress: "Mint111",
		Owner:       "Owner111",
		Name:        "Doge2",
		Symbol:      "DOGE2",
		Stage:       dom.StageSubmitting,
		Status:      usecase.JournalPending,
	}
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Get(ctx, "5sig")
	require.NoError(t, err)
	assert.Equal(t, "Doge2", got.Name)
	assert.Equal(t, dom.StageSubmitting, got.Stage)
	assert.Equal(t, usecase.JournalPending, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestBoltStore_UpdateKeepsCreatedAt(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.Put(ctx, usecase.JournalEntry{Reference: "r", Status: usecase.JournalPending}))

	s.now = func() time.Time { return t0.Add(time.Minute) }
	require.NoError(t, s.Put(ctx, usecase.JournalEntry{
		Reference: "r",
		Stage:     dom.StageDone,
		Status:    usecase.JournalConfirmed,
		Slot:      42,
	}))

	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
	assert.Equal(t, uint64(42), got.Slot)
	assert.Equal(t, usecase.JournalConfirmed, got.Status)
}

func TestBoltStore_ListOpen(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, st := range []usecase.JournalStatus{
		usecase.JournalConfirmed,
		usecase.JournalPending,
		usecase.JournalUnknown,
		usecase.JournalRejected,
	} {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		require.NoError(t, s.Put(ctx, usecase.JournalEntry{Reference: string(st), Status: st}))
	}

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "rejected", all[0].Reference, "newest first")

	open, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, usecase.JournalUnknown, open[0].Status)
	assert.Equal(t, usecase.JournalPending, open[1].Status)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, usecase.JournalEntry{Reference: "r", Status: usecase.JournalUnknown}))
	require.NoError(t, s.Close())

	s2, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, usecase.JournalUnknown, got.Status)
}

func TestBoltStore_EmptyReference(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Put(context.Background(), usecase.JournalEntry{}))
}
