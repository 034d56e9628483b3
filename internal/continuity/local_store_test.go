package continuity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/persistence"
)

func exerciseStore(t *testing.T, store LocalStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Read(ctx, KeyFallbackIdentity)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(ctx, KeyFallbackIdentity, []byte(`{"id":"mock-user-1"}`)))
	require.NoError(t, store.Write(ctx, KeyFallbackIdentity, []byte(`{"id":"mock-user-2"}`)))
	got, err := store.Read(ctx, KeyFallbackIdentity)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"mock-user-2"}`, string(got))

	require.NoError(t, store.Delete(ctx, KeyFallbackIdentity))
	_, err = store.Read(ctx, KeyFallbackIdentity)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, KeyFallbackIdentity))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.db")
	db, err := persistence.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	db, err := persistence.OpenSQLite(path)
	require.NoError(t, err)
	store, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, KeyFallbackTickets, []byte(`[]`)))
	require.NoError(t, db.Close())

	db, err = persistence.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err = NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	got, err := store.Read(ctx, KeyFallbackTickets)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestResolverOverSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := persistence.OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	resolver := NewResolver(&fakeRemote{down: true}, store, nil, nil)
	owner, err := resolver.EstablishFallbackIdentity(ctx)
	require.NoError(t, err)
	created, err := resolver.CreateTicket(ctx, printerJam())
	require.NoError(t, err)

	listed, err := resolver.ListTickets(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.True(t, created.CreatedAt.Equal(listed[0].CreatedAt))
	assert.Equal(t, created.TicketNumber, listed[0].TicketNumber)
}
