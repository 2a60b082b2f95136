package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agendauth/agendauth/internal/store"

	"gotest.tools/v3/assert"
)

func newSqliteStore(t *testing.T) *store.SqliteStore {
	t.Helper()

	s, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "agendauth.db"))
	assert.NilError(t, err)

	t.Cleanup(func() {
		assert.NilError(t, s.Close())
	})

	return s
}

func TestSqliteStoreCrud(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "apps", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NilError(t, s.Put(ctx, "apps", "a1", []byte(`{"owner":"u1"}`)))

	value, err := s.Get(ctx, "apps", "a1")
	assert.NilError(t, err)
	assert.Equal(t, string(value), `{"owner":"u1"}`)

	// Put replaces
	assert.NilError(t, s.Put(ctx, "apps", "a1", []byte(`{"owner":"u2"}`)))

	value, err = s.Get(ctx, "apps", "a1")
	assert.NilError(t, err)
	assert.Equal(t, string(value), `{"owner":"u2"}`)

	// Collections are disjoint
	_, err = s.Get(ctx, "grants", "a1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NilError(t, s.Delete(ctx, "apps", "a1"))

	_, err = s.Get(ctx, "apps", "a1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting a missing record is not an error
	assert.NilError(t, s.Delete(ctx, "apps", "a1"))
}

func TestSqliteStoreScan(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()

	assert.NilError(t, s.Put(ctx, "apps", "a1", []byte(`{"owner":"u1","name":"first"}`)))
	assert.NilError(t, s.Put(ctx, "apps", "a2", []byte(`{"owner":"u1","name":"second"}`)))
	assert.NilError(t, s.Put(ctx, "apps", "a3", []byte(`{"owner":"u2","name":"third"}`)))

	results, err := s.Scan(ctx, "apps", "owner", "u1")
	assert.NilError(t, err)
	assert.Equal(t, len(results), 2)
	assert.Assert(t, results["a1"] != nil)
	assert.Assert(t, results["a2"] != nil)

	results, err = s.Scan(ctx, "apps", "owner", "nobody")
	assert.NilError(t, err)
	assert.Equal(t, len(results), 0)
}
