package store_test

import (
	"context"
	"testing"

	"github.com/agendauth/agendauth/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gotest.tools/v3/assert"
)

func newRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	s := store.NewRedisStoreWithClient(client, "agendauth:")

	t.Cleanup(func() {
		assert.NilError(t, s.Close())
	})

	return s
}

func TestRedisStoreCrud(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "tokens", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NilError(t, s.Put(ctx, "tokens", "t1", []byte(`{"app":"a1"}`)))

	value, err := s.Get(ctx, "tokens", "t1")
	assert.NilError(t, err)
	assert.Equal(t, string(value), `{"app":"a1"}`)

	assert.NilError(t, s.Delete(ctx, "tokens", "t1"))

	_, err = s.Get(ctx, "tokens", "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NilError(t, s.Delete(ctx, "tokens", "t1"))
}

func TestRedisStoreScan(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	assert.NilError(t, s.Put(ctx, "apps", "a1", []byte(`{"owner":"u1"}`)))
	assert.NilError(t, s.Put(ctx, "apps", "a2", []byte(`{"owner":"u2"}`)))
	assert.NilError(t, s.Put(ctx, "grants", "g1", []byte(`{"owner":"u1"}`)))

	results, err := s.Scan(ctx, "apps", "owner", "u1")
	assert.NilError(t, err)
	assert.Equal(t, len(results), 1)
	assert.Assert(t, results["a1"] != nil)
}

func TestRedisStorePing(t *testing.T) {
	s := newRedisStore(t)
	assert.NilError(t, s.Ping(context.Background()))
}
