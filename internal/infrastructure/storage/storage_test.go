package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProposalLens/internal/config"
	"ProposalLens/internal/domain"
	"ProposalLens/internal/ports"
)

func testSQLite(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "test:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

// exerciseStore checks the cache contract every backend must honour.
func exerciseStore(t *testing.T, store ports.Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "absent")
	require.NoError(t, err, "missing key must not be an error")
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, domain.ProposalsKey, `[{"id":"1"}]`))
	value, found, err := store.Get(ctx, domain.ProposalsKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"1"}]`, value)

	// Last writer wins; identical rewrite is harmless.
	require.NoError(t, store.Set(ctx, domain.ProposalsKey, `[]`))
	require.NoError(t, store.Set(ctx, domain.ProposalsKey, `[]`))
	value, _, _ = store.Get(ctx, domain.ProposalsKey)
	assert.Equal(t, `[]`, value)

	key := domain.SummaryKey("Buy tokens")
	require.NoError(t, store.Set(ctx, key, "A summary."))
	value, found, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "A summary.", value)

	require.NoError(t, store.Remove(ctx, key))
	require.NoError(t, store.Remove(ctx, key), "removing twice is fine")
	_, found, _ = store.Get(ctx, key)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "other", "x"))
	require.NoError(t, store.Clear(ctx))
	_, found, _ = store.Get(ctx, domain.ProposalsKey)
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "other")
	assert.False(t, found)
}

func TestSQLiteStoreContract(t *testing.T) {
	exerciseStore(t, testSQLite(t))
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := testRedis(t)
	exerciseStore(t, store)
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	ctx := context.Background()

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "body-key", "persisted"))
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "body-key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "persisted", value)

	n, err := reopened.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoresLargeBodies(t *testing.T) {
	store := testSQLite(t)
	ctx := context.Background()

	big := make([]byte, 256*1024)
	for i := range big {
		big[i] = 'a' + byte(i%26)
	}
	require.NoError(t, store.Set(ctx, domain.ProposalsKey, string(big)))

	value, found, err := store.Get(ctx, domain.ProposalsKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, value, len(big))
}

func TestRedisStoreUsesPrefixAndNoExpiry(t *testing.T) {
	store, mr := testRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	got, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Zero(t, mr.TTL("test:k"))

	require.NoError(t, mr.Set("unrelated", "keep"))
	require.NoError(t, store.Clear(ctx))
	assert.True(t, mr.Exists("unrelated"), "clear only touches the prefix")
	assert.False(t, mr.Exists("test:k"))
}

func TestRedisStoreSurfacesCacheErrors(t *testing.T) {
	store, mr := testRedis(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, domain.IsCacheError(err))
}

func TestNewRedisStoreRequiresURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "", "")
	assert.Error(t, err)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.Error(t, err)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.CacheConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	sqlite, err := Open(ctx, config.CacheConfig{Driver: "SQLite", Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, sqlite)
	require.NoError(t, sqlite.Close())

	mr := miniredis.RunT(t)
	rs, err := Open(ctx, config.CacheConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, rs)
	require.NoError(t, rs.Close())

	store, err := Open(ctx, config.CacheConfig{Driver: "etcd"})
	require.Error(t, err)
	assert.Nil(t, store)
}

func TestRedisStorePing(t *testing.T) {
	store, mr := testRedis(t)
	require.NoError(t, store.Ping(context.Background()))

	addr := mr.Addr()
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))

	_, err := NewRedisStore(context.Background(), "redis://"+addr, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
