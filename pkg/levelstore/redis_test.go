package levelstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts StoreOptions) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, opts)
	require.NoError(t, err)
	return store, mr
}

func TestRedisStore_SaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestStore(t, StoreOptions{})

	require.NoError(t, store.Save(ctx, "intro", []byte("level-1")))
	require.NoError(t, store.Save(ctx, "boss", []byte("level-2")))
	assert.True(t, mr.Exists("LEVEL:SNAPSHOT:intro"))

	blob, err := store.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, []byte("level-1"), blob)

	// Property: saving again replaces the level without duplicating its name.
	require.NoError(t, store.Save(ctx, "intro", []byte("level-1b")))
	blob, err = store.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, []byte("level-1b"), blob)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"boss", "intro"}, names)

	require.NoError(t, store.Delete(ctx, "intro"))
	_, err = store.Load(ctx, "intro")
	assert.True(t, eris.Is(err, ErrLevelNotFound))
	assert.True(t, eris.Is(store.Delete(ctx, "intro"), ErrLevelNotFound))

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"boss"}, names)

	require.Error(t, store.Save(ctx, "", []byte("x")))
}

func TestRedisStore_Prefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestStore(t, StoreOptions{KeyPrefix: "WORLD2"})
	require.NoError(t, store.Save(ctx, "intro", []byte("x")))

	assert.True(t, mr.Exists("WORLD2:SNAPSHOT:intro"))
	assert.True(t, mr.Exists("WORLD2:SNAPSHOTS"))
	assert.False(t, mr.Exists("LEVEL:SNAPSHOT:intro"))

	_, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), StoreOptions{KeyPrefix: "A:B"})
	require.Error(t, err)
	_, err = NewRedisStore(nil, StoreOptions{})
	require.Error(t, err)
}

func TestRedisStore_Levels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t, StoreOptions{})

	src := newManager(t, ecs.NewTypeRegistry())
	positions, _ := populate(t, src)
	require.NoError(t, store.SaveLevel(ctx, "arena", src))

	dst := newManager(t, src.Registry())
	entities, err := store.LoadLevel(ctx, "arena", dst)
	require.NoError(t, err)
	assert.Len(t, entities, len(positions))
	for _, e := range entities {
		assert.Equal(t, positions[e.UUID()], *ecs.GetComponent[position](e))
	}

	_, err = store.LoadLevel(ctx, "missing", dst)
	assert.True(t, eris.Is(err, ErrLevelNotFound))
}

func TestRedisStore_Cache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestStore(t, StoreOptions{CacheSize: 1 << 20})

	require.NoError(t, store.Save(ctx, "intro", []byte("level-1")))
	blob, err := store.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, []byte("level-1"), blob)
	assert.Equal(t, int64(1), store.CacheHits())

	// Property: a cached level is served even when Redis lost it.
	mr.Del("LEVEL:SNAPSHOT:intro")
	blob, err = store.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, []byte("level-1"), blob)

	// Property: saving replaces the cached copy.
	require.NoError(t, store.Save(ctx, "intro", []byte("level-2")))
	blob, err = store.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, []byte("level-2"), blob)

	require.NoError(t, store.Delete(ctx, "intro"))
	_, err = store.Load(ctx, "intro")
	assert.True(t, eris.Is(err, ErrLevelNotFound))

	uncached, _ := newTestStore(t, StoreOptions{})
	assert.Zero(t, uncached.CacheHits())
}

// The test below modifies the environment and can't run in parallel.

func TestNewRedisStore_EnvConfig(t *testing.T) {
	t.Setenv("LEVELSTORE_KEY_PREFIX", "ENV")

	ctx := context.Background()
	store, mr := newTestStore(t, StoreOptions{})
	require.NoError(t, store.Save(ctx, "intro", []byte("x")))
	assert.True(t, mr.Exists("ENV:SNAPSHOT:intro"))

	t.Setenv("LEVELSTORE_KEY_PREFIX", "has space")
	_, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), StoreOptions{})
	require.Error(t, err)

	t.Setenv("LEVELSTORE_KEY_PREFIX", "ENV")
	t.Setenv("LEVELSTORE_CACHE_SIZE", "-1")
	_, err = NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), StoreOptions{})
	require.Error(t, err)
}
