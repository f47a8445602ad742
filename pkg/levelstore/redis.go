package levelstore

import (
	"context"
	"errors"
	"slices"

	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/coocood/freecache"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore keeps encoded levels in Redis under PREFIX:SNAPSHOT:<name> and tracks their names in
// the PREFIX:SNAPSHOTS set. When a cache size is configured, loaded and saved levels are also kept
// in an in-process cache that Load reads first. The cache assumes this store is the only writer of
// its prefix.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	cache  *freecache.Cache // Nil when caching is disabled
}

// NewRedisStore returns a store writing through client. Options not set in opts are read from the
// environment.
func NewRedisStore(client redis.Cmdable, opts StoreOptions) (*RedisStore, error) {
	if client == nil {
		return nil, eris.New("redis client cannot be nil")
	}

	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load levelstore config")
	}

	options := StoreOptions{}
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid levelstore options")
	}

	store := &RedisStore{client: client, prefix: options.KeyPrefix}
	if options.CacheSize > 0 {
		store.cache = freecache.NewCache(options.CacheSize)
	}
	return store, nil
}

// Save stores blob as the level called name, replacing any previous version.
func (s *RedisStore) Save(ctx context.Context, name string, blob []byte) error {
	if name == "" {
		return eris.New("level name cannot be empty")
	}

	key := levelKey(s.prefix, name)
	s.evict(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, blob, 0)
		pipe.SAdd(ctx, levelIndexKey(s.prefix), name)
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "failed to save level %s", name)
	}
	s.remember(key, blob)
	return nil
}

// Load returns the encoded level called name.
func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	key := levelKey(s.prefix, name)
	if s.cache != nil {
		if blob, err := s.cache.Get([]byte(key)); err == nil {
			return blob, nil
		}
	}

	blob, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrapf(ErrLevelNotFound, "level %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load level %s", name)
	}
	s.remember(key, blob)
	return blob, nil
}

// Delete removes the level called name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	key := levelKey(s.prefix, name)
	s.evict(key)

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.SRem(ctx, levelIndexKey(s.prefix), name)
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "failed to delete level %s", name)
	}
	if del.Val() == 0 {
		return eris.Wrapf(ErrLevelNotFound, "level %s", name)
	}
	return nil
}

// List returns the names of every stored level in ascending order.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, levelIndexKey(s.prefix)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to list levels")
	}
	slices.Sort(names)
	return names, nil
}

// SaveLevel encodes the entities of m and stores them as the level called name.
func (s *RedisStore) SaveLevel(ctx context.Context, name string, m *ecs.EntityManager) error {
	blob, err := Encode(m)
	if err != nil {
		return eris.Wrapf(err, "failed to encode level %s", name)
	}
	return s.Save(ctx, name, blob)
}

// LoadLevel restores the level called name into m.
func (s *RedisStore) LoadLevel(ctx context.Context, name string, m *ecs.EntityManager) ([]ecs.Entity, error) {
	blob, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return Restore(ctx, m, blob)
}

// CacheHits returns the number of loads served from the cache.
func (s *RedisStore) CacheHits() int64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.HitCount()
}

// remember caches blob under key. Levels too large for the cache are skipped.
func (s *RedisStore) remember(key string, blob []byte) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set([]byte(key), blob, 0)
}

func (s *RedisStore) evict(key string) {
	if s.cache != nil {
		s.cache.Del([]byte(key))
	}
}
