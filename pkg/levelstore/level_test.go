package levelstore

import (
	"context"
	"testing"

	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y, Z float32 }

type health struct{ Value int32 }

type playerTag struct{}

type inventory struct{ Items []string }

func newManager(t *testing.T, registry *ecs.TypeRegistry) *ecs.EntityManager {
	t.Helper()
	m, err := ecs.NewEntityManager(registry, ecs.ManagerOptions{EntityCountHint: 4})
	require.NoError(t, err)
	return m
}

func mustArchetype(t *testing.T, m *ecs.EntityManager, include ...func(ecs.SchemaBuilder) error) ecs.ArchetypeHandle {
	t.Helper()
	b := m.NewArchetypeCreationContext()
	for _, fn := range include {
		require.NoError(t, fn(b))
	}
	handle, err := m.CreateArchetype(b)
	require.NoError(t, err)
	return handle
}

// populate fills m with players that have a position, health and tag, and props that only have a
// position. Returns the expected values by UUID.
func populate(t *testing.T, m *ecs.EntityManager) (map[ecs.UUID]position, map[ecs.UUID]health) {
	t.Helper()
	players := mustArchetype(t, m, ecs.IncludeComponent[position], ecs.IncludeComponent[health],
		ecs.IncludeTag[playerTag])
	props := mustArchetype(t, m, ecs.IncludeComponent[position])
	mustArchetype(t, m, ecs.IncludeComponent[health]) // Stays empty

	positions := make(map[ecs.UUID]position)
	healths := make(map[ecs.UUID]health)
	for i := range 6 {
		ctx := m.NewEntityCreationContext()
		pos := position{X: float32(i), Y: float32(i * 2), Z: -1}
		require.NoError(t, ecs.AddComponent(ctx, pos))

		handle := props
		if i%2 == 0 {
			hp := health{Value: int32(100 + i)}
			require.NoError(t, ecs.AddComponent(ctx, hp))
			require.NoError(t, ecs.AddTag[playerTag](ctx))
			handle = players
		}
		e, err := m.SpawnEntity(handle, ctx)
		require.NoError(t, err)

		positions[e.UUID()] = pos
		if hp := ecs.GetComponent[health](e); hp != nil {
			healths[e.UUID()] = *hp
		}
	}
	return positions, healths
}

func TestLevel_EncodeRestore(t *testing.T) {
	t.Parallel()

	src := newManager(t, ecs.NewTypeRegistry())
	positions, healths := populate(t, src)
	require.Len(t, healths, 3)

	blob, err := Encode(src)
	require.NoError(t, err)

	// Register in another order so IDs differ between source and destination.
	registry := ecs.NewTypeRegistry()
	ecs.TagIDOf[playerTag](registry)
	ecs.ComponentIDOf[health](registry)
	ecs.ComponentIDOf[position](registry)
	dst := newManager(t, registry)

	entities, err := Restore(context.Background(), dst, blob)
	require.NoError(t, err)
	require.Len(t, entities, 6)
	assert.Equal(t, 6, dst.EntityCount())
	assert.Equal(t, 2, dst.ArchetypeCount())

	// Property: every entity comes back under its UUID with identical values.
	for uuid, want := range positions {
		e, ok := dst.Entity(uuid)
		require.True(t, ok, "entity %s", uuid)
		assert.Equal(t, want, *ecs.GetComponent[position](e))

		hp, isPlayer := healths[uuid]
		assert.Equal(t, isPlayer, ecs.HasTag[playerTag](e))
		if isPlayer {
			assert.Equal(t, hp, *ecs.GetComponent[health](e))
		}
	}
}

func TestLevel_Snapshot(t *testing.T) {
	t.Parallel()

	m := newManager(t, ecs.NewTypeRegistry())
	populate(t, m)

	level, err := Snapshot(m)
	require.NoError(t, err)
	assert.Equal(t, levelVersion, level.Version)

	// Property: empty archetypes are skipped.
	require.Len(t, level.Sections, 2)
	players := level.Sections[0]
	assert.Len(t, players.Entities, 3)
	assert.Len(t, players.Tags, 1)
	require.Len(t, players.Components, 2)
	for _, col := range players.Components {
		assert.Len(t, col.Data, 3*int(col.Size))
	}
}

func TestLevel_SnapshotStable(t *testing.T) {
	t.Parallel()

	src := newManager(t, ecs.NewTypeRegistry())
	populate(t, src)
	blob, err := Encode(src)
	require.NoError(t, err)

	dst := newManager(t, src.Registry())
	_, err = Restore(context.Background(), dst, blob)
	require.NoError(t, err)

	// Property: a restored manager snapshots to the same level it was loaded from.
	want, err := Snapshot(src)
	require.NoError(t, err)
	got, err := Snapshot(dst)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLevel_EncodeRejectsPointers(t *testing.T) {
	t.Parallel()

	m := newManager(t, ecs.NewTypeRegistry())
	handle := mustArchetype(t, m, ecs.IncludeComponent[inventory])
	ctx := m.NewEntityCreationContext()
	require.NoError(t, ecs.AddComponent(ctx, inventory{Items: []string{"map"}}))
	_, err := m.SpawnEntity(handle, ctx)
	require.NoError(t, err)

	_, err = Encode(m)
	assert.True(t, eris.Is(err, ecs.ErrNotPlainData))
}

func TestRestore_Rejected(t *testing.T) {
	t.Parallel()

	src := newManager(t, ecs.NewTypeRegistry())
	populate(t, src)
	blob, err := Encode(src)
	require.NoError(t, err)

	t.Run("version mismatch", func(t *testing.T) {
		t.Parallel()
		bad, err := json.Marshal(Level{Version: levelVersion + 1})
		require.NoError(t, err)
		_, err = Restore(context.Background(), newManager(t, ecs.NewTypeRegistry()), bad)
		assert.True(t, eris.Is(err, ErrUnsupportedVersion))
	})

	t.Run("unregistered type", func(t *testing.T) {
		t.Parallel()
		registry := ecs.NewTypeRegistry()
		ecs.ComponentIDOf[position](registry)
		dst := newManager(t, registry)
		_, err := Restore(context.Background(), dst, blob)
		assert.True(t, eris.Is(err, ecs.ErrComponentNotFound))
		assert.Equal(t, 0, dst.EntityCount())
	})

	t.Run("live uuid", func(t *testing.T) {
		t.Parallel()
		dst := newManager(t, src.Registry())
		_, err := Restore(context.Background(), dst, blob)
		require.NoError(t, err)

		// Property: restoring over live entities spawns nothing.
		_, err = Restore(context.Background(), dst, blob)
		assert.True(t, eris.Is(err, ecs.ErrDuplicateEntity))
		assert.Equal(t, 6, dst.EntityCount())
	})

	t.Run("truncated column", func(t *testing.T) {
		t.Parallel()
		level, err := Snapshot(src)
		require.NoError(t, err)
		level.Sections[0].Components[0].Data = level.Sections[0].Components[0].Data[1:]
		bad, err := json.Marshal(level)
		require.NoError(t, err)

		_, err = Restore(context.Background(), newManager(t, src.Registry()), bad)
		assert.True(t, eris.Is(err, ErrCorruptLevel))
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := Restore(context.Background(), newManager(t, src.Registry()), []byte("{"))
		require.Error(t, err)
	})
}

func TestDecoder_Release(t *testing.T) {
	t.Parallel()

	src := newManager(t, ecs.NewTypeRegistry())
	populate(t, src)
	blob, err := Encode(src)
	require.NoError(t, err)

	decoder := NewDecoder(src.Registry(), nil)
	sections, err := decoder.Decode(context.Background(), blob)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, uint32(6), decoder.StagedCount())

	for _, section := range sections {
		for _, staged := range section.Entities {
			assert.Equal(t, len(section.Components), staged.Context.ComponentCount())
			assert.Equal(t, len(section.Tags), staged.Context.TagCount())
		}
	}

	decoder.Release(sections)
	assert.Equal(t, uint32(0), decoder.StagedCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = decoder.Decode(ctx, blob)
	require.Error(t, err)
	assert.Equal(t, uint32(0), decoder.StagedCount())
}
