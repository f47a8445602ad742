package ecs

import (
	"testing"

	. "github.com/argus-labs/astris/pkg/ecs/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityManager_Query(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	r := m.Registry()

	pos := createArchetype(t, m, IncludeComponent[Position])
	posVel := createArchetype(t, m, IncludeComponent[Position], IncludeComponent[Velocity])
	posPlayer := createArchetype(t, m, IncludeComponent[Position], IncludeTag[PlayerTag])
	hp := createArchetype(t, m, IncludeComponent[Health])
	empty := createArchetype(t, m, IncludeComponent[Position], IncludeComponent[Experience])

	spawnPosition(t, m, pos, Position{X: 1})
	spawnPosition(t, m, pos, Position{X: 2})

	ctx := m.NewEntityCreationContext()
	require.NoError(t, AddComponent(ctx, Position{X: 3}))
	require.NoError(t, AddComponent(ctx, Velocity{X: 1}))
	_, err := m.SpawnEntity(posVel, ctx)
	require.NoError(t, err)

	ctx = m.NewEntityCreationContext()
	require.NoError(t, AddComponent(ctx, Position{X: 4}))
	require.NoError(t, AddTag[PlayerTag](ctx))
	_, err = m.SpawnEntity(posPlayer, ctx)
	require.NoError(t, err)

	ctx = m.NewEntityCreationContext()
	require.NoError(t, AddComponent(ctx, Health{Value: 1}))
	_, err = m.SpawnEntity(hp, ctx)
	require.NoError(t, err)

	collect := func(q Query) []ArchetypeHandle {
		var handles []ArchetypeHandle
		for view := range m.Query(q) {
			handles = append(handles, view.Handle())
		}
		return handles
	}

	posID := ComponentIDOf[Position](r)
	velID := ComponentIDOf[Velocity](r)
	player := TagIDOf[PlayerTag](r)

	tests := []struct {
		name  string
		query Query
		want  []ArchetypeHandle
	}{
		{name: "single component", query: Query{Components: []ComponentID{posID}}, want: []ArchetypeHandle{pos, posVel, posPlayer}},
		{name: "two components", query: Query{Components: []ComponentID{velID, posID}}, want: []ArchetypeHandle{posVel}},
		{name: "component and tag", query: Query{Components: []ComponentID{posID}, Tags: []TagID{player}}, want: []ArchetypeHandle{posPlayer}},
		{name: "tag only", query: Query{Tags: []TagID{player}}, want: []ArchetypeHandle{posPlayer}},
		{name: "everything", query: Query{}, want: []ArchetypeHandle{pos, posVel, posPlayer, hp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Property: empty archetypes are skipped and matches are supersets of the query.
			got := collect(tt.query)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, empty)
		})
	}

	var all int
	for range m.Archetypes() {
		all++
	}
	assert.Equal(t, 5, all)

	var visited int
	for range m.Query(Query{}) {
		visited++
		break
	}
	assert.Equal(t, 1, visited)
}

func TestArchetypeView_Columns(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	handle := createArchetype(t, m, IncludeComponent[Position], IncludeComponent[Health])

	a := spawnPositionHealth(t, m, handle, Position{X: 1}, Health{Value: 10})
	b := spawnPositionHealth(t, m, handle, Position{X: 2}, Health{Value: 20})

	view, err := m.Archetype(handle)
	require.NoError(t, err)

	assert.Equal(t, []UUID{a.UUID(), b.UUID()}, view.UUIDs())
	assert.True(t, view.EntityAt(1).Equal(b))
	entities := view.Entities()
	require.Len(t, entities, 2)
	assert.True(t, entities[0].Equal(a))
	assert.Equal(t, uint32(16), view.EntitySize())

	// Property: rows line up with the entity list and writes reach the entity.
	healths := ColumnOf[Health](view)
	require.Len(t, healths, 2)
	assert.Equal(t, int32(20), healths[1].Value)
	healths[0].Value = 11
	assert.Equal(t, int32(11), GetComponent[Health](a).Value)

	raw, stride, ok := view.RawColumn(ComponentIDOf[Position](m.Registry()))
	require.True(t, ok)
	assert.Equal(t, uint32(12), stride)
	assert.Len(t, raw, 24)

	_, _, ok = view.RawColumn(ComponentIDOf[Velocity](m.Registry()))
	assert.False(t, ok)
	assert.Nil(t, ColumnOf[Velocity](view))
	assert.Nil(t, ColumnOf[Experience](view))
	assert.True(t, view.HasComponent(ComponentIDOf[Health](m.Registry())))
	assert.False(t, view.HasTag(TagIDOf[PlayerTag](m.Registry())))

	_, err = m.Archetype(ArchetypeHandle{id: 40, valid: true})
	require.Error(t, err)
}
