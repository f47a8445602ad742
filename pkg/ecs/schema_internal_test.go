package ecs

import (
	"testing"

	. "github.com/argus-labs/astris/pkg/ecs/internal/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeCreationContext_Canonical(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	pos := ComponentIDOf[Position](r)
	vel := ComponentIDOf[Velocity](r)
	hp := ComponentIDOf[Health](r)
	player := TagIDOf[PlayerTag](r)
	enemy := TagIDOf[EnemyTag](r)

	a := NewArchetypeCreationContext(r, nil)
	require.NoError(t, a.AddComponents(hp, pos, vel))
	require.NoError(t, a.AddTags(enemy, player))

	b := NewArchetypeCreationContext(r, nil)
	require.NoError(t, b.AddComponents(vel))
	require.NoError(t, b.AddComponents(pos, hp))
	require.NoError(t, b.AddTags(player, enemy))

	// Property: insertion order doesn't change the resulting signature.
	assert.Equal(t, []ComponentID{pos, vel, hp}, a.ComponentIDs())
	assert.Equal(t, a.ComponentIDs(), b.ComponentIDs())
	assert.Equal(t, a.TagIDs(), b.TagIDs())
	assert.Equal(t, a.sig().key(), b.sig().key())
	assert.Equal(t, uint32(12+12+4), a.TotalSize())
}

func TestArchetypeCreationContext_Duplicates(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger()
	r := NewTypeRegistry()
	pos := ComponentIDOf[Position](r)
	hp := ComponentIDOf[Health](r)
	player := TagIDOf[PlayerTag](r)

	c := NewArchetypeCreationContext(r, logger)
	err := c.AddComponents(pos, pos, 77, hp)

	// Property: bad IDs are skipped while the rest are still added.
	assert.True(t, eris.Is(err, ErrDuplicateComponent))
	assert.Equal(t, []ComponentID{pos, hp}, c.ComponentIDs())
	assert.Equal(t, uint32(16), c.TotalSize())
	assert.Contains(t, buf.String(), "duplicate component ignored")
	assert.Contains(t, buf.String(), "component skipped")

	err = c.AddTags(player, player)
	assert.True(t, eris.Is(err, ErrDuplicateTag))
	assert.Equal(t, []TagID{player}, c.TagIDs())

	assert.True(t, eris.Is(c.AddTags(5), ErrTagNotFound))
}

func TestArchetypeCreationContext_EntityCount(t *testing.T) {
	t.Parallel()

	c := NewArchetypeCreationContext(NewTypeRegistry(), nil)
	assert.Equal(t, 0, c.EntityCount())
	c.SetEntityCount(64)
	assert.Equal(t, 64, c.EntityCount())
	c.SetEntityCount(-3)
	assert.Equal(t, 0, c.EntityCount())
}

func TestSchemaBuilder_Include(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	source := ArchetypeHandle{id: 3, valid: true}

	ext := NewArchetypeExtensionContext(r, nil, source)
	require.NoError(t, IncludeComponent[Velocity](ext))
	require.NoError(t, IncludeTag[FrozenTag](ext))
	assert.True(t, eris.Is(IncludeComponent[Velocity](ext), ErrDuplicateComponent))

	assert.Equal(t, source, ext.Source())
	assert.Equal(t, []ComponentID{ComponentIDOf[Velocity](r)}, ext.ComponentIDs())
	assert.Equal(t, []TagID{TagIDOf[FrozenTag](r)}, ext.TagIDs())

	red := NewArchetypeReductionContext(r, nil, source)
	require.NoError(t, IncludeComponent[Health](red))
	assert.Equal(t, source, red.Source())
	assert.Equal(t, []ComponentID{ComponentIDOf[Health](r)}, red.ComponentIDs())
}

func TestArchetypeCreationContext_Consumed(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	c := NewArchetypeCreationContext(r, nil)
	require.NoError(t, IncludeComponent[Position](c))
	c.consume()

	assert.True(t, c.Consumed())
	assert.Empty(t, c.ComponentIDs())
	assert.True(t, eris.Is(IncludeComponent[Health](c), ErrContextConsumed))
	assert.True(t, eris.Is(c.AddTags(0), ErrContextConsumed))
}
