package levelstore

import (
	"context"

	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/rotisserie/eris"
)

// Restore decodes blob and spawns its entities into m under their saved UUIDs. UUIDs are checked
// before anything is spawned: a zero UUID, a repeated one or one already alive in m fails the restore
// with ecs.ErrDuplicateEntity. Entities spawned before a later archetype fails to be created stay
// alive and are returned with the error.
func Restore(ctx context.Context, m *ecs.EntityManager, blob []byte) ([]ecs.Entity, error) {
	decoder := NewDecoder(m.Registry(), m.Logger())
	sections, err := decoder.Decode(ctx, blob)
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode level")
	}
	defer decoder.Release(sections)

	total := 0
	seen := make(map[ecs.UUID]struct{})
	for _, section := range sections {
		for _, staged := range section.Entities {
			_, repeated := seen[staged.UUID]
			_, alive := m.Entity(staged.UUID)
			if staged.UUID.IsZero() || repeated || alive {
				return nil, eris.Wrapf(ecs.ErrDuplicateEntity, "entity %s can't be restored", staged.UUID)
			}
			seen[staged.UUID] = struct{}{}
		}
		total += len(section.Entities)
	}

	entities := make([]ecs.Entity, 0, total)
	for _, section := range sections {
		b := m.NewArchetypeCreationContext()
		if err := b.AddComponents(section.Components...); err != nil {
			return entities, eris.Wrap(err, "failed to describe archetype")
		}
		if err := b.AddTags(section.Tags...); err != nil {
			return entities, eris.Wrap(err, "failed to describe archetype")
		}
		b.SetEntityCount(len(section.Entities))

		handle, err := m.CreateArchetype(b)
		if err != nil {
			return entities, eris.Wrap(err, "failed to create archetype")
		}

		for _, staged := range section.Entities {
			e, err := m.SpawnEntityWithUUID(handle, staged.UUID, staged.Context)
			if err != nil {
				return entities, eris.Wrapf(err, "failed to spawn entity %s", staged.UUID)
			}
			entities = append(entities, e)
		}
	}

	m.Logger().Info().Int("entities", len(entities)).Int("sections", len(sections)).Msg("level restored")
	return entities, nil
}
