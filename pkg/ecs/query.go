package ecs

import (
	"iter"
	"reflect"
	"slices"
)

// Query selects the archetypes that have at least the listed components and tags.
type Query struct {
	Components []ComponentID
	Tags       []TagID
}

// Query iterates the non-empty archetypes whose signature is a superset of q. The views are only
// valid until the next structural change.
func (m *EntityManager) Query(q Query) iter.Seq[ArchetypeView] {
	sig := newSignature(q.Components, q.Tags)
	components, tags := sig.componentMask(), sig.tagMask()

	return func(yield func(ArchetypeView) bool) {
		for _, arch := range m.archetypes {
			if arch.len() == 0 || !arch.contains(components, tags) {
				continue
			}
			if !yield(ArchetypeView{arch: arch, manager: m}) {
				return
			}
		}
	}
}

// Archetypes iterates every archetype, including empty ones, in creation order.
func (m *EntityManager) Archetypes() iter.Seq[ArchetypeView] {
	return func(yield func(ArchetypeView) bool) {
		for _, arch := range m.archetypes {
			if !yield(ArchetypeView{arch: arch, manager: m}) {
				return
			}
		}
	}
}

// Archetype returns a view of the archetype of handle.
func (m *EntityManager) Archetype(handle ArchetypeHandle) (ArchetypeView, error) {
	arch, err := m.lookupArchetype(handle)
	if err != nil {
		return ArchetypeView{}, err
	}
	return ArchetypeView{arch: arch, manager: m}, nil
}

// ArchetypeView is read access to one archetype's storage. Row i of every column belongs to the
// entity at index i of UUIDs.
type ArchetypeView struct {
	arch    *archetype
	manager *EntityManager
}

// Handle returns the handle of the archetype.
func (v ArchetypeView) Handle() ArchetypeHandle { return v.arch.handle }

// Len returns the number of entities in the archetype.
func (v ArchetypeView) Len() int { return v.arch.len() }

// Capacity returns the number of slots allocated in every column.
func (v ArchetypeView) Capacity() int { return v.arch.capacity }

// EntitySize returns the byte size of one entity's components.
func (v ArchetypeView) EntitySize() uint32 { return v.arch.entitySize }

// UUIDs returns the live entity list. The slice aliases storage and must not be modified.
func (v ArchetypeView) UUIDs() []UUID {
	return slices.Clip(v.arch.entities)
}

// Entities returns handles of every entity in the archetype.
func (v ArchetypeView) Entities() []Entity {
	entities := make([]Entity, len(v.arch.entities))
	for i, uuid := range v.arch.entities {
		entities[i] = Entity{uuid: uuid, manager: v.manager}
	}
	return entities
}

// EntityAt returns the entity in slot i.
func (v ArchetypeView) EntityAt(i int) Entity {
	return Entity{uuid: v.arch.entities[i], manager: v.manager}
}

// ComponentIDs returns the archetype's component IDs in ascending order.
func (v ArchetypeView) ComponentIDs() []ComponentID { return slices.Clone(v.arch.sig.components) }

// TagIDs returns the archetype's tag IDs in ascending order.
func (v ArchetypeView) TagIDs() []TagID { return slices.Clone(v.arch.sig.tags) }

// HasComponent reports whether the archetype stores component id.
func (v ArchetypeView) HasComponent(id ComponentID) bool { return v.arch.hasComponent(id) }

// HasTag reports whether the archetype carries tag id.
func (v ArchetypeView) HasTag(id TagID) bool { return v.arch.hasTag(id) }

// RawColumn returns the memory of the live rows of component id and the byte stride between rows.
// The bytes alias storage. For types that aren't plain data the bytes contain pointer words and
// must not be persisted.
func (v ArchetypeView) RawColumn(id ComponentID) ([]byte, uint32, bool) {
	col := v.arch.column(id)
	if col == nil {
		return nil, 0, false
	}
	return col.bytes(v.arch.len()), uint32(col.stride), true //nolint:gosec // stride <= MaxComponentSize
}

// ColumnOf returns the live rows of component T in the archetype, or nil if it doesn't store T.
// Writes through the slice update the entities' components.
func ColumnOf[T any](v ArchetypeView) []T {
	id, ok := v.manager.registry.lookupComponent(reflect.TypeFor[T]())
	if !ok {
		return nil
	}
	col := v.arch.column(id)
	if col == nil {
		return nil
	}
	rows, _ := col.data.Slice3(0, v.arch.len(), v.arch.len()).Interface().([]T)
	return rows
}
