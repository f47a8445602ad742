package ecs

import (
	"slices"

	"github.com/argus-labs/astris/pkg/assert"
	"github.com/kelindar/bitmap"
)

const (
	// MaxComponentCount is the maximum number of component types one entity may carry.
	MaxComponentCount = 15
	// MaxComponentSize is the maximum byte size of a single component type.
	MaxComponentSize = 128
	// MaxEntitySize is the maximum sum of component sizes for one entity.
	MaxEntitySize = MaxComponentSize * MaxComponentCount
	// DefaultEntityCount is the initial slot capacity of an archetype when no hint is given.
	DefaultEntityCount = 1024
)

// ArchetypeHandle refers to an archetype owned by an EntityManager. Handles stay valid for the
// lifetime of the manager. The zero value refers to no archetype.
type ArchetypeHandle struct {
	id    uint32
	valid bool
}

// ID returns the index of the archetype in its manager's archetype table.
func (h ArchetypeHandle) ID() uint32 { return h.id }

// IsValid reports whether the handle was issued by a manager.
func (h ArchetypeHandle) IsValid() bool { return h.valid }

// archetype stores every entity sharing one signature. Columns are kept in the same order as the
// signature's component IDs. Slots [0, len(entities)) are occupied and dense; slots beyond are
// always zeroed so a new occupant starts from default values.
// NOTE: components and tags always mirror sig.
type archetype struct {
	handle     ArchetypeHandle
	sig        signature
	components bitmap.Bitmap // Mask of the component IDs in sig
	tags       bitmap.Bitmap // Mask of the tag IDs in sig
	columns    []column
	entities   []UUID // Slot -> entity
	capacity   int    // Rows allocated in every column
	entitySize uint32 // Sum of the component sizes of one entity
}

// newArchetype allocates an archetype with room for capacity entities.
func newArchetype(handle ArchetypeHandle, sig signature, registry *TypeRegistry, capacity int) *archetype {
	capacity = max(capacity, 1)

	arch := &archetype{
		handle:     handle,
		sig:        sig,
		components: sig.componentMask(),
		tags:       sig.tagMask(),
		columns:    make([]column, len(sig.components)),
		entities:   make([]UUID, 0, capacity),
		capacity:   capacity,
	}
	for i, id := range sig.components {
		ct, ok := registry.component(id)
		assert.That(ok, "component %d in signature is not registered", id)
		arch.columns[i] = newColumn(id, ct, capacity)
		arch.entitySize += ct.size
	}
	return arch
}

// len returns the number of occupied slots.
func (a *archetype) len() int {
	return len(a.entities)
}

// matches returns true if the archetype has exactly the given components and tags.
func (a *archetype) matches(components, tags bitmap.Bitmap) bool {
	return a.components.Count() == components.Count() && a.tags.Count() == tags.Count() &&
		a.contains(components, tags)
}

// contains returns true if the archetype has all of the given components and tags.
func (a *archetype) contains(components, tags bitmap.Bitmap) bool {
	return isSubset(components, a.components) && isSubset(tags, a.tags)
}

// isSubset reports whether every bit of sub is set in super.
func isSubset(sub, super bitmap.Bitmap) bool {
	if sub.Count() == 0 {
		return true
	}
	intersect := sub.Clone(nil)
	intersect.And(super)
	return intersect.Count() == sub.Count()
}

func (a *archetype) hasComponent(id ComponentID) bool {
	return a.components.Contains(uint32(id)) //nolint:gosec // IDs are bounded by registered types
}

func (a *archetype) hasTag(id TagID) bool {
	return a.tags.Contains(uint32(id)) //nolint:gosec // IDs are bounded by registered types
}

// column returns the column of a component ID, or nil if the archetype doesn't store it.
func (a *archetype) column(id ComponentID) *column {
	i, found := slices.BinarySearch(a.sig.components, id)
	if !found {
		return nil
	}
	return &a.columns[i]
}

// allocSlot appends an entity and returns its slot. The slot holds zero values. Storage doubles
// when full.
func (a *archetype) allocSlot(uuid UUID) int {
	row := len(a.entities)
	if row == a.capacity {
		newCap := a.capacity * 2
		for i := range a.columns {
			a.columns[i].grow(newCap, row)
		}
		a.capacity = newCap
	}
	a.entities = append(a.entities, uuid)
	return row
}

// removeSlot frees a slot by moving the last occupied slot into it. Returns the UUID of the moved
// entity and true if a move happened, so the caller can update its index. The last slot is reset,
// which also releases anything the removed components referenced.
func (a *archetype) removeSlot(row int) (UUID, bool) {
	last := len(a.entities) - 1
	assert.That(row >= 0 && row <= last, "slot %d out of range [0, %d]", row, last)

	moved := row != last
	if moved {
		for i := range a.columns {
			a.columns[i].copyRow(row, &a.columns[i], last)
		}
		a.entities[row] = a.entities[last]
	}
	for i := range a.columns {
		a.columns[i].reset(last)
	}
	a.entities = a.entities[:last]

	if !moved {
		return 0, false
	}
	return a.entities[row], true
}
