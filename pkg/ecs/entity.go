package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Entity is a handle to an entity of an EntityManager. It holds no component data; every accessor
// goes through the manager's index, so an Entity is only meaningful while its manager is.
type Entity struct {
	uuid    UUID
	manager *EntityManager
}

// UUID returns the identity of the entity.
func (e Entity) UUID() UUID { return e.uuid }

// Key returns the UUID as a raw integer for use as a hash key.
func (e Entity) Key() uint64 { return uint64(e.uuid) }

// Equal reports whether two handles refer to the same entity.
func (e Entity) Equal(other Entity) bool { return e.uuid == other.uuid }

// IsValid reports whether the entity is alive in its manager.
func (e Entity) IsValid() bool {
	return e.manager != nil && !e.uuid.IsZero() && e.manager.index[e.uuid] != nil
}

func (e Entity) String() string { return e.uuid.String() }

// location returns the archetype and slot of a live entity.
func (e Entity) location() (*archetype, int, bool) {
	if e.manager == nil {
		return nil, 0, false
	}
	record := e.manager.index[e.uuid]
	if record == nil {
		return nil, 0, false
	}
	return e.manager.archetypes[record.archetype], record.row, true
}

// HasComponent reports whether the entity has component T.
func HasComponent[T any](e Entity) bool {
	arch, _, ok := e.location()
	if !ok {
		return false
	}
	id, ok := e.manager.registry.lookupComponent(reflect.TypeFor[T]())
	return ok && arch.hasComponent(id)
}

// HasTag reports whether the entity has tag T.
func HasTag[T any](e Entity) bool {
	arch, _, ok := e.location()
	if !ok {
		return false
	}
	id, ok := e.manager.registry.lookupTag(reflect.TypeFor[T]())
	return ok && arch.hasTag(id)
}

// HasProperty reports whether the entity has T, where T is a registered component or tag type. A
// type registered in both spaces is checked as a component. An unregistered T is reported as
// ErrUnknownProperty and yields false.
func HasProperty[T any](e Entity) bool {
	if e.manager == nil {
		return false
	}
	t := reflect.TypeFor[T]()
	registry := e.manager.registry
	if _, ok := registry.lookupComponent(t); ok {
		return HasComponent[T](e)
	}
	if _, ok := registry.lookupTag(t); ok {
		return HasTag[T](e)
	}
	_ = report(e.manager.logger, eris.Wrapf(ErrUnknownProperty, "type %s", t), "property lookup failed",
		"entity", e.uuid.String())
	return false
}

// GetComponent returns a pointer to the live value of component T, or nil if the entity doesn't
// have it. The pointer is valid until the next structural change of the manager: spawn, destroy or
// migration of any entity may move data.
func GetComponent[T any](e Entity) *T {
	arch, row, ok := e.location()
	if !ok {
		if e.manager != nil {
			_ = report(e.manager.logger, eris.Wrapf(ErrEntityNotFound, "entity %s", e.uuid),
				"component lookup failed", "entity", e.uuid.String())
		}
		return nil
	}

	t := reflect.TypeFor[T]()
	var col *column
	if id, ok := e.manager.registry.lookupComponent(t); ok {
		col = arch.column(id)
	}
	if col == nil {
		_ = report(e.manager.logger, eris.Wrapf(ErrComponentNotFound, "component %s", t),
			"component lookup failed", "entity", e.uuid.String())
		return nil
	}
	return (*T)(col.ptr(row))
}
