package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentID identifies a component type within one TypeRegistry.
type ComponentID uint64

// TagID identifies a tag type within one TypeRegistry. Tag IDs and component IDs are separate spaces:
// ComponentID(0) and TagID(0) name unrelated types.
type TagID uint64

// componentType is the registry metadata of a component type.
type componentType struct {
	typ   reflect.Type
	name  string
	size  uint32
	plain bool // The type holds no Go pointers, so its bytes can be copied and serialized verbatim
}

type tagType struct {
	typ  reflect.Type
	name string
}

// ComponentInfo describes a registered component type.
type ComponentInfo struct {
	ID    ComponentID
	Name  string
	Size  uint32
	Plain bool
}

// TypeRegistry assigns component and tag IDs in first-registration order. A registry is not safe
// for concurrent registration; reference every type once during single-threaded setup before
// sharing the registry across goroutines.
type TypeRegistry struct {
	components      []componentType // Component ID -> metadata
	componentByType map[reflect.Type]ComponentID
	componentByName map[string]ComponentID
	tags            []tagType // Tag ID -> metadata
	tagByType       map[reflect.Type]TagID
	tagByName       map[string]TagID
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		components:      make([]componentType, 0),
		componentByType: make(map[reflect.Type]ComponentID),
		componentByName: make(map[string]ComponentID),
		tags:            make([]tagType, 0),
		tagByType:       make(map[reflect.Type]TagID),
		tagByName:       make(map[string]TagID),
	}
}

// ComponentIDOf returns the component ID of T, registering T on first use.
func ComponentIDOf[T any](r *TypeRegistry) ComponentID {
	return r.componentID(reflect.TypeFor[T]())
}

// TagIDOf returns the tag ID of T, registering T on first use.
func TagIDOf[T any](r *TypeRegistry) TagID {
	return r.tagID(reflect.TypeFor[T]())
}

func (r *TypeRegistry) componentID(t reflect.Type) ComponentID {
	if id, ok := r.componentByType[t]; ok {
		return id
	}

	id := ComponentID(len(r.components))
	name := typeName(t)
	r.components = append(r.components, componentType{
		typ:   t,
		name:  name,
		size:  uint32(t.Size()), //nolint:gosec // component sizes are bounded by MaxComponentSize
		plain: isPlainData(t),
	})
	r.componentByType[t] = id
	r.componentByName[name] = id
	return id
}

func (r *TypeRegistry) tagID(t reflect.Type) TagID {
	if id, ok := r.tagByType[t]; ok {
		return id
	}

	id := TagID(len(r.tags))
	name := typeName(t)
	r.tags = append(r.tags, tagType{typ: t, name: name})
	r.tagByType[t] = id
	r.tagByName[name] = id
	return id
}

// lookupComponent returns the ID of an already registered component type without registering it.
func (r *TypeRegistry) lookupComponent(t reflect.Type) (ComponentID, bool) {
	id, ok := r.componentByType[t]
	return id, ok
}

// lookupTag returns the ID of an already registered tag type without registering it.
func (r *TypeRegistry) lookupTag(t reflect.Type) (TagID, bool) {
	id, ok := r.tagByType[t]
	return id, ok
}

func (r *TypeRegistry) component(id ComponentID) (componentType, bool) {
	if uint64(id) >= uint64(len(r.components)) {
		return componentType{}, false
	}
	return r.components[id], true
}

func (r *TypeRegistry) hasTag(id TagID) bool {
	return uint64(id) < uint64(len(r.tags))
}

// ComponentInfo returns the metadata of a registered component ID.
func (r *TypeRegistry) ComponentInfo(id ComponentID) (ComponentInfo, bool) {
	ct, ok := r.component(id)
	if !ok {
		return ComponentInfo{}, false
	}
	return ComponentInfo{ID: id, Name: ct.name, Size: ct.size, Plain: ct.plain}, true
}

// ComponentIDByName returns the ID of the component registered under name. Names are stable across
// runs while IDs are not, which is what the serialization layer relies on.
func (r *TypeRegistry) ComponentIDByName(name string) (ComponentID, error) {
	id, ok := r.componentByName[name]
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotFound, "component %s is not registered", name)
	}
	return id, nil
}

// TagName returns the name of a registered tag ID.
func (r *TypeRegistry) TagName(id TagID) (string, bool) {
	if !r.hasTag(id) {
		return "", false
	}
	return r.tags[id].name, true
}

// TagIDByName returns the ID of the tag registered under name.
func (r *TypeRegistry) TagIDByName(name string) (TagID, error) {
	id, ok := r.tagByName[name]
	if !ok {
		return 0, eris.Wrapf(ErrTagNotFound, "tag %s is not registered", name)
	}
	return id, nil
}

// ComponentCount returns the number of registered component types.
func (r *TypeRegistry) ComponentCount() int { return len(r.components) }

// TagCount returns the number of registered tag types.
func (r *TypeRegistry) TagCount() int { return len(r.tags) }

// typeName returns the package-qualified name of t, which is unique for named types.
func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// isPlainData reports whether values of t contain no Go pointers.
func isPlainData(t reflect.Type) bool {
	switch t.Kind() { //nolint:exhaustive // every other kind holds a pointer
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || isPlainData(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !isPlainData(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
