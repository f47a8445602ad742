package ecs

import (
	"reflect"
	"unsafe"
)

// boxKind selects how a ComponentBox copies its value into storage.
type boxKind uint8

const (
	boxEmpty   boxKind = iota // Zero value, released or never filled
	boxTyped                  // Built from a Go value of the component type
	boxUntyped                // Built from raw bytes, only allowed for plain data types
)

// ComponentBox is a type-erased component value owned by a staging context. It only exists at the
// staging and migration boundary; live storage keeps components in flat columns.
//
// Both kinds keep the value in a heap allocation of the real type, so the bytes are correctly
// aligned and visible to the garbage collector. The kind decides the copy strategy: untyped boxes
// are always copied byte for byte, typed boxes of pointer-bearing types go through reflection.
type ComponentBox struct {
	kind  boxKind
	id    ComponentID
	size  uint32
	plain bool
	value reflect.Value // Addressable value of the component type
}

// newTypedBox copies v into a new box.
func newTypedBox[T any](id ComponentID, ct componentType, v T) ComponentBox {
	ptr := new(T)
	*ptr = v
	return ComponentBox{
		kind:  boxTyped,
		id:    id,
		size:  ct.size,
		plain: ct.plain,
		value: reflect.ValueOf(ptr).Elem(),
	}
}

// newUntypedBox copies data into a new box of the registered type. The caller checks that the
// type is plain data and that len(data) matches its size.
func newUntypedBox(id ComponentID, ct componentType, data []byte) ComponentBox {
	value := reflect.New(ct.typ).Elem()
	if ct.size > 0 {
		copy(unsafe.Slice((*byte)(value.Addr().UnsafePointer()), ct.size), data)
	}
	return ComponentBox{
		kind:  boxUntyped,
		id:    id,
		size:  ct.size,
		plain: true,
		value: value,
	}
}

// ID returns the component ID of the boxed value.
func (b ComponentBox) ID() ComponentID { return b.id }

// Size returns the byte size of the boxed value.
func (b ComponentBox) Size() uint32 { return b.size }

// Bytes returns a read-only view of the boxed value's memory. The view is only meaningful as data
// for plain data types; for other types it contains pointer words.
func (b ComponentBox) Bytes() []byte {
	if b.kind == boxEmpty || b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.value.Addr().UnsafePointer()), b.size)
}

// boxValue returns the boxed value as T. T must be the component type of the box.
func boxValue[T any](b ComponentBox) T {
	return *(*T)(b.value.Addr().UnsafePointer())
}

// release drops the box's reference to its value.
func (b *ComponentBox) release() {
	*b = ComponentBox{}
}
