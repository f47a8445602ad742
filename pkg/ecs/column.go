package ecs

import (
	"reflect"
	"unsafe"

	"github.com/argus-labs/astris/pkg/assert"
)

// column stores one component type for every slot of an archetype. The backing array is a real
// []T created through reflection, so pointer-bearing components stay visible to the garbage
// collector, while row access is plain pointer arithmetic over base and stride.
type column struct {
	id     ComponentID
	stride uintptr
	plain  bool
	data   reflect.Value  // []T with len == cap == the archetype capacity
	base   unsafe.Pointer // Address of data[0]
}

// newColumn allocates a zeroed column with room for capacity rows.
func newColumn(id ComponentID, ct componentType, capacity int) column {
	data := reflect.MakeSlice(reflect.SliceOf(ct.typ), capacity, capacity)
	return column{
		id:     id,
		stride: ct.typ.Size(),
		plain:  ct.plain,
		data:   data,
		base:   data.UnsafePointer(),
	}
}

// capacity returns the number of rows the column can hold.
func (c *column) capacity() int {
	return c.data.Len()
}

// grow reallocates the column to newCap rows keeping the first length rows.
func (c *column) grow(newCap, length int) {
	assert.That(newCap >= c.capacity(), "column can't shrink")

	data := reflect.MakeSlice(c.data.Type(), newCap, newCap)
	reflect.Copy(data, c.data.Slice(0, length))
	c.data = data
	c.base = data.UnsafePointer()
}

// ptr returns the address of a row.
func (c *column) ptr(row int) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(row)*c.stride)
}

// rowBytes returns the raw memory of a row.
func (c *column) rowBytes(row int) []byte {
	if c.stride == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(c.ptr(row)), c.stride)
}

// bytes returns the raw memory of the first length rows.
func (c *column) bytes(length int) []byte {
	if c.stride == 0 || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(c.base), uintptr(length)*c.stride)
}

// store writes a staged value into a row.
func (c *column) store(row int, box ComponentBox) {
	assert.That(box.id == c.id, "box %d stored in column %d", box.id, c.id)
	if c.stride == 0 {
		return
	}
	if box.kind == boxUntyped || c.plain {
		copy(c.rowBytes(row), box.Bytes())
		return
	}
	c.data.Index(row).Set(box.value)
}

// copyRow copies row srcRow of src into row dst of c. Both columns hold the same component type.
func (c *column) copyRow(dst int, src *column, srcRow int) {
	assert.That(src.id == c.id, "copy between columns %d and %d", src.id, c.id)
	if c.stride == 0 {
		return
	}
	if c.plain {
		copy(c.rowBytes(dst), src.rowBytes(srcRow))
		return
	}
	c.data.Index(dst).Set(src.data.Index(srcRow))
}

// reset sets a row back to the zero value, dropping any references it held.
func (c *column) reset(row int) {
	if c.stride == 0 {
		return
	}
	if c.plain {
		clear(c.rowBytes(row))
		return
	}
	c.data.Index(row).SetZero()
}
