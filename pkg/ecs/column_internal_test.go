package ecs

import (
	"testing"

	. "github.com/argus-labs/astris/pkg/ecs/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestColumn[T any](t *testing.T, r *TypeRegistry, capacity int) column {
	t.Helper()
	id := ComponentIDOf[T](r)
	ct, ok := r.component(id)
	require.True(t, ok)
	return newColumn(id, ct, capacity)
}

func typedBox[T any](t *testing.T, r *TypeRegistry, v T) ComponentBox {
	t.Helper()
	id := ComponentIDOf[T](r)
	ct, ok := r.component(id)
	require.True(t, ok)
	return newTypedBox(id, ct, v)
}

func TestColumn_PlainData(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	col := newTestColumn[Position](t, r, 2)
	assert.Equal(t, 2, col.capacity())
	assert.Equal(t, uintptr(12), col.stride)

	col.store(0, typedBox(t, r, Position{X: 1, Y: 2, Z: 3}))
	col.store(1, typedBox(t, r, Position{X: 4, Y: 5, Z: 6}))
	assert.Equal(t, Position{X: 1, Y: 2, Z: 3}, *(*Position)(col.ptr(0)))
	assert.Len(t, col.bytes(2), 24)

	col.grow(8, 2)
	assert.Equal(t, 8, col.capacity())
	assert.Equal(t, Position{X: 4, Y: 5, Z: 6}, *(*Position)(col.ptr(1)))
	assert.Equal(t, Position{}, *(*Position)(col.ptr(2)))

	col.copyRow(5, &col, 0)
	assert.Equal(t, Position{X: 1, Y: 2, Z: 3}, *(*Position)(col.ptr(5)))

	col.reset(0)
	assert.Equal(t, Position{}, *(*Position)(col.ptr(0)))
}

func TestColumn_PointerData(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	src := newTestColumn[Inventory](t, r, 1)
	dst := newTestColumn[Inventory](t, r, 1)

	owner := "alice"
	src.store(0, typedBox(t, r, Inventory{Items: map[string]int{"sword": 1}, Owner: &owner}))
	dst.copyRow(0, &src, 0)

	got := *(*Inventory)(dst.ptr(0))
	assert.Equal(t, 1, got.Items["sword"])
	assert.Same(t, &owner, got.Owner)

	src.reset(0)
	assert.Nil(t, (*Inventory)(src.ptr(0)).Items)
	assert.Nil(t, (*Inventory)(src.ptr(0)).Owner)
}

func TestColumn_UntypedBox(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	col := newTestColumn[Health](t, r, 1)
	id := ComponentIDOf[Health](r)
	ct, _ := r.component(id)

	src := typedBox(t, r, Health{Value: 77})
	col.store(0, newUntypedBox(id, ct, src.Bytes()))
	assert.Equal(t, Health{Value: 77}, *(*Health)(col.ptr(0)))
	assert.Equal(t, src.Bytes(), col.rowBytes(0))
}

func TestColumn_ZeroSize(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	col := newTestColumn[PlayerTag](t, r, 1)
	assert.Equal(t, uintptr(0), col.stride)

	assert.NotPanics(t, func() {
		col.store(0, typedBox(t, r, PlayerTag{}))
		col.copyRow(0, &col, 0)
		col.reset(0)
	})
	assert.Nil(t, col.bytes(1))
	assert.Nil(t, col.rowBytes(0))
}
