package ecs

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/kelindar/bitmap"
)

// signature is the canonical identity of an archetype: ascending, duplicate-free component and tag
// IDs. Two builders describing the same sets in any order produce equal signatures.
type signature struct {
	components []ComponentID
	tags       []TagID
}

// newSignature canonicalizes the given IDs. The inputs are not modified.
func newSignature(components []ComponentID, tags []TagID) signature {
	return signature{
		components: sortedUnique(components),
		tags:       sortedUnique(tags),
	}
}

// key encodes the signature as a string usable as a map key.
func (s signature) key() string {
	buf := make([]byte, 0, 8*(len(s.components)+len(s.tags)+1))
	buf = binary.AppendUvarint(buf, uint64(len(s.components)))
	for _, id := range s.components {
		buf = binary.AppendUvarint(buf, uint64(id))
	}
	for _, id := range s.tags {
		buf = binary.AppendUvarint(buf, uint64(id))
	}
	return string(buf)
}

// union returns the signature with every ID of add included.
func (s signature) union(add signature) signature {
	return newSignature(
		append(slices.Clone(s.components), add.components...),
		append(slices.Clone(s.tags), add.tags...),
	)
}

// difference returns the signature with every ID of remove excluded.
func (s signature) difference(remove signature) signature {
	return signature{
		components: slices.DeleteFunc(slices.Clone(s.components), func(id ComponentID) bool {
			return containsSorted(remove.components, id)
		}),
		tags: slices.DeleteFunc(slices.Clone(s.tags), func(id TagID) bool {
			return containsSorted(remove.tags, id)
		}),
	}
}

func (s signature) equal(other signature) bool {
	return slices.Equal(s.components, other.components) && slices.Equal(s.tags, other.tags)
}

func (s signature) componentMask() bitmap.Bitmap {
	return toBitmap(s.components)
}

func (s signature) tagMask() bitmap.Bitmap {
	return toBitmap(s.tags)
}

func toBitmap[ID ComponentID | TagID](ids []ID) bitmap.Bitmap {
	var bm bitmap.Bitmap
	for _, id := range ids {
		bm.Set(uint32(id)) //nolint:gosec // IDs are dense and bounded by the number of registered types
	}
	return bm
}

// containsSorted reports whether the ascending slice ids contains id.
func containsSorted[ID cmp.Ordered](ids []ID, id ID) bool {
	_, found := slices.BinarySearch(ids, id)
	return found
}

// sortedUnique returns an ascending copy of ids without duplicates.
func sortedUnique[ID cmp.Ordered](ids []ID) []ID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// insertSorted inserts id into the ascending slice ids. Returns false if id is already present.
func insertSorted[ID cmp.Ordered](ids []ID, id ID) ([]ID, bool) {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids, false
	}
	return slices.Insert(ids, i, id), true
}

// deleteSorted removes id from the ascending slice ids. Returns false if id is missing.
func deleteSorted[ID cmp.Ordered](ids []ID, id ID) ([]ID, bool) {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids, false
	}
	return slices.Delete(ids, i, i+1), true
}
