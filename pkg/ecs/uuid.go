package ecs

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// UUID is the identity of an entity. Zero is reserved and never identifies a live entity.
type UUID uint64

// NewUUID returns a random non-zero UUID. The 128 random bits of a version 4 UUID are folded into
// 64 bits.
func NewUUID() UUID {
	for {
		u := uuid.New()
		folded := binary.LittleEndian.Uint64(u[:8]) ^ binary.LittleEndian.Uint64(u[8:])
		if folded != 0 {
			return UUID(folded)
		}
	}
}

// IsZero reports whether u is the reserved invalid value.
func (u UUID) IsZero() bool { return u == 0 }

func (u UUID) String() string { return fmt.Sprintf("%016x", uint64(u)) }
