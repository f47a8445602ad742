package testutils

// Components.

type Position struct{ X, Y, Z float32 }

type Velocity struct{ X, Y, Z float32 }

type Health struct{ Value int32 }

type Experience struct{ Value uint64 }

// Inventory holds Go pointers, so it can't be stored or loaded as raw bytes.
type Inventory struct {
	Items map[string]int
	Owner *string
}

// Oversized exceeds the per-component size limit.
type Oversized struct{ Data [129]byte }

type Chunk struct{ Data [128]byte }

// Tags.

type PlayerTag struct{}

type EnemyTag struct{}

type FrozenTag struct{}
