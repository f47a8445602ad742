// Package ecs is an archetype based entity storage engine. Entities that share the same set of
// component and tag types live in one archetype, which stores each component type in a flat column.
// Structural changes move an entity between archetypes.
//
// Nothing in this package is safe for concurrent use. Reference every component and tag type
// (through ComponentIDOf, TagIDOf or the staging helpers) before the registry is shared between
// goroutines.
package ecs
