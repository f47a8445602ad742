package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// SchemaBuilder is implemented by the archetype creation, extension and reduction contexts.
type SchemaBuilder interface {
	schema() *ArchetypeCreationContext
}

// ArchetypeCreationContext describes an archetype signature from scratch. The component and tag
// lists are kept ascending and duplicate-free whatever order they are added in.
type ArchetypeCreationContext struct {
	registry    *TypeRegistry
	logger      *zerolog.Logger
	components  []ComponentID
	tags        []TagID
	totalSize   uint32 // Sum of the sizes of components
	entityCount int    // Initial slot capacity, 0 selects the manager default
	consumed    bool
}

// NewArchetypeCreationContext returns an empty builder. A nil logger disables logging.
func NewArchetypeCreationContext(registry *TypeRegistry, logger *zerolog.Logger) *ArchetypeCreationContext {
	return &ArchetypeCreationContext{
		registry:   registry,
		logger:     nopLogger(logger),
		components: make([]ComponentID, 0),
		tags:       make([]TagID, 0),
	}
}

func (c *ArchetypeCreationContext) schema() *ArchetypeCreationContext { return c }

// AddComponents adds component IDs to the signature. Duplicates and unregistered IDs are logged and
// skipped while the remaining IDs are still added; the first such error is returned.
func (c *ArchetypeCreationContext) AddComponents(ids ...ComponentID) error {
	if err := c.checkAlive(); err != nil {
		return err
	}

	var first error
	for _, id := range ids {
		if err := c.addComponent(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AddTags adds tag IDs to the signature, with the same duplicate handling as AddComponents.
func (c *ArchetypeCreationContext) AddTags(ids ...TagID) error {
	if err := c.checkAlive(); err != nil {
		return err
	}

	var first error
	for _, id := range ids {
		if err := c.addTag(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetEntityCount sets the initial slot capacity used if this builder creates a new archetype.
// Values below 1 select the manager default.
func (c *ArchetypeCreationContext) SetEntityCount(n int) {
	c.entityCount = max(n, 0)
}

// ComponentIDs returns the component IDs added so far in ascending order.
func (c *ArchetypeCreationContext) ComponentIDs() []ComponentID { return slices.Clone(c.components) }

// TagIDs returns the tag IDs added so far in ascending order.
func (c *ArchetypeCreationContext) TagIDs() []TagID { return slices.Clone(c.tags) }

// TotalSize returns the byte size of one entity with the components added so far.
func (c *ArchetypeCreationContext) TotalSize() uint32 { return c.totalSize }

// EntityCount returns the capacity hint, 0 when unset.
func (c *ArchetypeCreationContext) EntityCount() int { return c.entityCount }

// Consumed reports whether the builder was already passed to a manager.
func (c *ArchetypeCreationContext) Consumed() bool { return c.consumed }

func (c *ArchetypeCreationContext) addComponent(id ComponentID) error {
	ct, ok := c.registry.component(id)
	if !ok {
		return report(c.logger, eris.Wrapf(ErrComponentNotFound, "component %d is not registered", id),
			"component skipped", "component_id", uint64(id))
	}
	components, inserted := insertSorted(c.components, id)
	if !inserted {
		return report(c.logger, eris.Wrapf(ErrDuplicateComponent, "component %s", ct.name),
			"duplicate component ignored", "component", ct.name)
	}
	c.components = components
	c.totalSize += ct.size
	return nil
}

func (c *ArchetypeCreationContext) addTag(id TagID) error {
	name, ok := c.registry.TagName(id)
	if !ok {
		return report(c.logger, eris.Wrapf(ErrTagNotFound, "tag %d is not registered", id),
			"tag skipped", "tag_id", uint64(id))
	}
	tags, inserted := insertSorted(c.tags, id)
	if !inserted {
		return report(c.logger, eris.Wrapf(ErrDuplicateTag, "tag %s", name),
			"duplicate tag ignored", "tag", name)
	}
	c.tags = tags
	return nil
}

func (c *ArchetypeCreationContext) checkAlive() error {
	if c.consumed {
		return report(c.logger, ErrContextConsumed, "archetype context reused")
	}
	return nil
}

func (c *ArchetypeCreationContext) sig() signature {
	return signature{components: c.components, tags: c.tags}
}

// consume marks the builder as used and drops its lists.
func (c *ArchetypeCreationContext) consume() {
	c.components = nil
	c.tags = nil
	c.totalSize = 0
	c.consumed = true
}

// IncludeComponent adds the component ID of T to a builder, registering T on first use.
func IncludeComponent[T any](b SchemaBuilder) error {
	c := b.schema()
	return c.AddComponents(ComponentIDOf[T](c.registry))
}

// IncludeTag adds the tag ID of T to a builder, registering T on first use.
func IncludeTag[T any](b SchemaBuilder) error {
	c := b.schema()
	return c.AddTags(TagIDOf[T](c.registry))
}

// -------------------------------------------------------------------------------------------------
// Derived archetypes
// -------------------------------------------------------------------------------------------------

// ArchetypeExtensionContext describes the archetype obtained by adding the builder's components and
// tags to the source archetype.
type ArchetypeExtensionContext struct {
	ArchetypeCreationContext

	source ArchetypeHandle
}

// NewArchetypeExtensionContext returns an empty extension of source.
func NewArchetypeExtensionContext(
	registry *TypeRegistry, logger *zerolog.Logger, source ArchetypeHandle,
) *ArchetypeExtensionContext {
	return &ArchetypeExtensionContext{
		ArchetypeCreationContext: *NewArchetypeCreationContext(registry, logger),
		source:                   source,
	}
}

// Source returns the archetype the builder derives from.
func (c *ArchetypeExtensionContext) Source() ArchetypeHandle { return c.source }

// ArchetypeReductionContext describes the archetype obtained by removing the builder's components
// and tags from the source archetype.
type ArchetypeReductionContext struct {
	ArchetypeExtensionContext
}

// NewArchetypeReductionContext returns an empty reduction of source.
func NewArchetypeReductionContext(
	registry *TypeRegistry, logger *zerolog.Logger, source ArchetypeHandle,
) *ArchetypeReductionContext {
	return &ArchetypeReductionContext{
		ArchetypeExtensionContext: *NewArchetypeExtensionContext(registry, logger, source),
	}
}
