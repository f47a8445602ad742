package ecs

import (
	"cmp"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// EntityCreationContext stages the initial components and tags of one entity. The context owns the
// staged values until it is passed to EntityManager.SpawnEntity, which consumes it. A consumed
// context rejects every further call with ErrContextConsumed. A spawn that is rejected does not
// consume the context, so the caller can fix it and retry.
type EntityCreationContext struct {
	registry *TypeRegistry
	logger   *zerolog.Logger
	boxes    []ComponentBox // Ascending by component ID
	tags     []TagID        // Ascending
	consumed bool
}

// NewEntityCreationContext returns an empty context. A nil logger disables logging.
func NewEntityCreationContext(registry *TypeRegistry, logger *zerolog.Logger) *EntityCreationContext {
	return &EntityCreationContext{
		registry: registry,
		logger:   nopLogger(logger),
		boxes:    make([]ComponentBox, 0),
		tags:     make([]TagID, 0),
	}
}

// -------------------------------------------------------------------------------------------------
// Typed staging
// -------------------------------------------------------------------------------------------------

// AddComponent stages v. If a T is already staged the call is ignored and ErrDuplicateComponent is
// returned; the first value wins.
func AddComponent[T any](ctx *EntityCreationContext, v T) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	id := ComponentIDOf[T](ctx.registry)
	ct, _ := ctx.registry.component(id)
	return ctx.insert(newTypedBox(id, ct, v), ct.name)
}

// SetComponent replaces the staged value of T. Returns ErrComponentNotFound if no T is staged.
func SetComponent[T any](ctx *EntityCreationContext, v T) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	id := ComponentIDOf[T](ctx.registry)
	ct, _ := ctx.registry.component(id)
	i, found := ctx.find(id)
	if !found {
		return ctx.missingComponent(id, ct.name)
	}
	ctx.boxes[i] = newTypedBox(id, ct, v)
	return nil
}

// RemoveComponent drops the staged value of T. Returns ErrComponentNotFound if no T is staged.
func RemoveComponent[T any](ctx *EntityCreationContext) error {
	return ctx.RemoveComponentID(ComponentIDOf[T](ctx.registry))
}

// GetStagedComponent returns a copy of the staged value of T.
func GetStagedComponent[T any](ctx *EntityCreationContext) (T, bool) {
	var zero T
	if ctx.checkAlive() != nil {
		return zero, false
	}
	id := ComponentIDOf[T](ctx.registry)
	i, found := ctx.find(id)
	if !found {
		ct, _ := ctx.registry.component(id)
		_ = ctx.missingComponent(id, ct.name)
		return zero, false
	}
	return boxValue[T](ctx.boxes[i]), true
}

// AddTag stages tag T. Returns ErrDuplicateTag if it is already staged.
func AddTag[T any](ctx *EntityCreationContext) error {
	return ctx.AddTagID(TagIDOf[T](ctx.registry))
}

// RemoveTag drops tag T. Returns ErrTagNotFound if it isn't staged.
func RemoveTag[T any](ctx *EntityCreationContext) error {
	return ctx.RemoveTagID(TagIDOf[T](ctx.registry))
}

// -------------------------------------------------------------------------------------------------
// Untyped staging
// -------------------------------------------------------------------------------------------------

// AddRawComponent stages a copy of data as the value of component id. This is the load path of the
// serialization layer: the component must be registered, be plain data, and data must be exactly
// its size.
func (ctx *EntityCreationContext) AddRawComponent(id ComponentID, data []byte) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	ct, ok := ctx.registry.component(id)
	if !ok {
		return report(ctx.logger, eris.Wrapf(ErrComponentNotFound, "component %d is not registered", id),
			"raw component rejected", "component_id", uint64(id))
	}
	if !ct.plain {
		return report(ctx.logger, eris.Wrapf(ErrNotPlainData, "component %s", ct.name),
			"raw component rejected", "component", ct.name)
	}
	if uint64(len(data)) != uint64(ct.size) {
		return report(ctx.logger,
			eris.Wrapf(ErrInvalidSize, "component %s is %d bytes, got %d", ct.name, ct.size, len(data)),
			"raw component rejected", "component", ct.name)
	}
	return ctx.insert(newUntypedBox(id, ct, data), ct.name)
}

// RemoveComponentID drops the staged value of component id.
func (ctx *EntityCreationContext) RemoveComponentID(id ComponentID) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	i, found := ctx.find(id)
	if !found {
		ct, _ := ctx.registry.component(id)
		return ctx.missingComponent(id, ct.name)
	}
	ctx.boxes[i].release()
	ctx.boxes = slices.Delete(ctx.boxes, i, i+1)
	return nil
}

// AddTagID stages tag id. Returns ErrDuplicateTag if it is already staged.
func (ctx *EntityCreationContext) AddTagID(id TagID) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	if !ctx.registry.hasTag(id) {
		return report(ctx.logger, eris.Wrapf(ErrTagNotFound, "tag %d is not registered", id),
			"tag rejected", "tag_id", uint64(id))
	}
	tags, inserted := insertSorted(ctx.tags, id)
	if !inserted {
		name, _ := ctx.registry.TagName(id)
		return report(ctx.logger, eris.Wrapf(ErrDuplicateTag, "tag %s", name),
			"duplicate tag ignored", "tag", name)
	}
	ctx.tags = tags
	return nil
}

// RemoveTagID drops tag id. Returns ErrTagNotFound if it isn't staged.
func (ctx *EntityCreationContext) RemoveTagID(id TagID) error {
	if err := ctx.checkAlive(); err != nil {
		return err
	}
	tags, deleted := deleteSorted(ctx.tags, id)
	if !deleted {
		name, _ := ctx.registry.TagName(id)
		return report(ctx.logger, eris.Wrapf(ErrTagNotFound, "tag %s is not staged", name),
			"tag not staged", "tag_id", uint64(id))
	}
	ctx.tags = tags
	return nil
}

// -------------------------------------------------------------------------------------------------
// Inspection
// -------------------------------------------------------------------------------------------------

// ComponentCount returns the number of staged components.
func (ctx *EntityCreationContext) ComponentCount() int { return len(ctx.boxes) }

// TagCount returns the number of staged tags.
func (ctx *EntityCreationContext) TagCount() int { return len(ctx.tags) }

// ComponentIDs returns the staged component IDs in ascending order.
func (ctx *EntityCreationContext) ComponentIDs() []ComponentID {
	ids := make([]ComponentID, len(ctx.boxes))
	for i := range ctx.boxes {
		ids[i] = ctx.boxes[i].id
	}
	return ids
}

// TagIDs returns the staged tag IDs in ascending order.
func (ctx *EntityCreationContext) TagIDs() []TagID {
	return slices.Clone(ctx.tags)
}

// Box returns the staged box of component id.
func (ctx *EntityCreationContext) Box(id ComponentID) (ComponentBox, bool) {
	i, found := ctx.find(id)
	if !found {
		return ComponentBox{}, false
	}
	return ctx.boxes[i], true
}

// Consumed reports whether the context was already spawned.
func (ctx *EntityCreationContext) Consumed() bool { return ctx.consumed }

// -------------------------------------------------------------------------------------------------
// Internal
// -------------------------------------------------------------------------------------------------

func (ctx *EntityCreationContext) checkAlive() error {
	if ctx.consumed {
		return report(ctx.logger, ErrContextConsumed, "entity creation context reused")
	}
	return nil
}

func (ctx *EntityCreationContext) find(id ComponentID) (int, bool) {
	return slices.BinarySearchFunc(ctx.boxes, id, func(b ComponentBox, id ComponentID) int {
		return cmp.Compare(b.id, id)
	})
}

func (ctx *EntityCreationContext) insert(box ComponentBox, name string) error {
	i, found := ctx.find(box.id)
	if found {
		return report(ctx.logger, eris.Wrapf(ErrDuplicateComponent, "component %s", name),
			"duplicate component ignored", "component", name)
	}
	ctx.boxes = slices.Insert(ctx.boxes, i, box)
	return nil
}

func (ctx *EntityCreationContext) missingComponent(id ComponentID, name string) error {
	return report(ctx.logger, eris.Wrapf(ErrComponentNotFound, "component %s is not staged", name),
		"component not staged", "component_id", uint64(id))
}

// consume hands the staged values over and marks the context as used. Called by the manager
// after the values were copied into storage.
func (ctx *EntityCreationContext) consume() {
	for i := range ctx.boxes {
		ctx.boxes[i].release()
	}
	ctx.boxes = nil
	ctx.tags = nil
	ctx.consumed = true
}
