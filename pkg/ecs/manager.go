package ecs

import (
	"github.com/argus-labs/astris/pkg/assert"
	"github.com/argus-labs/astris/pkg/pool"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// entityRecord is the location of a live entity.
type entityRecord struct {
	archetype uint32 // Index in EntityManager.archetypes
	row       int    // Slot in the archetype's columns
}

// EntityManager owns every archetype and the index from entity UUID to storage location. It is not
// safe for concurrent use.
type EntityManager struct {
	registry        *TypeRegistry
	logger          *zerolog.Logger
	entityCountHint int

	archetypes  []*archetype               // Archetype ID -> archetype, never shrinks
	bySignature map[string]ArchetypeHandle // Signature key -> archetype
	index       map[UUID]*entityRecord     // Live entity -> location
	records     *pool.PoolAllocator[entityRecord]
}

// NewEntityManager creates an empty manager over registry. Options not set in opts are read from the
// environment.
func NewEntityManager(registry *TypeRegistry, opts ManagerOptions) (*EntityManager, error) {
	if registry == nil {
		return nil, eris.New("type registry cannot be nil")
	}

	cfg, err := loadManagerConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load ecs config")
	}

	options := newDefaultManagerOptions()
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid ecs options")
	}

	logger := nopLogger(options.Logger)
	records := pool.NewPoolAllocator[entityRecord](*logger)
	records.AllocateNewPool(options.IndexPoolPrealloc)

	return &EntityManager{
		registry:        registry,
		logger:          logger,
		entityCountHint: options.EntityCountHint,
		archetypes:      make([]*archetype, 0),
		bySignature:     make(map[string]ArchetypeHandle),
		index:           make(map[UUID]*entityRecord, options.IndexPoolPrealloc),
		records:         records,
	}, nil
}

// Registry returns the registry the manager resolves types with.
func (m *EntityManager) Registry() *TypeRegistry { return m.registry }

// Logger returns the logger recoverable errors are reported to.
func (m *EntityManager) Logger() *zerolog.Logger { return m.logger }

// NewEntityCreationContext returns a staging context bound to the manager's registry and logger.
func (m *EntityManager) NewEntityCreationContext() *EntityCreationContext {
	return NewEntityCreationContext(m.registry, m.logger)
}

// NewArchetypeCreationContext returns a schema builder bound to the manager's registry and logger.
func (m *EntityManager) NewArchetypeCreationContext() *ArchetypeCreationContext {
	return NewArchetypeCreationContext(m.registry, m.logger)
}

// NewArchetypeExtensionContext returns an extension builder of source.
func (m *EntityManager) NewArchetypeExtensionContext(source ArchetypeHandle) *ArchetypeExtensionContext {
	return NewArchetypeExtensionContext(m.registry, m.logger, source)
}

// NewArchetypeReductionContext returns a reduction builder of source.
func (m *EntityManager) NewArchetypeReductionContext(source ArchetypeHandle) *ArchetypeReductionContext {
	return NewArchetypeReductionContext(m.registry, m.logger, source)
}

// -------------------------------------------------------------------------------------------------
// Archetypes
// -------------------------------------------------------------------------------------------------

// CreateArchetype returns the archetype with the builder's signature, creating it if none exists.
// The builder is consumed on success. An existing archetype keeps its capacity and the builder's
// entity count is ignored.
func (m *EntityManager) CreateArchetype(b *ArchetypeCreationContext) (ArchetypeHandle, error) {
	if err := m.checkBuilder(b); err != nil {
		return ArchetypeHandle{}, err
	}

	sig := b.sig()
	if err := m.checkLimits(sig); err != nil {
		return ArchetypeHandle{}, err
	}

	handle := m.resolve(sig, b.entityCount)
	b.consume()
	return handle, nil
}

// ExtendArchetype returns the archetype of the source signature plus the builder's components and
// tags, creating it if none exists. Adding a type the source already has is rejected with
// ErrComponentAlreadyPresent.
func (m *EntityManager) ExtendArchetype(ext *ArchetypeExtensionContext) (ArchetypeHandle, error) {
	if ext == nil {
		return ArchetypeHandle{}, m.checkBuilder(nil)
	}
	src, err := m.checkDerived(&ext.ArchetypeCreationContext, ext.source)
	if err != nil {
		return ArchetypeHandle{}, err
	}
	sig, err := m.extendedSignature(src, &ext.ArchetypeCreationContext)
	if err != nil {
		return ArchetypeHandle{}, err
	}

	handle := m.resolve(sig, ext.entityCount)
	ext.consume()
	return handle, nil
}

// ReduceArchetype returns the archetype of the source signature minus the builder's components and
// tags, creating it if none exists. Removing a type the source doesn't have is rejected.
func (m *EntityManager) ReduceArchetype(red *ArchetypeReductionContext) (ArchetypeHandle, error) {
	if red == nil {
		return ArchetypeHandle{}, m.checkBuilder(nil)
	}
	src, err := m.checkDerived(&red.ArchetypeCreationContext, red.source)
	if err != nil {
		return ArchetypeHandle{}, err
	}
	sig, err := m.reducedSignature(src, &red.ArchetypeCreationContext)
	if err != nil {
		return ArchetypeHandle{}, err
	}

	handle := m.resolve(sig, red.entityCount)
	red.consume()
	return handle, nil
}

// ArchetypeCount returns the number of archetypes, including empty ones.
func (m *EntityManager) ArchetypeCount() int { return len(m.archetypes) }

// resolve returns the archetype of sig, creating it with the given capacity (or the manager
// default) if it doesn't exist yet.
func (m *EntityManager) resolve(sig signature, capacity int) ArchetypeHandle {
	key := sig.key()
	if handle, ok := m.bySignature[key]; ok {
		return handle
	}

	if capacity <= 0 {
		capacity = m.entityCountHint
	}
	handle := ArchetypeHandle{id: uint32(len(m.archetypes)), valid: true} //nolint:gosec // bounded by memory
	arch := newArchetype(handle, newSignature(sig.components, sig.tags), m.registry, capacity)
	m.archetypes = append(m.archetypes, arch)
	m.bySignature[key] = handle

	m.logger.Debug().
		Uint32("archetype", handle.id).
		Int("components", len(sig.components)).
		Int("tags", len(sig.tags)).
		Int("capacity", capacity).
		Msg("archetype created")
	return handle
}

// lookupArchetype returns the archetype of a handle issued by this manager.
func (m *EntityManager) lookupArchetype(handle ArchetypeHandle) (*archetype, error) {
	if !handle.valid || int(handle.id) >= len(m.archetypes) {
		return nil, report(m.logger, eris.Wrapf(ErrArchetypeNotFound, "handle %d", handle.id),
			"unknown archetype", "archetype", handle.id)
	}
	return m.archetypes[handle.id], nil
}

func (m *EntityManager) checkBuilder(b *ArchetypeCreationContext) error {
	if b == nil {
		return report(m.logger, eris.Wrap(ErrStructuralMismatch, "archetype context is nil"), "archetype rejected")
	}
	if b.consumed {
		return report(m.logger, ErrContextConsumed, "archetype context reused")
	}
	if b.registry != m.registry {
		return report(m.logger, eris.Wrap(ErrStructuralMismatch, "archetype context uses another registry"),
			"archetype rejected")
	}
	return nil
}

func (m *EntityManager) checkDerived(b *ArchetypeCreationContext, source ArchetypeHandle) (*archetype, error) {
	if err := m.checkBuilder(b); err != nil {
		return nil, err
	}
	return m.lookupArchetype(source)
}

// checkLimits rejects signatures whose entities would exceed the storage limits.
func (m *EntityManager) checkLimits(sig signature) error {
	if len(sig.components) > MaxComponentCount {
		return report(m.logger,
			eris.Wrapf(ErrSignatureLimit, "%d components, at most %d allowed", len(sig.components), MaxComponentCount),
			"archetype rejected")
	}

	var total uint32
	for _, id := range sig.components {
		ct, ok := m.registry.component(id)
		assert.That(ok, "component %d in signature is not registered", id)
		if ct.size > MaxComponentSize {
			return report(m.logger,
				eris.Wrapf(ErrSignatureLimit, "component %s is %d bytes, at most %d allowed",
					ct.name, ct.size, MaxComponentSize),
				"archetype rejected", "component", ct.name)
		}
		total += ct.size
	}
	if total > MaxEntitySize {
		return report(m.logger,
			eris.Wrapf(ErrSignatureLimit, "entity is %d bytes, at most %d allowed", total, MaxEntitySize),
			"archetype rejected")
	}
	return nil
}

// extendedSignature returns the signature of src plus the builder's types.
func (m *EntityManager) extendedSignature(src *archetype, b *ArchetypeCreationContext) (signature, error) {
	for _, id := range b.components {
		if src.hasComponent(id) {
			ct, _ := m.registry.component(id)
			return signature{}, report(m.logger,
				eris.Wrapf(ErrComponentAlreadyPresent, "component %s", ct.name),
				"extension rejected", "archetype", src.handle.id, "component", ct.name)
		}
	}
	for _, id := range b.tags {
		if src.hasTag(id) {
			name, _ := m.registry.TagName(id)
			return signature{}, report(m.logger,
				eris.Wrapf(ErrComponentAlreadyPresent, "tag %s", name),
				"extension rejected", "archetype", src.handle.id, "tag", name)
		}
	}

	sig := src.sig.union(b.sig())
	if err := m.checkLimits(sig); err != nil {
		return signature{}, err
	}
	return sig, nil
}

// reducedSignature returns the signature of src without the builder's types.
func (m *EntityManager) reducedSignature(src *archetype, b *ArchetypeCreationContext) (signature, error) {
	for _, id := range b.components {
		if !src.hasComponent(id) {
			ct, _ := m.registry.component(id)
			return signature{}, report(m.logger,
				eris.Wrapf(ErrComponentNotFound, "component %s", ct.name),
				"reduction rejected", "archetype", src.handle.id, "component", ct.name)
		}
	}
	for _, id := range b.tags {
		if !src.hasTag(id) {
			name, _ := m.registry.TagName(id)
			return signature{}, report(m.logger,
				eris.Wrapf(ErrTagNotFound, "tag %s", name),
				"reduction rejected", "archetype", src.handle.id, "tag", name)
		}
	}
	return src.sig.difference(b.sig()), nil
}

// -------------------------------------------------------------------------------------------------
// Entities
// -------------------------------------------------------------------------------------------------

// SpawnEntity creates an entity with a fresh UUID in the archetype of handle. The context must stage
// exactly the archetype's components and tags, otherwise ErrStructuralMismatch is returned and
// nothing is created. The context is consumed on success.
func (m *EntityManager) SpawnEntity(handle ArchetypeHandle, ctx *EntityCreationContext) (Entity, error) {
	arch, err := m.checkSpawn(handle, ctx)
	if err != nil {
		return Entity{}, err
	}

	uuid := NewUUID()
	for m.index[uuid] != nil {
		uuid = NewUUID()
	}
	return m.spawn(arch, uuid, ctx), nil
}

// SpawnEntityWithUUID is SpawnEntity with a caller chosen identity, used when loading saved levels.
// Returns ErrDuplicateEntity if uuid is zero or already alive.
func (m *EntityManager) SpawnEntityWithUUID(
	handle ArchetypeHandle, uuid UUID, ctx *EntityCreationContext,
) (Entity, error) {
	if uuid.IsZero() || m.index[uuid] != nil {
		return Entity{}, report(m.logger, eris.Wrapf(ErrDuplicateEntity, "uuid %s", uuid),
			"spawn rejected", "entity", uuid.String())
	}

	arch, err := m.checkSpawn(handle, ctx)
	if err != nil {
		return Entity{}, err
	}
	return m.spawn(arch, uuid, ctx), nil
}

func (m *EntityManager) checkSpawn(handle ArchetypeHandle, ctx *EntityCreationContext) (*archetype, error) {
	if ctx == nil {
		return nil, report(m.logger, eris.Wrap(ErrStructuralMismatch, "entity creation context is nil"),
			"spawn rejected")
	}
	if ctx.consumed {
		return nil, report(m.logger, ErrContextConsumed, "entity creation context reused")
	}
	if ctx.registry != m.registry {
		return nil, report(m.logger, eris.Wrap(ErrStructuralMismatch, "context uses another registry"),
			"spawn rejected")
	}

	arch, err := m.lookupArchetype(handle)
	if err != nil {
		return nil, err
	}
	if !arch.sig.equal(signature{components: ctx.ComponentIDs(), tags: ctx.tags}) {
		return nil, report(m.logger,
			eris.Wrapf(ErrStructuralMismatch, "staged %d components and %d tags, archetype %d has %d and %d",
				len(ctx.boxes), len(ctx.tags), handle.id, len(arch.sig.components), len(arch.sig.tags)),
			"spawn rejected", "archetype", handle.id)
	}
	return arch, nil
}

// spawn writes the staged values into a new slot and indexes the entity.
func (m *EntityManager) spawn(arch *archetype, uuid UUID, ctx *EntityCreationContext) Entity {
	row := arch.allocSlot(uuid)
	for i := range ctx.boxes {
		arch.columns[i].store(row, ctx.boxes[i])
	}
	m.index[uuid] = m.records.Allocate(entityRecord{archetype: arch.handle.id, row: row})
	ctx.consume()
	return Entity{uuid: uuid, manager: m}
}

// DestroyEntity removes an entity and releases its slot. The last entity of the archetype moves
// into the freed slot.
func (m *EntityManager) DestroyEntity(e Entity) error {
	record, err := m.lookupEntity(e)
	if err != nil {
		return err
	}

	m.removeRow(m.archetypes[record.archetype], record.row)
	delete(m.index, e.uuid)
	m.records.Free(record)
	return nil
}

// AddComponents moves an entity to the archetype extended by ext. The extension's source must be
// the entity's current archetype. Added components start from their zero value.
func (m *EntityManager) AddComponents(e Entity, ext *ArchetypeExtensionContext) error {
	if ext == nil {
		return m.checkBuilder(nil)
	}
	record, err := m.lookupEntity(e)
	if err != nil {
		return err
	}
	src, err := m.checkEntityDerived(e, record, &ext.ArchetypeCreationContext, ext.source)
	if err != nil {
		return err
	}
	sig, err := m.extendedSignature(src, &ext.ArchetypeCreationContext)
	if err != nil {
		return err
	}

	m.migrate(e.uuid, record, src, m.archetypes[m.resolve(sig, ext.entityCount).id])
	ext.consume()
	return nil
}

// RemoveComponents moves an entity to the archetype reduced by red. The reduction's source must be
// the entity's current archetype.
func (m *EntityManager) RemoveComponents(e Entity, red *ArchetypeReductionContext) error {
	if red == nil {
		return m.checkBuilder(nil)
	}
	record, err := m.lookupEntity(e)
	if err != nil {
		return err
	}
	src, err := m.checkEntityDerived(e, record, &red.ArchetypeCreationContext, red.source)
	if err != nil {
		return err
	}
	sig, err := m.reducedSignature(src, &red.ArchetypeCreationContext)
	if err != nil {
		return err
	}

	m.migrate(e.uuid, record, src, m.archetypes[m.resolve(sig, red.entityCount).id])
	red.consume()
	return nil
}

// ArchetypeOf returns the archetype an entity currently lives in.
func (m *EntityManager) ArchetypeOf(e Entity) (ArchetypeHandle, error) {
	record, err := m.lookupEntity(e)
	if err != nil {
		return ArchetypeHandle{}, err
	}
	return m.archetypes[record.archetype].handle, nil
}

// Entity returns the live entity with the given UUID.
func (m *EntityManager) Entity(uuid UUID) (Entity, bool) {
	if m.index[uuid] == nil {
		return Entity{}, false
	}
	return Entity{uuid: uuid, manager: m}, true
}

// EntityCount returns the number of live entities.
func (m *EntityManager) EntityCount() int { return len(m.index) }

func (m *EntityManager) lookupEntity(e Entity) (*entityRecord, error) {
	if e.manager != m {
		return nil, report(m.logger, eris.Wrapf(ErrEntityNotFound, "entity %s belongs to another manager", e.uuid),
			"unknown entity", "entity", e.uuid.String())
	}
	record := m.index[e.uuid]
	if record == nil {
		return nil, report(m.logger, eris.Wrapf(ErrEntityNotFound, "entity %s", e.uuid),
			"unknown entity", "entity", e.uuid.String())
	}
	return record, nil
}

func (m *EntityManager) checkEntityDerived(
	e Entity, record *entityRecord, b *ArchetypeCreationContext, source ArchetypeHandle,
) (*archetype, error) {
	src, err := m.checkDerived(b, source)
	if err != nil {
		return nil, err
	}
	if src.handle.id != record.archetype {
		return nil, report(m.logger,
			eris.Wrapf(ErrStructuralMismatch, "context derives from archetype %d, entity %s lives in %d",
				src.handle.id, e.uuid, record.archetype),
			"migration rejected", "entity", e.uuid.String())
	}
	return src, nil
}

// migrate moves an entity from src to dst, copying every component both archetypes store. Components
// only dst stores start zeroed; components only src stores are dropped with the vacated slot.
func (m *EntityManager) migrate(uuid UUID, record *entityRecord, src, dst *archetype) {
	if src == dst {
		return
	}

	row := dst.allocSlot(uuid)
	for i := range dst.columns {
		col := &dst.columns[i]
		if srcCol := src.column(col.id); srcCol != nil {
			col.copyRow(row, srcCol, record.row)
		}
	}
	m.removeRow(src, record.row)

	record.archetype = dst.handle.id
	record.row = row
}

// removeRow compacts a slot out of an archetype and fixes the index entry of the entity moved into
// it.
func (m *EntityManager) removeRow(arch *archetype, row int) {
	moved, ok := arch.removeSlot(row)
	if !ok {
		return
	}
	record := m.index[moved]
	assert.That(record != nil, "moved entity %s is not indexed", moved)
	record.row = row
}

// -------------------------------------------------------------------------------------------------
// Typed structural helpers
// -------------------------------------------------------------------------------------------------

// Attach adds component T with value v to an entity.
func Attach[T any](m *EntityManager, e Entity, v T) error {
	handle, err := m.ArchetypeOf(e)
	if err != nil {
		return err
	}
	ext := m.NewArchetypeExtensionContext(handle)
	if err := IncludeComponent[T](ext); err != nil {
		return err
	}
	if err := m.AddComponents(e, ext); err != nil {
		return err
	}

	ptr := GetComponent[T](e)
	assert.That(ptr != nil, "attached component is missing")
	*ptr = v
	return nil
}

// Detach removes component T from an entity.
func Detach[T any](m *EntityManager, e Entity) error {
	handle, err := m.ArchetypeOf(e)
	if err != nil {
		return err
	}
	red := m.NewArchetypeReductionContext(handle)
	if err := IncludeComponent[T](red); err != nil {
		return err
	}
	return m.RemoveComponents(e, red)
}

// AttachTag adds tag T to an entity.
func AttachTag[T any](m *EntityManager, e Entity) error {
	handle, err := m.ArchetypeOf(e)
	if err != nil {
		return err
	}
	ext := m.NewArchetypeExtensionContext(handle)
	if err := IncludeTag[T](ext); err != nil {
		return err
	}
	return m.AddComponents(e, ext)
}

// DetachTag removes tag T from an entity.
func DetachTag[T any](m *EntityManager, e Entity) error {
	handle, err := m.ArchetypeOf(e)
	if err != nil {
		return err
	}
	red := m.NewArchetypeReductionContext(handle)
	if err := IncludeTag[T](red); err != nil {
		return err
	}
	return m.RemoveComponents(e, red)
}
