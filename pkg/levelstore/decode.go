package levelstore

import (
	"context"
	"slices"

	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/argus-labs/astris/pkg/pool"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StagedEntity is a decoded entity ready to be spawned.
type StagedEntity struct {
	UUID    ecs.UUID
	Context *ecs.EntityCreationContext
}

// StagedSection is the decoded form of a Section: the archetype layout resolved against a registry
// and one staged entity per saved entity.
type StagedSection struct {
	Components []ecs.ComponentID
	Tags       []ecs.TagID
	Entities   []*StagedEntity
}

// Decoder turns encoded levels into staged entities. Sections are decoded concurrently, so the
// staged entity records come from a thread safe pool and are recycled by Release.
type Decoder struct {
	registry *ecs.TypeRegistry
	logger   *zerolog.Logger
	staged   *pool.ThreadSafePoolAllocator[StagedEntity]
}

// NewDecoder returns a decoder resolving names against registry. Every type stored in a level must
// be registered before decoding.
func NewDecoder(registry *ecs.TypeRegistry, logger *zerolog.Logger) *Decoder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Decoder{
		registry: registry,
		logger:   logger,
		staged:   pool.NewThreadSafePoolAllocator[StagedEntity](*logger),
	}
}

// Decode parses blob and stages its entities. The registry is only read, so it is safe to decode
// while no other goroutine registers types.
func (d *Decoder) Decode(ctx context.Context, blob []byte) ([]StagedSection, error) {
	level, err := parseLevel(blob)
	if err != nil {
		return nil, err
	}

	// Resolve names and validate sizes up front so the workers can't fail.
	staged := make([]StagedSection, len(level.Sections))
	for i := range level.Sections {
		if staged[i], err = d.resolve(&level.Sections[i]); err != nil {
			return nil, eris.Wrapf(err, "section %d", i)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range level.Sections {
		g.Go(func() error {
			return d.stage(ctx, &level.Sections[i], &staged[i])
		})
	}
	if err := g.Wait(); err != nil {
		d.Release(staged)
		return nil, err
	}

	d.logger.Debug().Int("sections", len(staged)).Msg("level decoded")
	return staged, nil
}

// Release returns the staged entity records of sections to the pool.
func (d *Decoder) Release(sections []StagedSection) {
	for i := range sections {
		for _, entity := range sections[i].Entities {
			d.staged.Free(entity)
		}
		sections[i].Entities = nil
	}
}

// StagedCount returns the number of staged entities not yet released.
func (d *Decoder) StagedCount() uint32 {
	return d.staged.AllocatedObjectsCount()
}

func (d *Decoder) resolve(section *Section) (StagedSection, error) {
	out := StagedSection{
		Components: make([]ecs.ComponentID, len(section.Components)),
		Tags:       make([]ecs.TagID, len(section.Tags)),
	}
	count := uint64(len(section.Entities))

	for i, col := range section.Components {
		id, err := d.registry.ComponentIDByName(col.Name)
		if err != nil {
			return StagedSection{}, err
		}
		info, _ := d.registry.ComponentInfo(id)
		if !info.Plain {
			return StagedSection{}, eris.Wrapf(ecs.ErrNotPlainData, "component %s can't be loaded", col.Name)
		}
		if info.Size != col.Size {
			return StagedSection{}, eris.Wrapf(ErrCorruptLevel, "component %s is %d bytes, level has %d",
				col.Name, info.Size, col.Size)
		}
		if uint64(len(col.Data)) != count*uint64(col.Size) {
			return StagedSection{}, eris.Wrapf(ErrCorruptLevel, "component %s has %d bytes for %d entities",
				col.Name, len(col.Data), count)
		}
		if slices.Contains(out.Components[:i], id) {
			return StagedSection{}, eris.Wrapf(ErrCorruptLevel, "component %s appears twice", col.Name)
		}
		out.Components[i] = id
	}

	for i, name := range section.Tags {
		id, err := d.registry.TagIDByName(name)
		if err != nil {
			return StagedSection{}, err
		}
		if slices.Contains(out.Tags[:i], id) {
			return StagedSection{}, eris.Wrapf(ErrCorruptLevel, "tag %s appears twice", name)
		}
		out.Tags[i] = id
	}
	return out, nil
}

// stage builds one creation context per entity of a section.
func (d *Decoder) stage(ctx context.Context, section *Section, out *StagedSection) error {
	out.Entities = make([]*StagedEntity, 0, len(section.Entities))
	for row, uuid := range section.Entities {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "decode canceled")
		}

		creation := ecs.NewEntityCreationContext(d.registry, d.logger)
		for i, col := range section.Components {
			start := uint64(row) * uint64(col.Size)
			data := col.Data[start : start+uint64(col.Size)]
			if err := creation.AddRawComponent(out.Components[i], data); err != nil {
				return eris.Wrapf(err, "entity %d", uuid)
			}
		}
		for _, id := range out.Tags {
			if err := creation.AddTagID(id); err != nil {
				return eris.Wrapf(err, "entity %d", uuid)
			}
		}

		out.Entities = append(out.Entities, d.staged.Allocate(StagedEntity{
			UUID:    ecs.UUID(uuid),
			Context: creation,
		}))
	}
	return nil
}
