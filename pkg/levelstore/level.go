package levelstore

import (
	"slices"

	"github.com/argus-labs/astris/pkg/ecs"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// levelVersion is written into every encoded level.
const levelVersion = 1

// Level is the serialized form of every non-empty archetype of a manager.
type Level struct {
	Version  int       `json:"version"`
	Sections []Section `json:"sections"`
}

// Section holds the entities of one archetype.
type Section struct {
	Components []ColumnData `json:"components"`
	Tags       []string     `json:"tags,omitempty"`
	Entities   []uint64     `json:"entities"`
}

// ColumnData holds one component column. Data is the rows of every entity of the section back to
// back, Size bytes each.
type ColumnData struct {
	Name string `json:"name"`
	Size uint32 `json:"size"`
	Data []byte `json:"data"`
}

// Encode serializes every non-empty archetype of m. Components that aren't plain data can't be
// encoded and fail with ecs.ErrNotPlainData.
func Encode(m *ecs.EntityManager) ([]byte, error) {
	level, err := Snapshot(m)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(level)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal level")
	}
	return blob, nil
}

// Snapshot copies the storage of m into a Level.
func Snapshot(m *ecs.EntityManager) (Level, error) {
	registry := m.Registry()
	level := Level{Version: levelVersion, Sections: make([]Section, 0)}

	for view := range m.Archetypes() {
		if view.Len() == 0 {
			continue
		}

		section := Section{
			Components: make([]ColumnData, 0, len(view.ComponentIDs())),
			Entities:   make([]uint64, view.Len()),
		}
		for i, uuid := range view.UUIDs() {
			section.Entities[i] = uint64(uuid)
		}

		for _, id := range view.ComponentIDs() {
			info, ok := registry.ComponentInfo(id)
			if !ok {
				return Level{}, eris.Wrapf(ecs.ErrComponentNotFound, "component %d is not registered", id)
			}
			if !info.Plain {
				return Level{}, eris.Wrapf(ecs.ErrNotPlainData, "component %s can't be saved", info.Name)
			}
			raw, _, _ := view.RawColumn(id)
			section.Components = append(section.Components, ColumnData{
				Name: info.Name,
				Size: info.Size,
				Data: slices.Clone(raw),
			})
		}

		for _, id := range view.TagIDs() {
			name, ok := registry.TagName(id)
			if !ok {
				return Level{}, eris.Wrapf(ecs.ErrTagNotFound, "tag %d is not registered", id)
			}
			section.Tags = append(section.Tags, name)
		}

		level.Sections = append(level.Sections, section)
	}
	return level, nil
}

// parseLevel unmarshals and version checks an encoded level.
func parseLevel(blob []byte) (Level, error) {
	var level Level
	if err := json.Unmarshal(blob, &level); err != nil {
		return Level{}, eris.Wrap(err, "failed to unmarshal level")
	}
	if level.Version != levelVersion {
		return Level{}, eris.Wrapf(ErrUnsupportedVersion, "got version %d, want %d", level.Version, levelVersion)
	}
	return level, nil
}
