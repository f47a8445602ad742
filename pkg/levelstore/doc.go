// Package levelstore persists the entities of an EntityManager as levels. A level keeps component
// and tag types by name and component values as the raw bytes of their columns, so only plain data
// components can be saved. Loading rebuilds every entity through the raw component path of an
// EntityCreationContext under its saved UUID.
package levelstore
