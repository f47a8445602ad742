package ecs

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateComponent is returned when a component type is added twice to the same context.
	ErrDuplicateComponent = eris.New("component of this type was already added")
	// ErrDuplicateTag is returned when a tag type is added twice to the same context.
	ErrDuplicateTag = eris.New("tag of this type was already added")
	// ErrComponentNotFound is returned when a component is looked up or removed but isn't there.
	ErrComponentNotFound = eris.New("component not found")
	// ErrTagNotFound is returned when a tag is looked up or removed but isn't there.
	ErrTagNotFound = eris.New("tag not found")
	// ErrUnknownProperty is returned when a type was registered neither as a component nor a tag.
	ErrUnknownProperty = eris.New("type is neither a registered component nor a registered tag")
	// ErrContextConsumed is returned when a staging or schema context is passed to the manager again.
	ErrContextConsumed = eris.New("context was already consumed")
	// ErrStructuralMismatch is returned when a context doesn't describe the archetype it is applied to.
	ErrStructuralMismatch = eris.New("context does not match the target archetype")
	// ErrComponentAlreadyPresent is returned when an extension adds a type the entity already has.
	ErrComponentAlreadyPresent = eris.New("entity already has this component or tag")
	// ErrArchetypeNotFound is returned for handles that don't refer to an archetype of this manager.
	ErrArchetypeNotFound = eris.New("archetype does not exist")
	// ErrEntityNotFound is returned when operating on an entity that isn't alive.
	ErrEntityNotFound = eris.New("entity does not exist")
	// ErrDuplicateEntity is returned when spawning with a UUID that is zero or already alive.
	ErrDuplicateEntity = eris.New("entity uuid is invalid or already alive")
	// ErrSignatureLimit is returned when a signature exceeds the per-entity count or size limits.
	ErrSignatureLimit = eris.New("archetype signature exceeds storage limits")
	// ErrNotPlainData is returned when raw bytes are used with a type that holds Go pointers.
	ErrNotPlainData = eris.New("component type is not plain data")
	// ErrInvalidSize is returned when raw component bytes don't match the registered type size.
	ErrInvalidSize = eris.New("component data size does not match its type")
)

// report logs a recoverable error where it was detected and hands it back to the caller. fields are
// alternating keys and values.
func report(logger *zerolog.Logger, err error, msg string, fields ...any) error {
	logger.Error().Err(err).Fields(fields).Msg(msg)
	return err
}

// nopLogger returns logger, or a disabled logger when it is nil.
func nopLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}
