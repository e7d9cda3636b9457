// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
)

// Sentinel errors returned by DocumentStore implementations and the services
// built on them.
var (
	// ErrNotFound indicates the requested document slot holds no document.
	ErrNotFound = errors.New("document not found")

	// ErrCorrupt indicates a document exists but its bytes cannot be trusted.
	ErrCorrupt = errors.New("document corrupt")

	// ErrIndexOutOfRange indicates an account index past the end of the document.
	ErrIndexOutOfRange = errors.New("account index out of range")
)

// Slot names a document location. The authoritative and staged documents are
// structurally identical and distinguished purely by slot.
type Slot string

const (
	SlotAuthoritative Slot = "authoritative"
	SlotStaged        Slot = "staged"
)

// DocumentStore defines the driven port for persisting serialized
// configuration documents. Implementations must make Write atomic: a reader
// sees either the previous bytes or the new bytes, never a mix, even if the
// process dies mid-write.
type DocumentStore interface {
	// Read returns the bytes stored in slot, or ErrNotFound.
	Read(ctx context.Context, slot Slot) ([]byte, error)

	// Write atomically replaces the bytes stored in slot.
	Write(ctx context.Context, slot Slot, data []byte) error

	// Remove deletes slot. Removing an empty slot is not an error.
	Remove(ctx context.Context, slot Slot) error
}

// ChangeNotifier is implemented by stores that can signal slot changes
// without being polled. The channel is closed when ctx is done.
type ChangeNotifier interface {
	Changes(ctx context.Context) (<-chan Slot, error)
}
