// Package filestore persists configuration documents as JSON files in a data
// directory, one file per slot.
//
// Writes go to a temporary file in the same directory, are fsynced, and are
// renamed over the target, so a reader (or the next boot after a power cut)
// sees either the old document or the new one. The directory is fsynced after
// every rename and removal so the change itself survives power loss.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// File names of the two document slots inside the data directory.
const (
	AuthoritativeFile = "totp_config.json"
	StagedFile        = "totp_config.staged.json"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.ChangeNotifier = (*Store)(nil)
)

// Store is the file-backed implementation of the DocumentStore port.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a Store rooted at dir, creating the directory (mode 0700) if it
// does not exist yet.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the file backing slot.
func (s *Store) Path(slot driven.Slot) string {
	return filepath.Join(s.dir, fileName(slot))
}

// Read returns the contents of slot, or driven.ErrNotFound when the file is absent.
func (s *Store) Read(_ context.Context, slot driven.Slot) ([]byte, error) {
	data, err := os.ReadFile(s.Path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, driven.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", slot, err)
	}
	return data, nil
}

// Write atomically replaces the contents of slot.
func (s *Store) Write(_ context.Context, slot driven.Slot, data []byte) error {
	path := s.Path(slot)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s document: %w", slot, err)
	}
	// atomic.WriteFile keeps the mode of the file it replaces; make sure a
	// document holding secrets never ends up world-readable.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod %s document: %w", slot, err)
	}
	s.syncDir()
	return nil
}

// Remove deletes slot. A missing file is not an error.
func (s *Store) Remove(_ context.Context, slot driven.Slot) error {
	if err := os.Remove(s.Path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s document: %w", slot, err)
	}
	s.syncDir()
	return nil
}

// syncDir flushes directory metadata so renames and unlinks are durable.
// Failure is ignored: the data itself is already synced and some
// filesystems do not support fsync on directories.
func (s *Store) syncDir() {
	dir, err := os.Open(s.dir)
	if err != nil {
		return
	}
	_ = dir.Sync()
	_ = dir.Close()
}

func fileName(slot driven.Slot) string {
	if slot == driven.SlotStaged {
		return StagedFile
	}
	return AuthoritativeFile
}

func slotForFile(name string) (driven.Slot, bool) {
	switch name {
	case AuthoritativeFile:
		return driven.SlotAuthoritative, true
	case StagedFile:
		return driven.SlotStaged, true
	default:
		return "", false
	}
}
