package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// Changes watches the data directory and reports the slot whose file was
// created, written, renamed over, or removed. Temporary files from in-flight
// atomic writes are ignored; their final rename is what gets reported.
// Sends never block: if the consumer is busy the event is dropped, which is
// fine because consumers re-read the slot rather than trusting the event.
func (s *Store) Changes(ctx context.Context) (<-chan driven.Slot, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	out := make(chan driven.Slot, 1)
	go func() {
		defer watcher.Close()
		s.forward(ctx, watcher.Events, watcher.Errors, out)
	}()

	return out, nil
}

// forward translates watcher events into slot notifications until ctx is done
// or either source closes, then closes out.
func (s *Store) forward(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, out chan<- driven.Slot) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			slot, known := slotForFile(filepath.Base(event.Name))
			if !known || event.Op == fsnotify.Chmod {
				continue
			}
			select {
			case out <- slot:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.logger.Warn("document watcher error", "dir", s.dir, "error", err)
		}
	}
}
