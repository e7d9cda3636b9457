package application

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// SyncService is the display runtime's checkpoint. Each cycle promotes any
// staged document and then reads the authoritative one, in that order, so the
// runtime never renders from a document that a pending upload has replaced.
//
// It shares nothing in memory with the control server: uploads reach it only
// through the staged slot of the document store.
type SyncService struct {
	configs  *ConfigStore
	notifier driven.ChangeNotifier
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	current  model.Document
	loaded   bool
	onReload func(model.Document)
}

// NewSyncService creates a SyncService that checkpoints every interval.
// notifier may be nil, in which case the service only polls.
func NewSyncService(configs *ConfigStore, notifier driven.ChangeNotifier, interval time.Duration, logger *slog.Logger) *SyncService {
	return &SyncService{
		configs:  configs,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

// OnReload registers fn to receive every newly loaded document. It must be
// called before Start.
func (s *SyncService) OnReload(fn func(model.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = fn
}

// Current returns the last good authoritative document and whether one has
// been loaded yet.
func (s *SyncService) Current() (model.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// Start runs a checkpoint immediately and then on every tick or store change
// notification. It blocks until the context is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.Checkpoint(ctx); err != nil {
		s.logger.Error("initial checkpoint failed", "error", err)
	}

	var changes <-chan driven.Slot
	if s.notifier != nil {
		ch, err := s.notifier.Changes(ctx)
		if err != nil {
			s.logger.Warn("change notifications unavailable, polling only", "error", err)
		} else {
			changes = ch
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync service stopped")
			return
		case <-ticker.C:
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
		}

		if err := s.Checkpoint(ctx); err != nil {
			s.logger.Error("checkpoint failed", "error", err)
		}
	}
}

// Checkpoint promotes a staged document if there is one and reloads the
// authoritative document. A missing or corrupt authoritative document keeps
// the last good one in place. The returned error is the first failure.
func (s *SyncService) Checkpoint(ctx context.Context) error {
	promoted, promoteErr := s.configs.PromoteStaged(ctx)
	if promoted {
		s.logger.Info("staged configuration applied")
	}

	doc, err := s.configs.Load(ctx)
	if err != nil {
		if errors.Is(err, driven.ErrNotFound) {
			s.logger.Warn("no authoritative document")
		}
		return errors.Join(promoteErr, err)
	}

	s.mu.Lock()
	changed := !s.loaded || !reflect.DeepEqual(s.current, doc)
	s.current, s.loaded = doc, true
	onReload := s.onReload
	s.mu.Unlock()

	if changed {
		s.logger.Info("configuration loaded",
			"accounts", len(doc.Accounts),
			"pages", doc.Pages(),
		)
		if onReload != nil {
			onReload(doc)
		}
	}

	return promoteErr
}
