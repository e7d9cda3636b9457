// Package docstore selects and opens the configured document store backend.
package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/otpdeck/internal/adapter/driven/filestore"
	"github.com/ericfisherdev/otpdeck/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/otpdeck/internal/config"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// Backend is an opened document store. Notifier is nil for backends that
// cannot report changes; callers then rely on polling.
type Backend struct {
	Store    driven.DocumentStore
	Notifier driven.ChangeNotifier
	Location string

	close func() error
}

// Close releases the backend's resources.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open opens the backend named by cfg.Store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store {
	case config.StoreFile:
		store, err := filestore.New(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		if cfg.SecretKey != nil {
			logger.Warn("secret key ignored by the file store; documents are protected by file mode only")
		}
		return &Backend{
			Store:    store,
			Notifier: store,
			Location: cfg.DataDir,
		}, nil

	case config.StoreSQLite:
		db, err := sqlite.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, err
		}
		repo, err := sqlite.NewDocumentRepo(db, cfg.SecretKey)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{
			Store:    repo,
			Location: cfg.DBPath,
			close:    db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("open document store: unknown backend %q", cfg.Store)
	}
}
