// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/otpauth"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// ConfigStore owns the authoritative configuration document and the staged
// commit that feeds it from untrusted uploads.
//
// Untrusted input only ever reaches the staged slot. The authoritative slot
// is written by Save, which the trusted console mutators and PromoteStaged
// call; every write validates first, so an invalid record never becomes
// authoritative.
type ConfigStore struct {
	store  driven.DocumentStore
	logger *slog.Logger
}

// NewConfigStore creates a ConfigStore over the given document store.
func NewConfigStore(store driven.DocumentStore, logger *slog.Logger) *ConfigStore {
	return &ConfigStore{
		store:  store,
		logger: logger,
	}
}

// Load returns the authoritative document. It fails with driven.ErrNotFound
// when none exists and driven.ErrCorrupt when the stored bytes do not decode
// or do not validate; it never returns a partially populated document.
func (s *ConfigStore) Load(ctx context.Context) (model.Document, error) {
	return s.load(ctx, driven.SlotAuthoritative)
}

// Save validates doc and atomically replaces the authoritative document.
func (s *ConfigStore) Save(ctx context.Context, doc model.Document) error {
	return s.write(ctx, driven.SlotAuthoritative, doc)
}

// Stage validates every record of doc and, only if all pass, writes it to
// the staged slot. On failure nothing is written and the returned error is a
// *model.ValidationError naming the offending record.
func (s *ConfigStore) Stage(ctx context.Context, doc model.Document) error {
	return s.write(ctx, driven.SlotStaged, doc)
}

// StageUpload stages the accounts from a decoded upload. Uploaded settings
// are used when present; otherwise the authoritative document's settings are
// carried over, falling back to defaults when there is no readable one.
func (s *ConfigStore) StageUpload(ctx context.Context, upload model.Upload) (int, error) {
	doc := model.Document{Accounts: upload.Accounts, Settings: model.DefaultSettings()}
	if upload.Settings != nil {
		doc.Settings = *upload.Settings
	} else if current, err := s.Load(ctx); err == nil {
		doc.Settings = current.Settings
	}

	if doc.Accounts == nil {
		doc.Accounts = []model.Credential{}
	}

	if err := s.Stage(ctx, doc); err != nil {
		return 0, err
	}
	return len(doc.Accounts), nil
}

// PromoteStaged moves a staged document into the authoritative slot. It
// reports whether a promotion happened and is a no-op returning false when
// nothing is staged.
//
// A staged document that cannot be decoded or fails validation is deleted
// without touching the authoritative document, and the returned error wraps
// driven.ErrCorrupt. A bad upload therefore costs one checkpoint, not the
// device. If the authoritative write fails the staged document is left in
// place for the next checkpoint.
func (s *ConfigStore) PromoteStaged(ctx context.Context) (bool, error) {
	doc, err := s.load(ctx, driven.SlotStaged)
	switch {
	case errors.Is(err, driven.ErrNotFound):
		return false, nil
	case errors.Is(err, driven.ErrCorrupt):
		if rmErr := s.store.Remove(ctx, driven.SlotStaged); rmErr != nil {
			return false, errors.Join(err, fmt.Errorf("discard corrupt staged document: %w", rmErr))
		}
		s.logger.Warn("discarded corrupt staged document", "error", err)
		return false, err
	case err != nil:
		return false, err
	}

	if err := s.Save(ctx, doc); err != nil {
		return false, fmt.Errorf("promote staged document: %w", err)
	}

	if err := s.store.Remove(ctx, driven.SlotStaged); err != nil {
		return true, fmt.Errorf("remove promoted staged document: %w", err)
	}

	s.logger.Info("promoted staged document", "accounts", len(doc.Accounts))
	return true, nil
}

// Pending reports whether an upload is staged and waiting for the next
// checkpoint. The staged bytes are not validated.
func (s *ConfigStore) Pending(ctx context.Context) (bool, error) {
	_, err := s.store.Read(ctx, driven.SlotStaged)
	switch {
	case errors.Is(err, driven.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// List returns the authoritative accounts in display order. A missing
// document lists as empty.
func (s *ConfigStore) List(ctx context.Context) ([]model.Credential, error) {
	doc, err := s.Load(ctx)
	if errors.Is(err, driven.ErrNotFound) {
		return []model.Credential{}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

// Count returns the number of authoritative accounts, or 0 when the document
// is missing or unreadable.
func (s *ConfigStore) Count(ctx context.Context) int {
	doc, err := s.Load(ctx)
	if err != nil {
		return 0
	}
	return len(doc.Accounts)
}

// Append validates cred and adds it to the end of the authoritative document.
// A missing document is started from model.DefaultDocument.
func (s *ConfigStore) Append(ctx context.Context, cred model.Credential) error {
	doc, err := s.Load(ctx)
	if errors.Is(err, driven.ErrNotFound) {
		doc, err = model.DefaultDocument(), nil
	}
	if err != nil {
		return err
	}

	if err := cred.Validate(); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			verr.Index = len(doc.Accounts)
		}
		return err
	}

	doc.Accounts = append(doc.Accounts, cred)
	if err := s.Save(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("account added", "label", cred.Label(), "accounts", len(doc.Accounts))
	return nil
}

// Remove deletes the account at index and returns it. Remaining accounts
// keep their relative order.
func (s *ConfigStore) Remove(ctx context.Context, index int) (model.Credential, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return model.Credential{}, err
	}

	if index < 0 || index >= len(doc.Accounts) {
		return model.Credential{}, fmt.Errorf("%w: %d of %d", driven.ErrIndexOutOfRange, index, len(doc.Accounts))
	}

	removed := doc.Accounts[index]
	accounts := make([]model.Credential, 0, len(doc.Accounts)-1)
	accounts = append(accounts, doc.Accounts[:index]...)
	doc.Accounts = append(accounts, doc.Accounts[index+1:]...)

	if err := s.Save(ctx, doc); err != nil {
		return model.Credential{}, err
	}

	s.logger.Info("account removed", "label", removed.Label(), "accounts", len(doc.Accounts))
	return removed, nil
}

// EnsureSeeded writes a first-boot document when no authoritative document
// exists and reports whether it did. With demo set, the document holds one
// demo account with a freshly generated secret. An existing document, even a
// corrupt one, is never overwritten.
func (s *ConfigStore) EnsureSeeded(ctx context.Context, demo bool) (bool, error) {
	_, err := s.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, driven.ErrNotFound) {
		return false, err
	}

	if err := s.Reset(ctx, demo); err != nil {
		return false, err
	}
	return true, nil
}

// Reset unconditionally replaces the authoritative document with a default
// one. It is the operator's way out of a corrupt document.
func (s *ConfigStore) Reset(ctx context.Context, demo bool) error {
	doc := model.DefaultDocument()
	if demo {
		cred, err := DemoCredential()
		if err != nil {
			return err
		}
		doc.Accounts = append(doc.Accounts, cred)
	}

	if err := s.Save(ctx, doc); err != nil {
		return fmt.Errorf("seed default document: %w", err)
	}

	s.logger.Info("default document written", "demo", demo)
	return nil
}

// DemoCredential returns the account placed in a demo-seeded document.
func DemoCredential() (model.Credential, error) {
	secret, err := otpauth.GenerateSecret(otpauth.DefaultSecretLength)
	if err != nil {
		return model.Credential{}, fmt.Errorf("generate demo secret: %w", err)
	}
	cred := model.NewCredential("Demo Account", "Demo", secret)
	cred.Color = 0x00FF00
	return cred, nil
}

func (s *ConfigStore) load(ctx context.Context, slot driven.Slot) (model.Document, error) {
	data, err := s.store.Read(ctx, slot)
	if err != nil {
		return model.Document{}, err
	}

	doc, err := model.DecodeDocument(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %s document: %w", driven.ErrCorrupt, slot, err)
	}
	if err := doc.Validate(); err != nil {
		return model.Document{}, fmt.Errorf("%w: %s document: %w", driven.ErrCorrupt, slot, err)
	}
	return doc, nil
}

func (s *ConfigStore) write(ctx context.Context, slot driven.Slot, doc model.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	data, err := model.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", slot, err)
	}

	return s.store.Write(ctx, slot, data)
}
