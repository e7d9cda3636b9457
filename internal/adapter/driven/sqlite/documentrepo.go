package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentStore port.
// When constructed with a key, payloads are sealed with AES-256-GCM before
// write and opened after read, so account secrets are not stored in the clear.
type DocumentRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores payloads as-is.
}

// NewDocumentRepo creates a DocumentRepo. key must be 32 bytes for AES-256-GCM,
// or nil to store payloads unencrypted.
func NewDocumentRepo(db *DB, key []byte) (*DocumentRepo, error) {
	if key != nil && len(key) != 32 {
		return nil, fmt.Errorf("document encryption key must be 32 bytes, got %d", len(key))
	}
	return &DocumentRepo{db: db, key: key}, nil
}

// Read returns the payload stored for slot, or driven.ErrNotFound.
// A payload that fails to decrypt is reported as driven.ErrCorrupt.
func (r *DocumentRepo) Read(ctx context.Context, slot driven.Slot) ([]byte, error) {
	const query = `SELECT payload FROM documents WHERE slot = ?`

	var payload []byte
	err := r.db.Reader.QueryRowContext(ctx, query, string(slot)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", slot, err)
	}

	plaintext, err := r.open(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt %s document: %v", driven.ErrCorrupt, slot, err)
	}
	return plaintext, nil
}

// Write replaces the payload stored for slot in a single statement.
func (r *DocumentRepo) Write(ctx context.Context, slot driven.Slot, data []byte) error {
	payload, err := r.seal(data)
	if err != nil {
		return err
	}

	const query = `INSERT INTO documents (slot, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(slot), payload); err != nil {
		return fmt.Errorf("write %s document: %w", slot, err)
	}
	return nil
}

// Remove deletes the row for slot. Removing a missing slot is not an error.
func (r *DocumentRepo) Remove(ctx context.Context, slot driven.Slot) error {
	const query = `DELETE FROM documents WHERE slot = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(slot)); err != nil {
		return fmt.Errorf("remove %s document: %w", slot, err)
	}
	return nil
}

// seal encrypts data with AES-256-GCM and returns nonce || ciphertext || tag.
func (r *DocumentRepo) seal(data []byte) ([]byte, error) {
	if r.key == nil {
		return data, nil
	}

	gcm, err := r.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// open reverses seal.
func (r *DocumentRepo) open(payload []byte) ([]byte, error) {
	if r.key == nil {
		return payload, nil
	}

	gcm, err := r.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(payload) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := payload[:nonceSize], payload[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func (r *DocumentRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
