package sqlite

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func newTestRepo(t *testing.T, key []byte) (*DocumentRepo, *DB) {
	t.Helper()
	db := setupTestDB(t)
	repo, err := NewDocumentRepo(db, key)
	require.NoError(t, err)
	return repo, db
}

func rawPayload(t *testing.T, db *DB, slot driven.Slot) []byte {
	t.Helper()
	var payload []byte
	err := db.Reader.QueryRowContext(context.Background(), `SELECT payload FROM documents WHERE slot = ?`, string(slot)).Scan(&payload)
	require.NoError(t, err)
	return payload
}

func TestDocumentRepo_ReadMissing(t *testing.T) {
	repo, _ := newTestRepo(t, nil)

	_, err := repo.Read(context.Background(), driven.SlotStaged)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestDocumentRepo_WriteReadRemove(t *testing.T) {
	repo, _ := newTestRepo(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, driven.SlotAuthoritative, []byte("one")))
	require.NoError(t, repo.Write(ctx, driven.SlotStaged, []byte("two")))

	got, err := repo.Read(ctx, driven.SlotAuthoritative)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, repo.Remove(ctx, driven.SlotStaged))
	_, err = repo.Read(ctx, driven.SlotStaged)
	assert.ErrorIs(t, err, driven.ErrNotFound)

	assert.NoError(t, repo.Remove(ctx, driven.SlotStaged))
}

func TestDocumentRepo_WriteOverwrites(t *testing.T) {
	repo, _ := newTestRepo(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, driven.SlotAuthoritative, []byte("old")))
	require.NoError(t, repo.Write(ctx, driven.SlotAuthoritative, []byte("new")))

	got, err := repo.Read(ctx, driven.SlotAuthoritative)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDocumentRepo_EncryptsAtRest(t *testing.T) {
	repo, db := newTestRepo(t, testKey)
	ctx := context.Background()
	doc := []byte(`{"accounts":[{"secret":"JBSWY3DPEHPK3PXP"}]}`)

	require.NoError(t, repo.Write(ctx, driven.SlotAuthoritative, doc))

	stored := rawPayload(t, db, driven.SlotAuthoritative)
	assert.NotContains(t, string(stored), "JBSWY3DPEHPK3PXP")

	got, err := repo.Read(ctx, driven.SlotAuthoritative)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestDocumentRepo_WrongKeyIsCorrupt(t *testing.T) {
	repo, db := newTestRepo(t, testKey)
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, driven.SlotStaged, []byte("payload")))

	other, err := NewDocumentRepo(db, bytes.Repeat([]byte{0x24}, 32))
	require.NoError(t, err)

	_, err = other.Read(ctx, driven.SlotStaged)
	assert.ErrorIs(t, err, driven.ErrCorrupt)
}

func TestDocumentRepo_ShortCiphertextIsCorrupt(t *testing.T) {
	plain, db := newTestRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, plain.Write(ctx, driven.SlotStaged, []byte("abc")))

	sealed, err := NewDocumentRepo(db, testKey)
	require.NoError(t, err)

	_, err = sealed.Read(ctx, driven.SlotStaged)
	assert.ErrorIs(t, err, driven.ErrCorrupt)
}

func TestNewDocumentRepo_RejectsBadKey(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewDocumentRepo(db, []byte("short"))
	assert.Error(t, err)
}
