package docstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/otpdeck/internal/config"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roundTrip(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Store.Read(ctx, driven.SlotStaged)
	assert.ErrorIs(t, err, driven.ErrNotFound)

	require.NoError(t, b.Store.Write(ctx, driven.SlotStaged, []byte(`{"accounts":[]}`)))
	got, err := b.Store.Read(ctx, driven.SlotStaged)
	require.NoError(t, err)
	assert.Equal(t, `{"accounts":[]}`, string(got))
}

func TestOpen_File(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(context.Background(), &config.Config{Store: config.StoreFile, DataDir: dir}, discardLogger())
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Notifier)
	assert.Equal(t, dir, b.Location)
	roundTrip(t, b)
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otpdeck.db")
	cfg := &config.Config{Store: config.StoreSQLite, DBPath: path, SecretKey: make([]byte, 32)}

	b, err := Open(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, b.Notifier)
	assert.Equal(t, path, b.Location)
	roundTrip(t, b)
	require.NoError(t, b.Close())

	// Reopening runs migrations again and sees the same data.
	b, err = Open(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Store.Read(context.Background(), driven.SlotStaged)
	require.NoError(t, err)
	assert.Equal(t, `{"accounts":[]}`, string(got))
}

func TestOpen_SQLiteRejectsBadKey(t *testing.T) {
	cfg := &config.Config{Store: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "x.db"), SecretKey: []byte("short")}

	_, err := Open(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Store: "redis"}, discardLogger())
	assert.Error(t, err)
}
