package application

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

// fakeNotifier hands out a channel the test drives directly.
type fakeNotifier struct {
	ch  chan driven.Slot
	err error
}

func (f *fakeNotifier) Changes(_ context.Context) (<-chan driven.Slot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

// reloadRecorder collects documents passed to OnReload.
type reloadRecorder struct {
	mu   sync.Mutex
	docs []model.Document
}

func (r *reloadRecorder) record(doc model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
}

func (r *reloadRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *reloadRecorder) last() model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[len(r.docs)-1]
}

func TestSyncService_CheckpointPromotesThenLoads(t *testing.T) {
	cs, _ := newFileConfigStore(t)
	ctx := context.Background()
	require.NoError(t, cs.Save(ctx, model.DefaultDocument()))

	svc := NewSyncService(cs, nil, time.Hour, discardLogger())
	rec := &reloadRecorder{}
	svc.OnReload(rec.record)

	require.NoError(t, svc.Checkpoint(ctx))
	assert.Equal(t, 1, rec.count())

	staged := sampleDocument()
	require.NoError(t, cs.Stage(ctx, staged))

	require.NoError(t, svc.Checkpoint(ctx))

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, staged, current)
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, staged, rec.last())
}

func TestSyncService_CheckpointUnchangedDoesNotReload(t *testing.T) {
	cs, _ := newFileConfigStore(t)
	ctx := context.Background()
	require.NoError(t, cs.Save(ctx, sampleDocument()))

	svc := NewSyncService(cs, nil, time.Hour, discardLogger())
	rec := &reloadRecorder{}
	svc.OnReload(rec.record)

	require.NoError(t, svc.Checkpoint(ctx))
	require.NoError(t, svc.Checkpoint(ctx))
	assert.Equal(t, 1, rec.count())
}

func TestSyncService_CheckpointMissingDocument(t *testing.T) {
	cs, _ := newFileConfigStore(t)
	svc := NewSyncService(cs, nil, time.Hour, discardLogger())

	err := svc.Checkpoint(context.Background())
	assert.ErrorIs(t, err, driven.ErrNotFound)

	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestSyncService_CorruptStagedKeepsCurrent(t *testing.T) {
	cs, fs := newFileConfigStore(t)
	ctx := context.Background()
	doc := sampleDocument()
	require.NoError(t, cs.Save(ctx, doc))

	svc := NewSyncService(cs, nil, time.Hour, discardLogger())
	require.NoError(t, svc.Checkpoint(ctx))

	require.NoError(t, os.WriteFile(fs.Path(driven.SlotStaged), []byte("garbage"), 0o600))

	err := svc.Checkpoint(ctx)
	assert.ErrorIs(t, err, driven.ErrCorrupt)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, doc, current)

	// The corrupt staged document was consumed; the next cycle is clean.
	assert.NoError(t, svc.Checkpoint(ctx))
}

func TestSyncService_CorruptAuthoritativeKeepsLastGood(t *testing.T) {
	cs, fs := newFileConfigStore(t)
	ctx := context.Background()
	doc := sampleDocument()
	require.NoError(t, cs.Save(ctx, doc))

	svc := NewSyncService(cs, nil, time.Hour, discardLogger())
	require.NoError(t, svc.Checkpoint(ctx))

	require.NoError(t, os.WriteFile(fs.Path(driven.SlotAuthoritative), []byte("garbage"), 0o600))

	err := svc.Checkpoint(ctx)
	assert.ErrorIs(t, err, driven.ErrCorrupt)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, doc, current)
}

func TestSyncService_StartReactsToChanges(t *testing.T) {
	cs, _ := newFileConfigStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cs.Save(ctx, model.DefaultDocument()))

	notifier := &fakeNotifier{ch: make(chan driven.Slot, 1)}
	svc := NewSyncService(cs, notifier, time.Hour, discardLogger())
	rec := &reloadRecorder{}
	svc.OnReload(rec.record)

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	staged := sampleDocument()
	require.NoError(t, cs.Stage(ctx, staged))
	notifier.ch <- driven.SlotStaged

	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, staged, rec.last())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestSyncService_StartPollsWithoutNotifier(t *testing.T) {
	cs, _ := newFileConfigStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cs.Save(ctx, model.DefaultDocument()))

	notifier := &fakeNotifier{err: errors.New("inotify limit reached")}
	svc := NewSyncService(cs, notifier, 20*time.Millisecond, discardLogger())
	rec := &reloadRecorder{}
	svc.OnReload(rec.record)

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, cs.Stage(ctx, sampleDocument()))

	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, sampleDocument(), rec.last())

	cancel()
	<-done
}
