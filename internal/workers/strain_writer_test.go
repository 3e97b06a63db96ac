package workers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"labelprep/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	calls    []database.StrainUpdate
	failures map[string][]error
}

func (f *fakeStore) AddOrUpdateStrain(ctx context.Context, name, lineage string, sovereign bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, database.StrainUpdate{Name: name, Lineage: lineage, Sovereign: sovereign})
	if errs := f.failures[name]; len(errs) > 0 {
		f.failures[name] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig(queueSize int) StrainWriterConfig {
	return StrainWriterConfig{
		QueueSize: queueSize,
		Retry: database.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func TestStrainWriter_WritesQueuedBatches(t *testing.T) {
	store := &fakeStore{}
	w := NewStrainWriter(store, testConfig(4))
	w.Start(context.Background())

	assert.True(t, w.Enqueue([]database.StrainUpdate{{Name: "Blue Dream", Lineage: "SATIVA"}}))
	assert.True(t, w.Enqueue([]database.StrainUpdate{{Name: "Gelato", Lineage: "HYBRID"}, {Name: "Runtz", Lineage: "INDICA"}}))
	assert.True(t, w.Enqueue(nil), "empty batch is accepted")
	w.Close()

	assert.Equal(t, 3, store.callCount())
	assert.Equal(t, "Blue Dream", store.calls[0].Name)
	assert.Equal(t, StrainWriterStats{Enqueued: 2, Written: 3}, w.Stats())
}

func TestStrainWriter_RetriesLockedErrors(t *testing.T) {
	locked := errors.New("database is locked")
	store := &fakeStore{failures: map[string][]error{
		"Gelato":   {locked, locked},
		"Runtz":    {errors.New("constraint failed")},
		"Zkittlez": {locked, locked, locked},
	}}
	w := NewStrainWriter(store, testConfig(4))
	w.Start(context.Background())

	require.True(t, w.Enqueue([]database.StrainUpdate{
		{Name: "Gelato", Lineage: "HYBRID"},
		{Name: "Runtz", Lineage: "INDICA"},
		{Name: "Zkittlez", Lineage: "INDICA"},
	}))
	w.Close()

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Written)
	assert.Equal(t, int64(2), stats.Failed)
	// Gelato: 3 попытки, Runtz: 1 (не блокировка), Zkittlez: 3 (лимит)
	assert.Equal(t, 7, store.callCount())
}

func TestStrainWriter_FullQueueDoesNotBlock(t *testing.T) {
	store := &fakeStore{}
	w := NewStrainWriter(store, testConfig(1))

	batch := []database.StrainUpdate{{Name: "Gelato", Lineage: "HYBRID"}}
	assert.True(t, w.Enqueue(batch))

	done := make(chan bool)
	go func() { done <- w.Enqueue(batch) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	w.Start(context.Background())
	w.Close()

	assert.Equal(t, 1, store.callCount())
	assert.Equal(t, int64(1), w.Stats().Dropped)
}

func TestStrainWriter_EnqueueAfterClose(t *testing.T) {
	w := NewStrainWriter(&fakeStore{}, testConfig(2))
	w.Close()
	w.Close()

	assert.False(t, w.Enqueue([]database.StrainUpdate{{Name: "Gelato", Lineage: "HYBRID"}}))
}

func TestStrainWriter_CanceledContextSkipsWrites(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(2)
	cfg.RatePerSec = 0.001
	w := NewStrainWriter(store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	require.True(t, w.Enqueue([]database.StrainUpdate{{Name: "Gelato", Lineage: "HYBRID"}, {Name: "Runtz", Lineage: "INDICA"}}))
	w.Close()

	assert.Equal(t, int64(2), w.Stats().Failed)
	assert.Equal(t, 0, store.callCount())
}

func TestStrainWriter_WithStrainDB(t *testing.T) {
	db, err := database.NewStrainDB(filepath.Join(t.TempDir(), "strains.db"))
	require.NoError(t, err)
	defer db.Close()

	w := NewStrainWriter(db, DefaultStrainWriterConfig())
	w.Start(context.Background())

	batch := []database.StrainUpdate{{Name: "Blue Dream", Lineage: "SATIVA"}}
	require.True(t, w.Enqueue(batch))
	// Повторная доставка только увеличивает счетчик наблюдений
	require.True(t, w.Enqueue(batch))
	w.Close()

	info, err := db.GetStrainInfo(context.Background(), "blue dream")
	require.NoError(t, err)
	assert.Equal(t, "SATIVA", info.CanonicalLineage)
	assert.Equal(t, 2, info.TotalOccurrences)

	count, err := db.CountStrains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
