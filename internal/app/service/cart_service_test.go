package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartServiceTest(t *testing.T) (CartService, *fakeCatalog, *storage.MemorySnapshotStore) {
	t.Helper()
	catalog := newFakeCatalog()
	catalog.put("p1", "Linen Shirt", "19.90", sized("M", 3))
	snapshots := storage.NewMemorySnapshotStore(time.Hour)
	svc := NewCartService(snapshots, NewStockReconciler(catalog, time.Second), 2)
	return svc, catalog, snapshots
}

func TestCartService_SameStorePerSession(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stores := make([]*CartStore, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, release, err := svc.Cart(ctx, "sess-a")
			if assert.NoError(t, err) {
				release()
			}
			stores[i] = store
		}(i)
	}
	wg.Wait()

	for _, store := range stores {
		assert.Same(t, stores[0], store)
	}
	other, release, err := svc.Cart(ctx, "sess-b")
	require.NoError(t, err)
	defer release()
	assert.NotSame(t, stores[0], other)
	assert.Equal(t, 2, svc.Resident())
}

func TestCartService_EmptySession(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	_, _, err := svc.Cart(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySession)
}

func TestCartService_EvictIdleReloadsFromSnapshot(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	store, release, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, "p1", "M", 2))
	release()

	assert.Equal(t, 0, svc.EvictIdle(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, svc.EvictIdle(time.Millisecond))
	assert.Equal(t, 0, svc.Resident())

	reloaded, releaseReloaded, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)
	defer releaseReloaded()
	assert.NotSame(t, store, reloaded)
	assert.Equal(t, 2, reloaded.ItemCount())
}

func TestCartService_EvictIdleKeepsHeldStores(t *testing.T) {
	svc, catalog, snapshots := setupCartServiceTest(t)
	catalog.put("p2", "Canvas Tote", "5.00", sized(model.SingleUnitSize, 10))
	ctx := context.Background()

	first, releaseFirst, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.EvictIdle(-time.Second))
	assert.Equal(t, 1, svc.Resident())

	second, releaseSecond, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.AddItem(ctx, "p1", "M", 2))
	require.NoError(t, second.AddItem(ctx, "p2", model.SingleUnitSize, 1))
	releaseFirst()
	releaseFirst()
	assert.Equal(t, 0, svc.EvictIdle(-time.Second), "still held by the second caller")
	releaseSecond()

	payload, err := snapshots.Load(ctx, storage.SnapshotKey("sess-a"))
	require.NoError(t, err)
	var stored model.CartSnapshot
	require.NoError(t, json.Unmarshal(payload, &stored))
	assert.Len(t, stored, 2)

	assert.Equal(t, 1, svc.EvictIdle(-time.Second))
	reloaded, release, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 3, reloaded.ItemCount())
}

func TestCartService_ClearSession(t *testing.T) {
	svc, _, snapshots := setupCartServiceTest(t)
	ctx := context.Background()

	store, release, err := svc.Cart(ctx, "sess-a")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, "p1", "M", 1))
	release()
	svc.EvictIdle(-time.Second)

	require.NoError(t, svc.ClearSession(ctx, "sess-a"))

	payload, err := snapshots.Load(ctx, storage.SnapshotKey("sess-a"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(payload))
	assert.Equal(t, 1, svc.EvictIdle(-time.Second), "ClearSession releases its hold")
}
