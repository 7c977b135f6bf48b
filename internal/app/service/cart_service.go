package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var ErrEmptySession = errors.New("cart session id is empty")

// CartService hands out the CartStore of a cart session. A store stays
// resident while any caller holds it; stores nobody holds and nobody used
// for a while are evicted and later reloaded from the snapshot store.
type CartService interface {
	// Cart returns the session's store together with a release func. The
	// caller must call release once it is done with the store.
	Cart(ctx context.Context, sessionID string) (*CartStore, func(), error)
	ClearSession(ctx context.Context, sessionID string) error
	EvictIdle(maxIdle time.Duration) int
	Resident() int
}

type cartService struct {
	snapshots          storage.SnapshotStore
	reconciler         *StockReconciler
	refreshConcurrency int

	mu     sync.Mutex
	stores map[string]*residentCart
	loads  singleflight.Group
}

// residentCart counts the callers holding a store. holders is guarded by
// cartService.mu.
type residentCart struct {
	store   *CartStore
	holders int
}

func NewCartService(snapshots storage.SnapshotStore, reconciler *StockReconciler, refreshConcurrency int) CartService {
	return &cartService{
		snapshots:          snapshots,
		reconciler:         reconciler,
		refreshConcurrency: refreshConcurrency,
		stores:             make(map[string]*residentCart),
	}
}

// Cart returns the resident store for sessionID, loading it on first use.
// Concurrent first uses of one session share a single load.
func (s *cartService) Cart(ctx context.Context, sessionID string) (*CartStore, func(), error) {
	if sessionID == "" {
		return nil, nil, ErrEmptySession
	}

	for {
		if store, release, ok := s.acquire(sessionID); ok {
			return store, release, nil
		}

		_, err, _ := s.loads.Do(sessionID, func() (interface{}, error) {
			s.mu.Lock()
			_, ok := s.stores[sessionID]
			s.mu.Unlock()
			if ok {
				return nil, nil
			}

			store := NewCartStore(sessionID, s.snapshots, s.reconciler, s.refreshConcurrency)
			if err := store.Load(ctx); err != nil {
				logger.Error("Failed to load cart", err, map[string]interface{}{
					"session_id": sessionID,
				})
				return nil, err
			}

			s.mu.Lock()
			if _, ok := s.stores[sessionID]; !ok {
				s.stores[sessionID] = &residentCart{store: store}
			}
			s.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
}

func (s *cartService) acquire(sessionID string) (*CartStore, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resident, ok := s.stores[sessionID]
	if !ok {
		return nil, nil, false
	}
	resident.holders++
	resident.store.touch()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			resident.holders--
			resident.store.touch()
			s.mu.Unlock()
		})
	}
	return resident.store, release, true
}

// ClearSession empties a session's cart, loading it if it is not resident.
func (s *cartService) ClearSession(ctx context.Context, sessionID string) error {
	store, release, err := s.Cart(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return store.Clear(ctx)
}

// EvictIdle drops stores nobody holds that were unused for maxIdle and
// returns how many were dropped.
func (s *cartService) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, resident := range s.stores {
		if resident.holders > 0 {
			continue
		}
		if resident.store.IdleSince().Before(cutoff) {
			delete(s.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Info("Evicted idle carts", map[string]interface{}{
			"evicted":  evicted,
			"resident": len(s.stores),
		})
	}
	return evicted
}

func (s *cartService) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}
