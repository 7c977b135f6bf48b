package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CartStore owns the cart of one cart session. All reads and writes of the
// session's lines go through it, and it is the only writer of the session's
// stored snapshot.
//
// Mutations on the same line are serialized; different lines proceed
// concurrently. Every successful mutation rewrites the snapshot. A failed
// write keeps the in-memory change and is reported as *PersistenceError.
type CartStore struct {
	sessionID          string
	key                string
	snapshots          storage.SnapshotStore
	reconciler         *StockReconciler
	refreshConcurrency int

	mu    sync.RWMutex
	lines model.CartSnapshot

	locks     *lineLocks
	persistMu sync.Mutex
	lastUsed  atomic.Int64
}

// NewCartStore creates an empty store for sessionID. Call Load to restore a
// stored snapshot.
func NewCartStore(sessionID string, snapshots storage.SnapshotStore, reconciler *StockReconciler, refreshConcurrency int) *CartStore {
	if refreshConcurrency < 1 {
		refreshConcurrency = 1
	}
	s := &CartStore{
		sessionID:          sessionID,
		key:                storage.SnapshotKey(sessionID),
		snapshots:          snapshots,
		reconciler:         reconciler,
		refreshConcurrency: refreshConcurrency,
		lines:              model.CartSnapshot{},
		locks:              newLineLocks(),
	}
	s.touch()
	return s
}

func (s *CartStore) SessionID() string {
	return s.sessionID
}

// Load replaces the in-memory cart with the stored snapshot. A missing
// snapshot yields an empty cart; so does an unreadable one, which is logged.
func (s *CartStore) Load(ctx context.Context) error {
	s.touch()
	payload, err := s.snapshots.Load(ctx, s.key)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		s.replace(model.CartSnapshot{})
		return nil
	}
	if err != nil {
		return err
	}

	var stored model.CartSnapshot
	if err := json.Unmarshal(payload, &stored); err != nil {
		logger.Warn("Discarding unreadable cart snapshot", map[string]interface{}{
			"session_id": s.sessionID,
			"error":      err.Error(),
		})
		s.replace(model.CartSnapshot{})
		return nil
	}

	lines := sanitize(stored)
	if len(lines) != len(stored) {
		logger.Warn("Dropped invalid lines from cart snapshot", map[string]interface{}{
			"session_id": s.sessionID,
			"stored":     len(stored),
			"kept":       len(lines),
		})
	}
	s.replace(lines)

	logger.Debug("Cart loaded", map[string]interface{}{
		"session_id": s.sessionID,
		"lines":      len(lines),
	})
	return nil
}

// sanitize drops lines that cannot be valid and keeps the first line per key.
func sanitize(stored model.CartSnapshot) model.CartSnapshot {
	lines := make(model.CartSnapshot, 0, len(stored))
	seen := make(map[model.LineKey]bool, len(stored))
	for _, line := range stored {
		if line.Product.ID == "" || line.Size == "" || line.Quantity < 1 {
			continue
		}
		if seen[line.Key()] {
			continue
		}
		if line.MaxStock < 0 {
			line.MaxStock = 0
		}
		seen[line.Key()] = true
		lines = append(lines, line)
	}
	return lines
}

// AddItem adds quantity units of (productID, size). The stock ceiling is
// re-read from the catalog, net of what the cart already holds for the line;
// a request above it fails with *InsufficientStockError and changes nothing.
// A new line captures the product as the catalog returns it now.
func (s *CartStore) AddItem(ctx context.Context, productID, size string, quantity int) error {
	s.touch()
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if productID == "" {
		return ErrInvalidProduct
	}
	if size == "" {
		size = model.SingleUnitSize
	}
	key := model.LineKey{ProductID: productID, Size: size}

	logger.Info("Adding item to cart", map[string]interface{}{
		"session_id": s.sessionID,
		"line":       key.String(),
		"quantity":   quantity,
	})

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	held := 0
	if line, ok := s.line(key); ok {
		held = line.Quantity
	}

	check, err := s.reconciler.CheckStock(ctx, productID, size, quantity, held)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &InsufficientStockError{ProductID: productID, Size: size, Requested: quantity, Ceiling: 0, Cause: err}
	}
	if !check.Allowed {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"session_id": s.sessionID,
			"line":       key.String(),
			"requested":  quantity,
			"held":       held,
			"ceiling":    check.Ceiling,
		})
		return &InsufficientStockError{ProductID: productID, Size: size, Requested: quantity, Ceiling: check.Ceiling}
	}

	// The line is keyed by the requested ID whatever form the catalog echoes.
	fresh := check.Product.Snapshot()
	fresh.ID = productID

	s.mu.Lock()
	if i := s.indexOf(key); i >= 0 {
		s.lines[i].Quantity += quantity
		s.lines[i].MaxStock = check.Stock
		s.lines[i].Product.Sizes = fresh.Sizes
	} else {
		s.lines = append(s.lines, model.CartLine{
			Product:  fresh,
			Size:     size,
			Quantity: quantity,
			MaxStock: check.Stock,
		})
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

// UpdateQuantity sets an absolute quantity on an existing line. Going above
// the cached maxStock re-checks the catalog first; a rejected update leaves
// the quantity unchanged.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID, size string, newQuantity int) error {
	s.touch()
	if newQuantity < 1 {
		return ErrInvalidQuantity
	}
	if size == "" {
		size = model.SingleUnitSize
	}
	key := model.LineKey{ProductID: productID, Size: size}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	line, ok := s.line(key)
	if !ok {
		return ErrCartLineNotFound
	}

	maxStock := line.MaxStock
	sizes := line.Product.Sizes
	if newQuantity > line.MaxStock {
		check, err := s.reconciler.CheckStock(ctx, productID, size, newQuantity, 0)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &InsufficientStockError{ProductID: productID, Size: size, Requested: newQuantity, Ceiling: 0, Cause: err}
		}
		if !check.Allowed {
			logger.Warn("Cannot update cart line: insufficient stock", map[string]interface{}{
				"session_id": s.sessionID,
				"line":       key.String(),
				"requested":  newQuantity,
				"ceiling":    check.Ceiling,
			})
			return &InsufficientStockError{ProductID: productID, Size: size, Requested: newQuantity, Ceiling: check.Ceiling}
		}
		maxStock = check.Stock
		sizes = check.Product.Snapshot().Sizes
	}

	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		// cleared while the stock check was in flight
		s.mu.Unlock()
		return ErrCartLineNotFound
	}
	s.lines[i].Quantity = newQuantity
	s.lines[i].MaxStock = maxStock
	s.lines[i].Product.Sizes = sizes
	s.mu.Unlock()

	logger.Info("Cart line updated", map[string]interface{}{
		"session_id": s.sessionID,
		"line":       key.String(),
		"quantity":   newQuantity,
		"max_stock":  maxStock,
	})
	return s.persist(ctx)
}

// RemoveItem removes the line if present. Removing an absent line is a no-op.
func (s *CartStore) RemoveItem(ctx context.Context, productID, size string) error {
	s.touch()
	if size == "" {
		size = model.SingleUnitSize
	}
	key := model.LineKey{ProductID: productID, Size: size}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.mu.Unlock()

	logger.Info("Cart line removed", map[string]interface{}{
		"session_id": s.sessionID,
		"line":       key.String(),
	})
	return s.persist(ctx)
}

// Clear empties the cart. It is only called once a payment is confirmed.
func (s *CartStore) Clear(ctx context.Context) error {
	s.touch()
	s.replace(model.CartSnapshot{})

	logger.Info("Cart cleared", map[string]interface{}{
		"session_id": s.sessionID,
	})
	return s.persist(ctx)
}

// RefreshAllStock re-reads stock for every line and updates maxStock in
// place. Quantities are never changed; lines left above their new maxStock
// are reported by Conflicts. A line whose stock cannot be read gets
// maxStock 0. The snapshot is written once at the end.
func (s *CartStore) RefreshAllStock(ctx context.Context) error {
	s.touch()
	lines := s.Lines()
	if len(lines) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.refreshConcurrency)

	for _, line := range lines {
		key := line.Key()
		g.Go(func() error {
			unlock, err := s.locks.Lock(gctx, key)
			if err != nil {
				return err
			}
			defer unlock()

			check, err := s.reconciler.CheckStock(gctx, key.ProductID, key.Size, 0, 0)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			s.mu.Lock()
			defer s.mu.Unlock()
			i := s.indexOf(key)
			if i < 0 {
				return nil
			}
			if err != nil {
				s.lines[i].MaxStock = 0
				return nil
			}
			s.lines[i].MaxStock = check.Stock
			s.lines[i].Product.Sizes = check.Product.Snapshot().Sizes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Cart stock refreshed", map[string]interface{}{
		"session_id": s.sessionID,
		"lines":      len(lines),
		"conflicts":  len(s.Conflicts()),
	})
	return s.persist(ctx)
}

// Total sums unit price times quantity using the prices captured in the cart.
func (s *CartStore) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines.Total()
}

func (s *CartStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines.ItemCount()
}

// AvailableStock returns the cached maxStock for the line, 0 if absent. It
// never contacts the catalog.
func (s *CartStore) AvailableStock(productID, size string) int {
	if size == "" {
		size = model.SingleUnitSize
	}
	line, ok := s.line(model.LineKey{ProductID: productID, Size: size})
	if !ok {
		return 0
	}
	return line.MaxStock
}

// Lines returns a copy of the cart lines in insertion order.
func (s *CartStore) Lines() model.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines.Clone()
}

// Conflicts returns the lines whose quantity exceeds their maxStock.
func (s *CartStore) Conflicts() []model.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var conflicts []model.CartLine
	for _, line := range s.lines {
		if line.OverLimit() {
			conflicts = append(conflicts, line)
		}
	}
	return conflicts
}

func (s *CartStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

// IdleSince reports when the store was last used.
func (s *CartStore) IdleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *CartStore) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *CartStore) line(key model.LineKey) (model.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(key); i >= 0 {
		return s.lines[i], true
	}
	return model.CartLine{}, false
}

// indexOf must be called with mu held.
func (s *CartStore) indexOf(key model.LineKey) int {
	for i, line := range s.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (s *CartStore) replace(lines model.CartSnapshot) {
	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
}

// persist writes the current lines. Writes are serialized and each one reads
// the state at write time, so the last write always carries the latest state.
// A committed change is written even if the caller has gone away.
func (s *CartStore) persist(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	payload, err := json.Marshal(s.lines)
	s.mu.RUnlock()
	if err == nil {
		err = s.snapshots.Save(ctx, s.key, payload)
	}
	if err != nil {
		logger.Error("Failed to persist cart snapshot", err, map[string]interface{}{
			"session_id": s.sessionID,
		})
		return &PersistenceError{Key: s.key, Err: err}
	}
	return nil
}
