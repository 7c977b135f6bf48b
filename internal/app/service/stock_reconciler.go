package service

import (
	"context"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// Catalog is the remote product lookup the reconciler reads inventory from.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
}

// StockCheck is the answer to one stock check. Stock is the raw sellable
// stock; Ceiling is what the caller may still add on top of what it holds.
// Product is the catalog data the answer was computed from (nil on failure)
// and must be treated as read-only.
type StockCheck struct {
	Allowed bool
	Ceiling int
	Stock   int
	Product *model.Product
}

// StockReconciler is the only component that reads inventory from the catalog.
type StockReconciler struct {
	catalog Catalog
	timeout time.Duration
	group   singleflight.Group
}

func NewStockReconciler(catalog Catalog, timeout time.Duration) *StockReconciler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StockReconciler{catalog: catalog, timeout: timeout}
}

// CheckStock computes how much of (productID, size) a cart holding `held`
// units may add, and whether `requested` fits. Any failure to read the
// catalog fails closed: not allowed, ceiling 0, and a
// *StockCheckUnavailableError.
func (r *StockReconciler) CheckStock(ctx context.Context, productID, size string, requested, held int) (StockCheck, error) {
	product, err := r.fetchProduct(ctx, productID)
	if err != nil {
		logger.Warn("Stock check unavailable, failing closed", map[string]interface{}{
			"product_id": productID,
			"size":       size,
			"error":      err.Error(),
		})
		return StockCheck{}, &StockCheckUnavailableError{ProductID: productID, Err: err}
	}

	stock := model.StockFor(product.Sizes, size)
	ceiling := stock - held
	if ceiling < 0 {
		ceiling = 0
	}
	check := StockCheck{
		Allowed: requested <= ceiling,
		Ceiling: ceiling,
		Stock:   stock,
		Product: product,
	}

	logger.Debug("Stock checked", map[string]interface{}{
		"product_id": productID,
		"size":       size,
		"stock":      stock,
		"held":       held,
		"requested":  requested,
		"allowed":    check.Allowed,
	})
	return check, nil
}

// fetchProduct collapses concurrent lookups of the same product into one
// catalog call. The shared call keeps the first caller's values but not its
// cancellation; each caller still stops waiting when its own ctx ends.
func (r *StockReconciler) fetchProduct(ctx context.Context, productID string) (*model.Product, error) {
	ch := r.group.DoChan(productID, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.catalog.GetProduct(callCtx, productID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		product, _ := res.Val.(*model.Product)
		if product == nil {
			return nil, ErrInvalidProduct
		}
		return product, nil
	}
}
