package model

import (
	"time"
)

// SingleUnitSize is the size key used by products sold without size variants.
const SingleUnitSize = "U"

type ProductCategory string

const (
	CategoryClothing    ProductCategory = "clothing"    // 의류
	CategoryShoes       ProductCategory = "shoes"       // 신발
	CategoryAccessories ProductCategory = "accessories" // 잡화
)

// SizeStock is one row of a product's size table.
type SizeStock struct {
	Size      string `json:"size"`      // 사이즈 키 (S, M, 260, U ...)
	Stock     int    `json:"stock"`     // 남은 재고
	Available bool   `json:"available"` // 판매 가능 여부
}

// Product is the catalog representation returned by the storefront API.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    ProductCategory `json:"category,omitempty"`
	Price       Money           `json:"price"`
	Images      []string        `json:"images"`
	Sizes       []SizeStock     `json:"sizes"`
	Featured    bool            `json:"featured,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// ProductSnapshot is the denormalized copy of a product kept inside a cart
// line, so the cart stays renderable after the product changes or is deleted.
type ProductSnapshot struct {
	ID     string      `json:"_id"`
	Name   string      `json:"name"`
	Price  Money       `json:"price"`
	Images []string    `json:"images"`
	Sizes  []SizeStock `json:"sizes"`
}

// Snapshot projects the catalog product onto the fields a cart line keeps.
func (p Product) Snapshot() ProductSnapshot {
	images := make([]string, len(p.Images))
	copy(images, p.Images)
	sizes := make([]SizeStock, len(p.Sizes))
	copy(sizes, p.Sizes)
	return ProductSnapshot{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Images: images,
		Sizes:  sizes,
	}
}

// StockFor returns the sellable stock for size. Missing or unavailable sizes count as zero.
func StockFor(sizes []SizeStock, size string) int {
	for _, s := range sizes {
		if s.Size != size {
			continue
		}
		if !s.Available || s.Stock < 0 {
			return 0
		}
		return s.Stock
	}
	return 0
}

// HasSize reports whether size appears in the table at all.
func HasSize(sizes []SizeStock, size string) bool {
	for _, s := range sizes {
		if s.Size == size {
			return true
		}
	}
	return false
}
