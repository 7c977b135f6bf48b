package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrInvalidImageType   = errors.New("image content type not allowed")
	ErrImageUploadOff     = errors.New("image upload is not configured")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// AdminGateway is the part of the storefront API the admin area proxies.
type AdminGateway interface {
	CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, product *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	ListOrders(ctx context.Context, q api.OrderQuery) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
}

// ImagePresigner issues direct-upload URLs for product images.
type ImagePresigner interface {
	PresignUpload(ctx context.Context, filename, contentType, folder string) (*storage.PresignedURLResponse, error)
}

// ImportResult summarizes a catalog sheet import.
type ImportResult struct {
	Created int        `json:"created"`
	Failed  []RowError `json:"failed,omitempty"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type AdminService interface {
	CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, product *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	ListOrders(ctx context.Context, q api.OrderQuery) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
	PresignProductImage(ctx context.Context, filename, contentType string) (*storage.PresignedURLResponse, error)
	ExportOrders(ctx context.Context, q api.OrderQuery, w io.Writer) (int, error)
	ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type adminService struct {
	gateway   AdminGateway
	presigner ImagePresigner
}

// NewAdminService creates the admin service. presigner may be nil when no
// bucket is configured.
func NewAdminService(gateway AdminGateway, presigner ImagePresigner) AdminService {
	return &adminService{gateway: gateway, presigner: presigner}
}

func (s *adminService) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	created, err := s.gateway.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return nil, err
	}
	logger.Info("Product created", map[string]interface{}{
		"product_id": created.ID,
		"name":       created.Name,
	})
	return created, nil
}

func (s *adminService) UpdateProduct(ctx context.Context, productID string, product *model.Product) (*model.Product, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	updated, err := s.gateway.UpdateProduct(ctx, productID, product)
	if err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	logger.Info("Product updated", map[string]interface{}{
		"product_id": productID,
	})
	return updated, nil
}

func (s *adminService) DeleteProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if err := s.gateway.DeleteProduct(ctx, productID); err != nil {
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": productID,
		})
		return err
	}
	logger.Info("Product deleted", map[string]interface{}{
		"product_id": productID,
	})
	return nil
}

func (s *adminService) ListOrders(ctx context.Context, q api.OrderQuery) ([]model.Order, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	return s.gateway.ListOrders(ctx, q)
}

func (s *adminService) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.gateway.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": orderID,
			"status":   status,
		})
		return nil, err
	}
	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})
	return order, nil
}

func (s *adminService) PresignProductImage(ctx context.Context, filename, contentType string) (*storage.PresignedURLResponse, error) {
	if s.presigner == nil {
		return nil, ErrImageUploadOff
	}
	if err := storage.ValidateContentType(contentType, allowedImageTypes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageType, err)
	}
	return s.presigner.PresignUpload(ctx, filename, contentType, storage.ProductImageFolder)
}

var orderSheetHeader = []interface{}{
	"주문번호", "참조", "주문일시", "고객명", "이메일", "연락처", "주소", "상품 수", "합계", "결제수단", "결제상태", "주문상태",
}

// ExportOrders writes the matching orders as an XLSX workbook and returns
// how many rows were written.
func (s *adminService) ExportOrders(ctx context.Context, q api.OrderQuery, w io.Writer) (int, error) {
	orders, err := s.ListOrders(ctx, q)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &orderSheetHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for i, order := range orders {
		items := 0
		for _, item := range order.Items {
			items += item.Quantity
		}
		total, _ := order.Total.Float64()
		row := []interface{}{
			order.ID,
			order.Reference,
			order.CreatedAt.Format("2006-01-02 15:04:05"),
			order.Customer.Name,
			order.Customer.Email,
			order.Customer.Phone,
			strings.TrimSpace(strings.Join([]string{order.Customer.Address, order.Customer.City, order.Customer.PostalCode}, " ")),
			items,
			total,
			string(order.PaymentMethod),
			string(order.PaymentStatus),
			string(order.Status),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write order %s: %w", order.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info("Orders exported", map[string]interface{}{
		"rows":   len(orders),
		"status": q.Status,
	})
	return len(orders), nil
}

// ImportProducts creates one product per data row of the first sheet.
// Columns: name, description, category, price, images (comma separated),
// sizes ("S:3,M:5", empty for single-unit goods), featured. A bad row is
// reported and skipped; the rest are still imported.
func (s *adminService) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	result := &ImportResult{}
	// 첫 행은 헤더이므로 스킵
	for i := 1; i < len(rows); i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		rowNum := i + 1
		if isBlankRow(rows[i]) {
			continue
		}

		product, err := parseProductRow(rows[i])
		if err == nil {
			_, err = s.CreateProduct(ctx, product)
		}
		if err != nil {
			result.Failed = append(result.Failed, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Created++
	}

	logger.Info("Product import finished", map[string]interface{}{
		"created": result.Created,
		"failed":  len(result.Failed),
	})
	return result, nil
}

func parseProductRow(row []string) (*model.Product, error) {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	price, err := decimal.NewFromString(col(3))
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", col(3))
	}

	product := &model.Product{
		Name:        col(0),
		Description: col(1),
		Category:    model.ProductCategory(strings.ToLower(col(2))),
		Price:       model.NewMoney(price),
		Images:      splitList(col(4)),
		Featured:    strings.EqualFold(col(6), "true") || col(6) == "1" || strings.EqualFold(col(6), "y"),
	}

	sizes, err := parseSizes(col(5))
	if err != nil {
		return nil, err
	}
	product.Sizes = sizes
	return product, nil
}

// parseSizes reads "S:3,M:5". An empty cell is a single-unit product with no stock.
func parseSizes(cell string) ([]model.SizeStock, error) {
	if cell == "" {
		return []model.SizeStock{{Size: model.SingleUnitSize, Stock: 0, Available: false}}, nil
	}
	var sizes []model.SizeStock
	for _, part := range splitList(cell) {
		name, qty, found := strings.Cut(part, ":")
		if !found {
			name, qty = model.SingleUnitSize, part
		}
		stock, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return nil, fmt.Errorf("invalid stock %q", part)
		}
		sizes = append(sizes, model.SizeStock{
			Size:      strings.TrimSpace(name),
			Stock:     stock,
			Available: stock > 0,
		})
	}
	return sizes, nil
}

func validateProduct(product *model.Product) error {
	if product == nil {
		return ErrInvalidProduct
	}
	fields := make(map[string]string)
	if strings.TrimSpace(product.Name) == "" {
		fields["name"] = "required"
	}
	if product.Price.IsNegative() || product.Price.IsZero() {
		fields["price"] = "must be positive"
	}
	if len(product.Sizes) == 0 {
		fields["sizes"] = "at least one size is required"
	}
	seen := make(map[string]bool, len(product.Sizes))
	for _, size := range product.Sizes {
		switch {
		case size.Size == "":
			fields["sizes"] = "size key is required"
		case seen[size.Size]:
			fields["sizes"] = fmt.Sprintf("duplicate size %s", size.Size)
		case size.Stock < 0:
			fields["sizes"] = fmt.Sprintf("negative stock for %s", size.Size)
		}
		seen[size.Size] = true
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
