package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	apperrors "github.com/ikkim/udonggeum-storefront/internal/errors"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxImportSize = 10 << 20

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{
		adminService: adminService,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type PresignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// CreateProduct creates a catalog product
// POST /api/v1/admin/products
func (ctrl *AdminController) CreateProduct(c *gin.Context) {
	var product model.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"body": "요청 형식이 올바르지 않습니다"})
		return
	}

	created, err := ctrl.adminService.CreateProduct(c.Request.Context(), &product)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "상품 등록")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct replaces a catalog product
// PUT /api/v1/admin/products/:id
func (ctrl *AdminController) UpdateProduct(c *gin.Context) {
	var product model.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"body": "요청 형식이 올바르지 않습니다"})
		return
	}

	updated, err := ctrl.adminService.UpdateProduct(c.Request.Context(), c.Param("id"), &product)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "상품 수정")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct removes a catalog product
// DELETE /api/v1/admin/products/:id
func (ctrl *AdminController) DeleteProduct(c *gin.Context) {
	if err := ctrl.adminService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.ParseAndRespond(c, err, "상품 삭제")
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportProducts creates products from an uploaded XLSX sheet
// POST /api/v1/admin/products/import
func (ctrl *AdminController) ImportProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"file": "XLSX 파일이 필요합니다"})
		return
	}
	if file.Size > maxImportSize {
		apperrors.RespondWithValidationError(c, map[string]string{"file": "파일이 너무 큽니다 (최대 10MB)"})
		return
	}

	f, err := file.Open()
	if err != nil {
		log.Error("Failed to open uploaded sheet", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer f.Close()

	result, err := ctrl.adminService.ImportProducts(c.Request.Context(), f)
	if err != nil {
		log.Warn("Product import failed", map[string]interface{}{
			"filename": file.Filename,
			"error":    err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "XLSX 파일을 읽을 수 없습니다")
		return
	}
	c.JSON(http.StatusOK, result)
}

// PresignProductImage issues a direct upload URL for a product image
// POST /api/v1/admin/uploads/presigned-url
func (ctrl *AdminController) PresignProductImage(c *gin.Context) {
	var req PresignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"body": "filename, contentType은 필수입니다"})
		return
	}

	resp, err := ctrl.adminService.PresignProductImage(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "이미지 업로드")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListOrders lists orders, optionally filtered by status
// GET /api/v1/admin/orders
func (ctrl *AdminController) ListOrders(c *gin.Context) {
	orders, err := ctrl.adminService.ListOrders(c.Request.Context(), orderQuery(c))
	if err != nil {
		apperrors.ParseAndRespond(c, err, "주문 조회")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateOrderStatus changes an order's fulfilment status
// PATCH /api/v1/admin/orders/:id/status
func (ctrl *AdminController) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"status": "필수 항목입니다"})
		return
	}

	order, err := ctrl.adminService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "주문 수정")
		return
	}
	c.JSON(http.StatusOK, order)
}

// ExportOrders downloads the order listing as an XLSX workbook
// GET /api/v1/admin/orders/export
func (ctrl *AdminController) ExportOrders(c *gin.Context) {
	var buf bytes.Buffer
	rows, err := ctrl.adminService.ExportOrders(c.Request.Context(), orderQuery(c), &buf)
	if err != nil {
		apperrors.ParseAndRespond(c, err, "주문 내보내기")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Export-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func orderQuery(c *gin.Context) api.OrderQuery {
	q := api.OrderQuery{Status: model.OrderStatus(c.Query("status"))}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		q.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = limit
	}
	return q
}
