package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
)

// statusClientClosedRequest 클라이언트가 응답 전에 연결을 끊음 (nginx 관례)
const statusClientClosedRequest = 499

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int                    // HTTP 상태 코드
	Code    string                 // 에러 코드 (codes.go 참조)
	Message string                 // 사용자 친화적 메시지
	Fields  map[string]string      // 필드별 검증 오류
	Details map[string]interface{} // 재고 등 추가 정보
}

// ParseError 서비스/외부 API 에러를 상태 코드, 에러 코드, 사용자 메시지로 변환
// 재고/결제 에러는 예상 가능한 상황이므로 항상 사용자가 조치할 수 있는 메시지를 돌려줌
func ParseError(err error, action string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "서버 오류가 발생했습니다"}
	}

	var (
		validationErr *service.ValidationError
		stockErr      *service.InsufficientStockError
		conflictErr   *service.StockConflictError
		paymentErr    *service.PaymentInitiationError
		persistErr    *service.PersistenceError
		statusErr     *api.StatusError
	)

	switch {
	// 1. 입력 검증
	case errors.As(err, &validationErr):
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    ValidationInvalidInput,
			Message: "입력값이 올바르지 않습니다",
			Fields:  validationErr.Fields,
		}

	// 2. 재고
	case errors.As(err, &stockErr):
		details := map[string]interface{}{
			"productId": stockErr.ProductID,
			"size":      stockErr.Size,
			"requested": stockErr.Requested,
			"ceiling":   stockErr.Ceiling,
		}
		if errors.Is(err, service.ErrStockUnavailable) {
			return ErrorInfo{
				Status:  http.StatusConflict,
				Code:    StockUnavailable,
				Message: "재고를 확인할 수 없습니다. 잠시 후 다시 시도해주세요",
				Details: details,
			}
		}
		message := "재고가 부족합니다"
		if stockErr.Ceiling > 0 {
			message = fmt.Sprintf("재고가 부족합니다 (최대 %d개 더 담을 수 있습니다)", stockErr.Ceiling)
		}
		return ErrorInfo{Status: http.StatusConflict, Code: StockInsufficient, Message: message, Details: details}

	case errors.As(err, &conflictErr):
		lines := make([]map[string]interface{}, len(conflictErr.Lines))
		for i, line := range conflictErr.Lines {
			lines[i] = map[string]interface{}{
				"productId": line.Product.ID,
				"size":      line.Size,
				"quantity":  line.Quantity,
				"maxStock":  line.MaxStock,
			}
		}
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    StockConflict,
			Message: "재고가 변경된 상품이 있습니다. 수량을 확인해주세요",
			Details: map[string]interface{}{"lines": lines},
		}

	// 3. 결제
	case errors.As(err, &paymentErr):
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    PaymentInitiationFailed,
			Message: "결제를 시작하지 못했습니다. 다시 시도해주세요",
			Details: map[string]interface{}{"paymentMethod": paymentErr.Method},
		}
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		return ErrorInfo{Status: http.StatusPaymentRequired, Code: PaymentNotConfirmed, Message: "결제가 확인되지 않았습니다"}
	case errors.Is(err, service.ErrUnknownPaymentMethod):
		return ErrorInfo{Status: http.StatusBadRequest, Code: PaymentMethodUnsupported, Message: "지원하지 않는 결제수단입니다"}

	// 4. 장바구니
	case errors.Is(err, service.ErrInvalidQuantity):
		return ErrorInfo{Status: http.StatusBadRequest, Code: CartInvalidQuantity, Message: "수량은 1개 이상이어야 합니다"}
	case errors.Is(err, service.ErrInvalidProduct):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidID, Message: "상품 정보가 올바르지 않습니다"}
	case errors.Is(err, service.ErrCartLineNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: CartLineNotFound, Message: "장바구니에 없는 상품입니다"}
	case errors.Is(err, service.ErrEmptySession):
		return ErrorInfo{Status: http.StatusUnauthorized, Code: SessionMissing, Message: "장바구니 세션이 없습니다"}
	case errors.As(err, &persistErr):
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    CartPersistWarning,
			Message: "장바구니를 저장하지 못했습니다. 새로고침하면 변경 내용이 사라질 수 있습니다",
		}

	// 5. 관리자
	case errors.Is(err, service.ErrInvalidOrderStatus):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidFormat, Message: "잘못된 주문 상태입니다"}
	case errors.Is(err, service.ErrInvalidImageType):
		return ErrorInfo{Status: http.StatusBadRequest, Code: UploadInvalidFileType, Message: "허용되지 않는 이미지 형식입니다"}
	case errors.Is(err, service.ErrImageUploadOff):
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: UploadUnavailable, Message: "이미지 업로드가 설정되지 않았습니다"}

	// 6. 요청 취소/시간 초과
	case errors.Is(err, context.Canceled):
		return ErrorInfo{Status: statusClientClosedRequest, Code: InternalServerError, Message: "요청이 취소되었습니다"}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorInfo{Status: http.StatusGatewayTimeout, Code: InternalExternalAPI, Message: "응답 시간이 초과되었습니다. 잠시 후 다시 시도해주세요"}

	// 7. 스토어 API
	case errors.Is(err, api.ErrNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: getNotFoundMessage(action)}
	case errors.As(err, &statusErr):
		return parseStatusError(statusErr, action)
	case errors.Is(err, api.ErrNetwork), errors.Is(err, api.ErrInvalidResponse):
		return ErrorInfo{Status: http.StatusBadGateway, Code: InternalExternalAPI, Message: "스토어 서버와 통신하지 못했습니다. 잠시 후 다시 시도해주세요"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: getDefaultErrorMessage(action)}
}

func parseStatusError(err *api.StatusError, context string) ErrorInfo {
	switch err.StatusCode {
	case http.StatusUnauthorized:
		return ErrorInfo{Status: http.StatusUnauthorized, Code: AuthUnauthorized, Message: "로그인이 필요합니다"}
	case http.StatusForbidden:
		return ErrorInfo{Status: http.StatusForbidden, Code: AuthzForbidden, Message: "접근 권한이 없습니다"}
	case http.StatusConflict:
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "이미 처리되었거나 충돌하는 요청입니다"}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		message := err.Message
		if message == "" {
			message = "입력값이 올바르지 않습니다"
		}
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: message}
	}
	return ErrorInfo{Status: http.StatusBadGateway, Code: InternalExternalAPI, Message: getDefaultErrorMessage(context)}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "product") || strings.Contains(contextLower, "상품") {
		return "상품을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "order") || strings.Contains(contextLower, "주문") {
		return "주문을 찾을 수 없습니다"
	}

	return "요청한 데이터를 찾을 수 없습니다"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") || strings.Contains(contextLower, "생성") || strings.Contains(contextLower, "등록") {
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "update") || strings.Contains(contextLower, "수정") {
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제") {
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "checkout") || strings.Contains(contextLower, "결제") {
		return "결제 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}

	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
// controller에서 간편하게 사용할 수 있도록
func ParseAndRespond(c *gin.Context, err error, context string) {
	info := ParseError(err, context)
	c.JSON(info.Status, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
		Fields:  info.Fields,
		Details: info.Details,
	})
}
